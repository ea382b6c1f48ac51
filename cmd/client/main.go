package main

import (
	"bufio"
	"chat-relay/client"
	"chat-relay/domain"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=localhost:2222"`
	Username      string `env:"CHAT_USERNAME"`
	LogLevel      string `env:"LOG_LEVEL,default=WARN"`
}

func main() {
	// The main function manages the OS exit code based on run()'s return.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run negotiates a username, then pumps stdin to the relay and relay messages to stdout.
func run() (int, error) {
	// 1. Load configuration from environment variables.
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Connect and negotiate.
	c, err := client.Dial(ctx, log, config.ServerAddress)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to relay at %s: %w", config.ServerAddress, err)
	}
	// Closing the connection also unblocks the reception loop.
	context.AfterFunc(ctx, func() { _ = c.Close() })
	defer c.Close()

	name, err := c.Negotiate(config.Username)
	if err != nil {
		return exitRuntime, err
	}
	fmt.Println(color.Green.Sprintf(">>> Connected to %s as %s (/quit to leave)", config.ServerAddress, name))

	// 4. Keyboard loop.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			msg, err := client.ParseInput(scanner.Text())
			if err != nil {
				fmt.Println(color.Red.Sprint(err.Error()))
				continue
			}
			if err := c.Send(msg); err != nil {
				log.Warn("Send failed", "error", err)
				stop()
				return
			}
		}
		stop()
	}()

	// 5. Message reception loop.
	// This loop runs until the context is canceled or the relay closes the connection.
	for {
		msg, err := c.Receive()
		if err != nil {
			// Normal exit if the user triggered a shutdown.
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return exitOK, nil
			}
			return exitRuntime, fmt.Errorf("connection error: %w", err)
		}
		line := client.Format(msg)
		if msg.Sender == domain.ServerName {
			line = color.Cyan.Sprint(line)
		}
		fmt.Println(line)
	}
}
