package main

import (
	"chat-relay/internal"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the relay lifecycle, and centralizes error reporting.
// Deferred cleanups (listener, database) run before the exit code reaches main.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context & Signals
	// NotifyContext captures OS signals and cancels the context to trigger a shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Presence (BadgerDB), optional
	var presence repositories.IPresenceRepository
	if config.BadgerFilepath != "" {
		db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
		if err != nil {
			return exitRuntime, fmt.Errorf("database opening failed: %w", err)
		}
		defer func() {
			// Defer ensures the database lock is released and buffers are flushed before the function returns.
			logger.Info("Closing BadgerDB...")
			_ = db.Close()
		}()
		repository := repositories.NewPresenceRepository(db, logger)
		reset, err := repository.ResetOnline()
		if err != nil {
			return exitRuntime, fmt.Errorf("presence reset failed: %w", err)
		}
		logger.Info("Presence reset", "stale", reset)
		presence = repository
	}

	// 4. Listener
	listener, err := net.Listen("tcp", config.Address())
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", config.Address(), err)
	}

	// 5. Setup Supervision & Orchestration
	sup := workers.NewSupervisor(logger, config.RestartInterval)
	orchestrator := runtime.NewOrchestrator(logger, sup, listener, presence,
		runtime.Options{
			DefaultLobby:        config.DefaultLobby,
			DefaultUsername:     config.DefaultUsername,
			OutboxSize:          config.OutboxSize,
			HeartbeatInterval:   config.HeartbeatInterval,
			HeartbeatTimeout:    config.HeartbeatTimeout,
			NegotiationAttempts: config.NegotiationAttempts,
		},
		runtime.Settings{
			EventBufferSize: config.EventBufferSize,
			SinkTimeout:     config.SinkTimeout,
			MetricInterval:  config.MetricInterval,
			PeekTimeout:     config.PeekTimeout,
			DebugPort:       config.DebugPort,
			Moderation:      config.Moderation,
			CensoredWords:   config.Words(),
			CharReplacement: charReplacement,
		})

	// 6. Run until a signal arrives. Start returns once every session is closed.
	logger.Info("Starting relay", "address", listener.Addr().String())
	if err := orchestrator.Start(ctx); err != nil {
		_ = listener.Close()
		return exitRuntime, fmt.Errorf("orchestrator error: %w", err)
	}
	logger.Info("Program stopped cleanly")
	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}

	return options
}
