package main

import (
	"chat-relay/internal"
	"chat-relay/repositories"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
)

type Config struct {
	BadgerFilepath string `envconfig:"BADGER_FILEPATH"`
	// INSPECT_COLOURS enables colorized output for better readability
	Colours bool `envconfig:"INSPECT_COLOURS" default:"true"`
}

func main() {
	_ = godotenv.Load()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	dbPath := flag.String("db", config.BadgerFilepath, "Path to badger DB")
	onlineOnly := flag.Bool("online", false, "Only list online usernames")
	flag.Parse()
	if *dbPath == "" {
		log.Fatal("No database path: set BADGER_FILEPATH or -db")
	}

	// Note: BypassLockGuard allows opening while a running relay holds the lock
	opts := badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	repository := repositories.NewPresenceRepository(db, logs.GetLoggerFromLevel(slog.LevelWarn))
	presences, err := repository.List()
	if err != nil {
		log.Fatalf("Failed to list presence: %v", err)
	}
	if *onlineOnly {
		presences = lo.Filter(presences, func(p repositories.Presence, _ int) bool { return p.Online })
	}

	online := lo.CountBy(presences, func(p repositories.Presence) bool { return p.Online })
	header := fmt.Sprintf("  ====== %s : %d username(s), %d online ======", *dbPath, len(presences), online)
	if config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	fmt.Println(header)
	internal.RenderPresence(os.Stdout, presences)
}
