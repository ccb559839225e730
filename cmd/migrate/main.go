package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/config"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/logger"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/persistence"
)

func main() {
	// Parse flags
	var (
		logLevel  string
		olderThan time.Duration
		confirm   bool
	)

	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age after which purge removes a draft")
	flag.BoolVar(&confirm, "confirm", false, "Confirm destructive commands")
	flag.Parse()

	// Get command and arguments
	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	log.Info("Migration CLI started",
		zap.String("command", command),
		zap.String("driver", cfg.Database.Driver),
	)

	// Commands that need database connection
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithLogger(log, logLevel))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Execute command
	switch command {
	case "up":
		if err := db.Migrate(); err != nil {
			log.Fatal("Migration up failed", zap.Error(err))
		}
		log.Info("Quote draft schema is up to date")

	case "status":
		log.Info("Quote draft schema status", zap.Bool("migrated", db.HasSchema()))

	case "purge":
		if olderThan <= 0 {
			log.Fatal("-older-than must be positive", zap.Duration("value", olderThan))
		}
		repo := persistence.NewGormQuoteDraftRepository(db.DB, cfg.Draft.MaxRetries, cfg.Draft.RetryBase)
		removed, err := repo.PurgeStale(context.Background(), time.Now().Add(-olderThan))
		if err != nil {
			log.Fatal("Purge failed", zap.Error(err))
		}
		log.Info("Purged stale quote drafts",
			zap.Int64("removed", removed),
			zap.Duration("older_than", olderThan),
		)

	case "drop":
		// For safety, require explicit confirmation
		if !confirm {
			log.Fatal("Drop cancelled. Use 'migrate -confirm drop' to confirm.")
		}
		log.Warn("Dropping quote draft schema")
		if err := db.DropSchema(); err != nil {
			log.Fatal("Drop failed", zap.Error(err))
		}

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Quote Draft Schema Tool

Usage:
  migrate [flags] <command>

Commands:
  up                    Create or update the quote draft tables
  status                Report whether the quote draft tables exist
  purge                 Delete drafts not written within -older-than
  drop                  Drop the quote draft tables (requires -confirm)

Flags:
  -log-level string     Log level: debug, info, warn, error (default: info)
  -older-than duration  Draft age for purge (default: 720h)
  -confirm              Confirm destructive commands

Environment Variables:
  B2B_DATABASE_DRIVER, B2B_DATABASE_HOST, B2B_DATABASE_PORT, B2B_DATABASE_USER,
  B2B_DATABASE_PASSWORD, B2B_DATABASE_DBNAME, B2B_DATABASE_SQLITE_PATH

Examples:
  # Apply the schema
  migrate up

  # Remove drafts idle for two weeks
  migrate -older-than 336h purge`)
}
