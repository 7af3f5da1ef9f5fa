package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/lexledger/lexledger/internal/config"
	"github.com/lexledger/lexledger/internal/logger"
	"github.com/lexledger/lexledger/internal/postgres"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Print migration SQL without executing it")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	logger.Infow("Connecting to database", "host", cfg.Postgres.Host)
	db, err := postgres.NewDB(cfg, logger)
	if err != nil {
		logger.Fatalw("Failed to connect to postgres", "error", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("Running database migrations...")
	if *dryRun {
		logger.Info("Dry run mode - printing migration SQL without executing")
	}

	ran, err := db.Migrate(ctx, *dryRun, os.Stdout)
	if err != nil {
		logger.Fatalw("Failed to apply migrations", "error", err, "applied", ran)
	}

	if len(ran) == 0 {
		logger.Info("Schema is up to date")
	} else if !*dryRun {
		logger.Infow("Migration completed successfully", "applied", ran)
	}

	fmt.Println("Migration process completed")
}
