package main

import (
	"context"
	"errors"
	"log"
	"os"

	"marketsync/internal/config"
	"marketsync/internal/database"
	"marketsync/internal/engine"
	"marketsync/internal/logger"
	"marketsync/internal/marketplace"
	"marketsync/internal/store"
	"marketsync/internal/webhook"
)

// Entry point for the scheduled sync pass, meant to run from cron. The
// run lock makes overlapping invocations harmless.
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)

	// Initialize database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	st := store.New(db.DB)
	client := marketplace.NewClient(cfg.MarketplaceBaseURL, cfg.MarketplaceAPIKey, cfg.MarketplaceAPISecret, cfg.MarketplaceSupplierID, logger)
	processor := webhook.NewProcessor(st, st, st, cfg.WebhookSecret, logger)
	orchestrator := engine.NewOrchestrator(cfg, logger, st, client, processor)

	_, err = orchestrator.Run(context.Background())
	switch {
	case err == nil:
	case errors.Is(err, engine.ErrLockHeld),
		errors.Is(err, engine.ErrSyncDisabled),
		errors.Is(err, engine.ErrMissingCredentials):
		// Skipped runs are expected under cron; already logged.
	default:
		logger.Error("Sync run failed: %v", err)
		os.Exit(1)
	}
}
