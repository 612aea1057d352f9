package main

import (
	"log"

	"marketsync/internal/api"
	"marketsync/internal/api/handlers"
	"marketsync/internal/config"
	"marketsync/internal/database"
	"marketsync/internal/engine"
	"marketsync/internal/logger"
	"marketsync/internal/marketplace"
	"marketsync/internal/store"
	"marketsync/internal/webhook"
	"marketsync/internal/worker"
)

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

	var publisher handlers.EventPublisher
	if cfg.WebhookQueueEnabled {
		p := worker.NewPublisher(cfg, logger)
		defer p.Close()
		publisher = p
	}

	// Initialize API server
	server := api.New(cfg, logger, st, processor, publisher, orchestrator)

	// Start server
	logger.Info("Starting API server on port " + cfg.APIPort)
	if err := server.Start(); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}
