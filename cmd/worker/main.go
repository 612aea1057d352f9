package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"marketsync/internal/config"
	"marketsync/internal/database"
	"marketsync/internal/logger"
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
	processor := webhook.NewProcessor(st, st, st, cfg.WebhookSecret, logger)

	// Initialize worker
	w := worker.New(cfg, logger, st, processor)

	// Start worker
	logger.Info("Starting worker...")
	go w.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	w.Stop()
}
