package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"marketsync/internal/api/handlers"
	"marketsync/internal/api/middleware"
	"marketsync/internal/config"
	"marketsync/internal/logger"
	"marketsync/internal/store"
	"marketsync/internal/webhook"

	"github.com/gin-gonic/gin"
)

type Server struct {
	config *config.Config
	logger *logger.Logger
	router *gin.Engine
	server *http.Server
}

func New(cfg *config.Config, logger *logger.Logger, st store.Store, processor *webhook.Processor, publisher handlers.EventPublisher, runner handlers.SyncRunner) *Server {
	// Set Gin mode
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS())

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(processor, publisher, logger)
	syncHandler := handlers.NewSyncHandler(st, st, runner, logger)

	// Routes
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "marketsync"})
	})

	v1 := router.Group("/api/v1")
	{
		webhooks := v1.Group("/webhooks")
		{
			webhooks.POST("/marketplace", webhookHandler.Receive)
		}

		sync := v1.Group("/sync")
		{
			sync.GET("/runs", syncHandler.ListRuns)
			sync.GET("/status", syncHandler.Status)
			sync.POST("/run", syncHandler.Trigger)
		}
	}

	return &Server{
		config: cfg,
		logger: logger,
		router: router,
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.APIHost, s.config.APIPort)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server on " + addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.server.Shutdown(ctx)
}
