package worker

import (
	"context"
	"encoding/json"
	"time"

	"marketsync/internal/config"
	"marketsync/internal/logger"
	"marketsync/internal/models"
	"marketsync/internal/store"

	"github.com/segmentio/kafka-go"
)

// EventProcessor handles one persisted webhook event.
type EventProcessor interface {
	Process(e *models.WebhookEvent) (string, error)
}

// Worker consumes queued webhook event IDs and runs them through the
// processor. Handlers are idempotent, so redelivered messages are safe.
type Worker struct {
	config    *config.Config
	logger    *logger.Logger
	reader    *kafka.Reader
	events    store.EventStore
	processor EventProcessor
}

func New(cfg *config.Config, logger *logger.Logger, events store.EventStore, processor EventProcessor) *Worker {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{cfg.KafkaBrokers},
		GroupID:        "marketsync-worker",
		Topic:          cfg.WebhookQueueTopic,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
	})

	return &Worker{
		config:    cfg,
		logger:    logger,
		reader:    reader,
		events:    events,
		processor: processor,
	}
}

func (w *Worker) Start() {
	w.logger.Info("Worker started, listening for webhook events...")

	for {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		message, err := w.reader.ReadMessage(ctx)
		cancel()

		if err != nil {
			w.logger.Error("Failed to read message: %v", err)
			continue
		}

		var queued queuedEvent
		if err := json.Unmarshal(message.Value, &queued); err != nil {
			w.logger.Error("Failed to parse message: %v", err)
			continue
		}

		event, err := w.events.WebhookEventByID(queued.EventID)
		if err != nil {
			w.logger.Error("Failed to load event %s: %v", queued.EventID, err)
			continue
		}
		if event == nil {
			w.logger.Warn("Queued event %s no longer exists, skipping", queued.EventID)
			continue
		}
		if event.Processed {
			w.logger.Debug("Event %s already processed, skipping", event.ID)
			continue
		}

		if _, err := w.processor.Process(event); err != nil {
			w.logger.Error("Failed to process event %s: %v", event.ID, err)
			continue
		}

		w.logger.Debug("Event %s processed successfully", event.ID)
	}
}

func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.reader.Close()
}
