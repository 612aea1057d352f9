package worker

import (
	"context"
	"encoding/json"

	"marketsync/internal/config"
	"marketsync/internal/logger"

	"github.com/segmentio/kafka-go"
)

// queuedEvent is the message body on the webhook topic. Only the event
// ID travels over Kafka; the payload itself lives in the database.
type queuedEvent struct {
	EventID string `json:"event_id"`
}

// Publisher enqueues accepted webhook events for background processing.
type Publisher struct {
	writer *kafka.Writer
	logger *logger.Logger
}

func NewPublisher(cfg *config.Config, logger *logger.Logger) *Publisher {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.KafkaBrokers),
		Topic:    cfg.WebhookQueueTopic,
		Balancer: &kafka.LeastBytes{},
	}

	return &Publisher{
		writer: writer,
		logger: logger,
	}
}

func (p *Publisher) Publish(ctx context.Context, eventID string) error {
	value, err := json.Marshal(queuedEvent{EventID: eventID})
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(eventID),
		Value: value,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
