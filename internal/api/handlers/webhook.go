package handlers

import (
	"context"
	"errors"
	"net/http"

	"marketsync/internal/logger"
	"marketsync/internal/webhook"

	"github.com/gin-gonic/gin"
)

// EventPublisher hands an accepted event off to the background queue.
// A nil publisher means events are processed inline.
type EventPublisher interface {
	Publish(ctx context.Context, eventID string) error
}

type WebhookHandler struct {
	processor *webhook.Processor
	publisher EventPublisher
	logger    *logger.Logger
}

func NewWebhookHandler(processor *webhook.Processor, publisher EventPublisher, logger *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		processor: processor,
		publisher: publisher,
		logger:    logger,
	}
}

// Receive accepts one marketplace notification. The event is persisted
// before this returns 2xx, so an acknowledged delivery is never lost.
func (h *WebhookHandler) Receive(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Failed to read request body"})
		return
	}

	event, err := h.processor.Accept(payload, c.GetHeader("X-Webhook-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, webhook.ErrBadSignature):
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid signature"})
		case errors.Is(err, webhook.ErrBadPayload):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid payload"})
		default:
			h.logger.Error("Failed to accept webhook: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to store event"})
		}
		return
	}

	if h.publisher != nil {
		if err := h.publisher.Publish(c.Request.Context(), event.ID); err == nil {
			c.JSON(http.StatusAccepted, gin.H{"success": true, "message": "queued", "event_id": event.ID})
			return
		}
		h.logger.Error("Failed to queue event %s, processing inline: %v", event.ID, err)
	}

	// A handler failure is recorded on the event itself; the delivery
	// is still acknowledged so the marketplace does not redeliver.
	result, err := h.processor.Process(event)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "accepted", "event_id": event.ID})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": result, "event_id": event.ID})
}
