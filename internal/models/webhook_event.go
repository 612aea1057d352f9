package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventType is the closed set of marketplace push notifications the
// engine understands plus an explicit unsupported variant.
type EventType string

const (
	EventOrderCreated       EventType = "OrderCreated"
	EventOrderStatusChanged EventType = "OrderStatusChanged"
	EventOrderCancelled     EventType = "OrderCancelled"
	EventProductApproved    EventType = "ProductApproved"
	EventProductRejected    EventType = "ProductRejected"
	EventInventoryUpdated   EventType = "InventoryUpdated"
	EventPriceUpdated       EventType = "PriceUpdated"
	EventShipmentCreated    EventType = "ShipmentCreated"
	EventReturnInitiated    EventType = "ReturnInitiated"
	EventUnsupported        EventType = "Unsupported"
)

// ParseEventType maps a wire event type to the closed set. The
// marketplace has delivered both CamelCase and SCREAMING_SNAKE variants
// of the same events, so both spellings are accepted.
func ParseEventType(s string) EventType {
	switch s {
	case "OrderCreated", "ORDER_CREATED", "NewOrder":
		return EventOrderCreated
	case "OrderStatusChanged", "ORDER_STATUS_CHANGED":
		return EventOrderStatusChanged
	case "OrderCancelled", "ORDER_CANCELLED":
		return EventOrderCancelled
	case "ProductApproved", "PRODUCT_APPROVED":
		return EventProductApproved
	case "ProductRejected", "PRODUCT_REJECTED":
		return EventProductRejected
	case "InventoryUpdated", "INVENTORY_UPDATED":
		return EventInventoryUpdated
	case "PriceUpdated", "PRICE_UPDATED":
		return EventPriceUpdated
	case "ShipmentCreated", "SHIPMENT_CREATED":
		return EventShipmentCreated
	case "ReturnInitiated", "RETURN_INITIATED":
		return EventReturnInitiated
	default:
		return EventUnsupported
	}
}

// WebhookEvent is one inbound notification. It is persisted before
// processing so deliveries survive crashes, and mutated exactly once by
// the processor. The engine never deletes events; retention is a
// housekeeping concern outside this core.
type WebhookEvent struct {
	ID           string     `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	EventType    EventType  `json:"event_type" gorm:"not null"`
	Payload      string     `json:"payload" gorm:"not null"`
	ReceivedAt   time.Time  `json:"received_at"`
	Processed    bool       `json:"processed" gorm:"default:false"`
	ProcessedAt  *time.Time `json:"processed_at"`
	Result       *string    `json:"result"`
	ErrorMessage *string    `json:"error_message"`
}

func (e *WebhookEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = time.Now()
	}
	return nil
}
