package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"marketsync/internal/logger"
	"marketsync/internal/models"
	"marketsync/internal/store"
)

var (
	// ErrBadSignature means the HMAC check failed and the payload was
	// discarded without being persisted.
	ErrBadSignature = errors.New("webhook signature verification failed")
	// ErrBadPayload means the body is not a parseable webhook envelope.
	ErrBadPayload = errors.New("webhook payload is not valid JSON")
)

// Envelope is the outer shape of every marketplace notification.
type Envelope struct {
	EventType string    `json:"eventType"`
	Data      EventData `json:"data"`
}

// EventData is the union of fields the supported event types carry.
// Each handler reads only the fields its event defines.
type EventData struct {
	OrderNumber       string  `json:"orderNumber"`
	Status            string  `json:"status"`
	GrossAmount       float64 `json:"grossAmount"`
	TotalDiscount     float64 `json:"totalDiscount"`
	CustomerFirstName string  `json:"customerFirstName"`
	CustomerLastName  string  `json:"customerLastName"`
	CustomerEmail     string  `json:"customerEmail"`
	OrderDate         int64   `json:"orderDate"`
	TrackingNumber    string  `json:"trackingNumber"`
	CargoProvider     string  `json:"cargoProviderName"`
	Barcode           string  `json:"barcode"`
	Quantity          int     `json:"quantity"`
	ListPrice         float64 `json:"listPrice"`
	SalePrice         float64 `json:"salePrice"`
	RejectionReason   string  `json:"rejectionReason"`
	ReturnReason      string  `json:"returnReason"`
}

// Processor verifies, persists, and dispatches inbound marketplace
// notifications. Every handler is idempotent, so a replayed or
// re-delivered event converges to the same local state.
type Processor struct {
	products store.ProductStore
	orders   store.OrderStore
	events   store.EventStore
	secret   string
	logger   *logger.Logger
}

func NewProcessor(products store.ProductStore, orders store.OrderStore, events store.EventStore, secret string, logger *logger.Logger) *Processor {
	return &Processor{
		products: products,
		orders:   orders,
		events:   events,
		secret:   secret,
		logger:   logger,
	}
}

// VerifySignature checks the hex-encoded HMAC-SHA256 of the raw body.
// An empty configured secret disables verification.
func (p *Processor) VerifySignature(payload []byte, signature string) bool {
	if p.secret == "" {
		return true
	}
	mac := hmac.New(sha256.New, []byte(p.secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// Accept verifies and persists one delivery. The event is durable once
// Accept returns; processing happens separately so a handler crash
// never loses the notification.
func (p *Processor) Accept(payload []byte, signature string) (*models.WebhookEvent, error) {
	if !p.VerifySignature(payload, signature) {
		return nil, ErrBadSignature
	}

	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, ErrBadPayload
	}

	event := &models.WebhookEvent{
		EventType: models.ParseEventType(env.EventType),
		Payload:   string(payload),
	}
	if err := p.events.SaveWebhookEvent(event); err != nil {
		return nil, fmt.Errorf("failed to persist webhook event: %w", err)
	}

	p.logger.Info("webhook event %s accepted (type=%s)", event.ID, event.EventType)
	return event, nil
}

// Process dispatches one persisted event to its handler and marks it
// processed exactly once, whether the handler succeeded or not. A
// failing event is recorded with its error and never retried.
func (p *Processor) Process(e *models.WebhookEvent) (string, error) {
	if e.Processed {
		return "already processed", nil
	}

	result, err := p.dispatch(e)
	errMessage := ""
	if err != nil {
		errMessage = err.Error()
		p.logger.Error("webhook event %s failed (type=%s): %v", e.ID, e.EventType, err)
	}

	if markErr := p.events.MarkEventProcessed(e.ID, result, errMessage); markErr != nil {
		p.logger.Error("failed to mark webhook event %s processed: %v", e.ID, markErr)
		if err == nil {
			err = markErr
		}
	}

	return result, err
}

func (p *Processor) dispatch(e *models.WebhookEvent) (string, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(e.Payload), &env); err != nil {
		return "", ErrBadPayload
	}
	data := env.Data

	switch e.EventType {
	case models.EventOrderCreated:
		return p.handleOrderCreated(data)
	case models.EventOrderStatusChanged:
		return p.handleOrderStatusChanged(data)
	case models.EventOrderCancelled:
		return p.handleOrderStatus(data.OrderNumber, "Cancelled")
	case models.EventProductApproved:
		return p.handleProductApproved(data)
	case models.EventProductRejected:
		return p.handleProductRejected(data)
	case models.EventInventoryUpdated:
		return p.handleInventoryUpdated(data)
	case models.EventPriceUpdated:
		return p.handlePriceUpdated(data)
	case models.EventShipmentCreated:
		return p.handleShipmentCreated(data)
	case models.EventReturnInitiated:
		return p.handleOrderStatus(data.OrderNumber, "Return Initiated")
	default:
		p.logger.Warn("webhook event %s has unsupported type %q", e.ID, e.EventType)
		return "unsupported", nil
	}
}

// handleOrderCreated inserts the order if it does not exist yet. A
// duplicate delivery finds the existing row and changes nothing.
func (p *Processor) handleOrderCreated(data EventData) (string, error) {
	if data.OrderNumber == "" {
		return "", fmt.Errorf("order created event missing order number")
	}

	existing, err := p.orders.OrderByNumber(data.OrderNumber)
	if err != nil {
		return "", fmt.Errorf("failed to look up order %s: %w", data.OrderNumber, err)
	}
	if existing != nil {
		return fmt.Sprintf("order %s already exists", data.OrderNumber), nil
	}

	status := data.Status
	if status == "" {
		status = "Created"
	}
	orderDate := time.Now()
	if data.OrderDate > 0 {
		orderDate = time.UnixMilli(data.OrderDate)
	}

	order := &models.Order{
		OrderNumber:   data.OrderNumber,
		Status:        status,
		GrossAmount:   data.GrossAmount,
		TotalDiscount: data.TotalDiscount,
		CustomerName:  strings.TrimSpace(data.CustomerFirstName + " " + data.CustomerLastName),
		CustomerEmail: data.CustomerEmail,
		OrderDate:     orderDate,
		LocalStatusID: models.LocalStatusID(status),
	}
	if err := p.orders.UpsertOrder(order); err != nil {
		return "", fmt.Errorf("failed to create order %s: %w", data.OrderNumber, err)
	}

	return fmt.Sprintf("order %s created", data.OrderNumber), nil
}

func (p *Processor) handleOrderStatusChanged(data EventData) (string, error) {
	if data.Status == "" {
		return "", fmt.Errorf("order status event missing status")
	}
	return p.handleOrderStatus(data.OrderNumber, data.Status)
}

// handleOrderStatus moves an existing order to the given status. An
// unknown order number is a no-op, not an error; the order sync pull
// will materialize it with the current status on the next run.
func (p *Processor) handleOrderStatus(orderNumber, status string) (string, error) {
	if orderNumber == "" {
		return "", fmt.Errorf("order event missing order number")
	}

	updated, err := p.orders.UpdateOrderStatus(orderNumber, status, models.LocalStatusID(status))
	if err != nil {
		return "", fmt.Errorf("failed to update order %s: %w", orderNumber, err)
	}
	if !updated {
		return fmt.Sprintf("order %s not found", orderNumber), nil
	}
	return fmt.Sprintf("order %s set to %s", orderNumber, status), nil
}

func (p *Processor) handleProductApproved(data EventData) (string, error) {
	if data.Barcode == "" {
		return "", fmt.Errorf("product approved event missing barcode")
	}
	if err := p.products.SetMappingApproval(data.Barcode, true, ""); err != nil {
		return "", fmt.Errorf("failed to approve product %s: %w", data.Barcode, err)
	}
	return fmt.Sprintf("product %s approved", data.Barcode), nil
}

func (p *Processor) handleProductRejected(data EventData) (string, error) {
	if data.Barcode == "" {
		return "", fmt.Errorf("product rejected event missing barcode")
	}
	if err := p.products.SetMappingApproval(data.Barcode, false, data.RejectionReason); err != nil {
		return "", fmt.Errorf("failed to reject product %s: %w", data.Barcode, err)
	}
	return fmt.Sprintf("product %s rejected", data.Barcode), nil
}

func (p *Processor) handleInventoryUpdated(data EventData) (string, error) {
	if data.Barcode == "" {
		return "", fmt.Errorf("inventory event missing barcode")
	}
	if err := p.products.UpdateProductStock(data.Barcode, data.Quantity); err != nil {
		return "", fmt.Errorf("failed to update stock for %s: %w", data.Barcode, err)
	}
	return fmt.Sprintf("product %s stock set to %d", data.Barcode, data.Quantity), nil
}

func (p *Processor) handlePriceUpdated(data EventData) (string, error) {
	if data.Barcode == "" {
		return "", fmt.Errorf("price event missing barcode")
	}
	if err := p.products.UpdateProductPrice(data.Barcode, data.ListPrice, data.SalePrice); err != nil {
		return "", fmt.Errorf("failed to update price for %s: %w", data.Barcode, err)
	}
	return fmt.Sprintf("product %s price updated", data.Barcode), nil
}

func (p *Processor) handleShipmentCreated(data EventData) (string, error) {
	if data.OrderNumber == "" {
		return "", fmt.Errorf("shipment event missing order number")
	}

	updated, err := p.orders.SetOrderTracking(data.OrderNumber, data.TrackingNumber, data.CargoProvider)
	if err != nil {
		return "", fmt.Errorf("failed to set tracking on order %s: %w", data.OrderNumber, err)
	}
	if !updated {
		return fmt.Sprintf("order %s not found", data.OrderNumber), nil
	}

	if _, err := p.orders.UpdateOrderStatus(data.OrderNumber, "Shipped", models.LocalStatusID("Shipped")); err != nil {
		return "", fmt.Errorf("failed to mark order %s shipped: %w", data.OrderNumber, err)
	}
	return fmt.Sprintf("order %s shipped via %s", data.OrderNumber, data.CargoProvider), nil
}
