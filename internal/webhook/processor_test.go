package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"marketsync/internal/logger"
	"marketsync/internal/models"
	"marketsync/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-webhook-secret"

type fakeStore struct {
	orders    map[string]*models.Order
	events    map[string]*models.WebhookEvent
	approvals map[string]bool
	reasons   map[string]string
	stock     map[string]int
	prices    map[string][2]float64
	saveErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:    map[string]*models.Order{},
		events:    map[string]*models.WebhookEvent{},
		approvals: map[string]bool{},
		reasons:   map[string]string{},
		stock:     map[string]int{},
		prices:    map[string][2]float64{},
	}
}

func (f *fakeStore) ProductCandidates(limit int, staleAfter time.Duration) ([]store.Candidate, error) {
	return nil, nil
}

func (f *fakeStore) StockCandidates(limit int, staleAfter time.Duration) ([]store.Candidate, error) {
	return nil, nil
}

func (f *fakeStore) EnsureMapping(localID string) (*models.ProductMapping, error) {
	return &models.ProductMapping{LocalID: localID}, nil
}

func (f *fakeStore) SetMappingState(localID string, state models.SyncState, message string) error {
	return nil
}

func (f *fakeStore) MarkSynced(localID, remoteID, barcode string, at time.Time) error {
	return nil
}

func (f *fakeStore) TouchStockSync(localID string, at time.Time) error {
	return nil
}

func (f *fakeStore) SetMappingApproval(barcode string, approved bool, reason string) error {
	f.approvals[barcode] = approved
	if reason != "" {
		f.reasons[barcode] = reason
	}
	return nil
}

func (f *fakeStore) UpdateProductStock(barcode string, quantity int) error {
	f.stock[barcode] = quantity
	return nil
}

func (f *fakeStore) UpdateProductPrice(barcode string, listPrice, salePrice float64) error {
	f.prices[barcode] = [2]float64{listPrice, salePrice}
	return nil
}

func (f *fakeStore) OrderByNumber(number string) (*models.Order, error) {
	return f.orders[number], nil
}

func (f *fakeStore) UpsertOrder(o *models.Order) error {
	if existing, ok := f.orders[o.OrderNumber]; ok {
		existing.Status = o.Status
		existing.LocalStatusID = o.LocalStatusID
		return nil
	}
	f.orders[o.OrderNumber] = o
	return nil
}

func (f *fakeStore) UpdateOrderStatus(number, status string, localStatusID int) (bool, error) {
	o, ok := f.orders[number]
	if !ok {
		return false, nil
	}
	o.Status = status
	o.LocalStatusID = localStatusID
	return true, nil
}

func (f *fakeStore) SetOrderTracking(number, trackingNo, cargoProvider string) (bool, error) {
	o, ok := f.orders[number]
	if !ok {
		return false, nil
	}
	o.TrackingNo = &trackingNo
	o.CargoProvider = &cargoProvider
	return true, nil
}

func (f *fakeStore) SaveWebhookEvent(e *models.WebhookEvent) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if e.ID == "" {
		e.ID = "ev-test"
	}
	copied := *e
	f.events[e.ID] = &copied
	return nil
}

func (f *fakeStore) WebhookEventByID(id string) (*models.WebhookEvent, error) {
	return f.events[id], nil
}

func (f *fakeStore) WebhookBacklog(maxAge time.Duration, limit int) ([]models.WebhookEvent, error) {
	var out []models.WebhookEvent
	for _, e := range f.events {
		if !e.Processed {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkEventProcessed(id, result, errMessage string) error {
	e, ok := f.events[id]
	if !ok {
		return nil
	}
	now := time.Now()
	e.Processed = true
	e.ProcessedAt = &now
	if result != "" {
		e.Result = &result
	}
	if errMessage != "" {
		e.ErrorMessage = &errMessage
	}
	return nil
}

func newTestProcessor(st *fakeStore) *Processor {
	return NewProcessor(st, st, st, testSecret, logger.New("error"))
}

func sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func envelope(t *testing.T, eventType string, data EventData) []byte {
	t.Helper()
	raw, err := json.Marshal(Envelope{EventType: eventType, Data: data})
	require.NoError(t, err)
	return raw
}

func acceptAndProcess(t *testing.T, p *Processor, payload []byte) (string, error) {
	t.Helper()
	event, err := p.Accept(payload, sign(payload))
	require.NoError(t, err)
	return p.Process(event)
}

func TestAcceptRejectsBadSignature(t *testing.T) {
	st := newFakeStore()
	p := newTestProcessor(st)

	payload := envelope(t, "OrderCreated", EventData{OrderNumber: "ORD-1"})
	_, err := p.Accept(payload, "deadbeef")

	assert.ErrorIs(t, err, ErrBadSignature)
	// A rejected delivery leaves no trace.
	assert.Empty(t, st.events)
}

func TestAcceptRejectsMalformedPayload(t *testing.T) {
	st := newFakeStore()
	p := newTestProcessor(st)

	payload := []byte("{not json")
	_, err := p.Accept(payload, sign(payload))

	assert.ErrorIs(t, err, ErrBadPayload)
	assert.Empty(t, st.events)
}

func TestAcceptPersistsBeforeProcessing(t *testing.T) {
	st := newFakeStore()
	p := newTestProcessor(st)

	payload := envelope(t, "OrderCreated", EventData{OrderNumber: "ORD-1"})
	event, err := p.Accept(payload, sign(payload))
	require.NoError(t, err)

	stored := st.events[event.ID]
	require.NotNil(t, stored)
	assert.Equal(t, models.EventOrderCreated, stored.EventType)
	assert.False(t, stored.Processed)
}

func TestOrderCreatedIsIdempotent(t *testing.T) {
	st := newFakeStore()
	p := newTestProcessor(st)

	data := EventData{
		OrderNumber:       "ORD-1",
		Status:            "Created",
		GrossAmount:       120.00,
		CustomerFirstName: "Ada",
		CustomerLastName:  "Lovelace",
		OrderDate:         time.Now().UnixMilli(),
	}
	payload := envelope(t, "OrderCreated", data)

	result, err := acceptAndProcess(t, p, payload)
	require.NoError(t, err)
	assert.Contains(t, result, "created")

	// A duplicate delivery finds the existing order.
	result, err = acceptAndProcess(t, p, payload)
	require.NoError(t, err)
	assert.Contains(t, result, "already exists")

	assert.Len(t, st.orders, 1)
	assert.Equal(t, "Ada Lovelace", st.orders["ORD-1"].CustomerName)
}

func TestOrderStatusChangedMapsLocalStatus(t *testing.T) {
	st := newFakeStore()
	st.orders["ORD-1"] = &models.Order{OrderNumber: "ORD-1", Status: "Created", LocalStatusID: 1}
	p := newTestProcessor(st)

	payload := envelope(t, "ORDER_STATUS_CHANGED", EventData{OrderNumber: "ORD-1", Status: "Delivered"})
	_, err := acceptAndProcess(t, p, payload)
	require.NoError(t, err)

	assert.Equal(t, "Delivered", st.orders["ORD-1"].Status)
	assert.Equal(t, 5, st.orders["ORD-1"].LocalStatusID)
}

func TestOrderStatusChangeForUnknownOrderIsNoop(t *testing.T) {
	st := newFakeStore()
	p := newTestProcessor(st)

	payload := envelope(t, "OrderStatusChanged", EventData{OrderNumber: "ORD-404", Status: "Shipped"})
	result, err := acceptAndProcess(t, p, payload)

	require.NoError(t, err)
	assert.Contains(t, result, "not found")
	assert.Empty(t, st.orders)
}

func TestOrderCancelledSetsCancelledStatus(t *testing.T) {
	st := newFakeStore()
	st.orders["ORD-1"] = &models.Order{OrderNumber: "ORD-1", Status: "Created", LocalStatusID: 1}
	p := newTestProcessor(st)

	payload := envelope(t, "OrderCancelled", EventData{OrderNumber: "ORD-1"})
	_, err := acceptAndProcess(t, p, payload)
	require.NoError(t, err)

	assert.Equal(t, "Cancelled", st.orders["ORD-1"].Status)
	assert.Equal(t, 7, st.orders["ORD-1"].LocalStatusID)
}

func TestReturnInitiatedSetsReturnStatus(t *testing.T) {
	st := newFakeStore()
	st.orders["ORD-1"] = &models.Order{OrderNumber: "ORD-1", Status: "Delivered", LocalStatusID: 5}
	p := newTestProcessor(st)

	payload := envelope(t, "RETURN_INITIATED", EventData{OrderNumber: "ORD-1", ReturnReason: "damaged"})
	_, err := acceptAndProcess(t, p, payload)
	require.NoError(t, err)

	assert.Equal(t, "Return Initiated", st.orders["ORD-1"].Status)
	assert.Equal(t, 11, st.orders["ORD-1"].LocalStatusID)
}

func TestProductApprovalAndRejection(t *testing.T) {
	st := newFakeStore()
	p := newTestProcessor(st)

	payload := envelope(t, "ProductApproved", EventData{Barcode: "SKU-1"})
	_, err := acceptAndProcess(t, p, payload)
	require.NoError(t, err)
	assert.True(t, st.approvals["SKU-1"])

	payload = envelope(t, "PRODUCT_REJECTED", EventData{Barcode: "SKU-2", RejectionReason: "missing images"})
	_, err = acceptAndProcess(t, p, payload)
	require.NoError(t, err)
	assert.False(t, st.approvals["SKU-2"])
	assert.Equal(t, "missing images", st.reasons["SKU-2"])
}

func TestInventoryAndPriceUpdates(t *testing.T) {
	st := newFakeStore()
	p := newTestProcessor(st)

	payload := envelope(t, "InventoryUpdated", EventData{Barcode: "SKU-1", Quantity: 42})
	_, err := acceptAndProcess(t, p, payload)
	require.NoError(t, err)
	assert.Equal(t, 42, st.stock["SKU-1"])

	payload = envelope(t, "PriceUpdated", EventData{Barcode: "SKU-1", ListPrice: 29.99, SalePrice: 24.99})
	_, err = acceptAndProcess(t, p, payload)
	require.NoError(t, err)
	assert.Equal(t, [2]float64{29.99, 24.99}, st.prices["SKU-1"])
}

func TestShipmentCreatedStoresTrackingAndShips(t *testing.T) {
	st := newFakeStore()
	st.orders["ORD-1"] = &models.Order{OrderNumber: "ORD-1", Status: "Approved", LocalStatusID: 2}
	p := newTestProcessor(st)

	payload := envelope(t, "ShipmentCreated", EventData{
		OrderNumber:    "ORD-1",
		TrackingNumber: "TRACK-7",
		CargoProvider:  "FastCargo",
	})
	_, err := acceptAndProcess(t, p, payload)
	require.NoError(t, err)

	order := st.orders["ORD-1"]
	require.NotNil(t, order.TrackingNo)
	assert.Equal(t, "TRACK-7", *order.TrackingNo)
	assert.Equal(t, "Shipped", order.Status)
	assert.Equal(t, 3, order.LocalStatusID)
}

func TestUnsupportedEventIsMarkedProcessed(t *testing.T) {
	st := newFakeStore()
	p := newTestProcessor(st)

	payload := envelope(t, "SomethingNew", EventData{})
	event, err := p.Accept(payload, sign(payload))
	require.NoError(t, err)
	assert.Equal(t, models.EventUnsupported, event.EventType)

	result, err := p.Process(event)
	require.NoError(t, err)
	assert.Equal(t, "unsupported", result)

	stored := st.events[event.ID]
	assert.True(t, stored.Processed)
}

func TestFailingEventIsMarkedProcessedWithError(t *testing.T) {
	st := newFakeStore()
	p := newTestProcessor(st)

	// Missing order number makes the handler fail.
	payload := envelope(t, "OrderCreated", EventData{})
	event, err := p.Accept(payload, sign(payload))
	require.NoError(t, err)

	_, err = p.Process(event)
	require.Error(t, err)

	// Poison events are recorded, not retried.
	stored := st.events[event.ID]
	assert.True(t, stored.Processed)
	require.NotNil(t, stored.ErrorMessage)
	assert.Contains(t, *stored.ErrorMessage, "order number")
}

func TestProcessIsSingleShot(t *testing.T) {
	st := newFakeStore()
	p := newTestProcessor(st)

	payload := envelope(t, "InventoryUpdated", EventData{Barcode: "SKU-1", Quantity: 5})
	event, err := p.Accept(payload, sign(payload))
	require.NoError(t, err)

	_, err = p.Process(event)
	require.NoError(t, err)

	event.Processed = true
	result, err := p.Process(event)
	require.NoError(t, err)
	assert.Equal(t, "already processed", result)
}

func TestVerifySignatureAcceptsUppercaseHex(t *testing.T) {
	p := newTestProcessor(newFakeStore())

	payload := []byte(`{"eventType":"OrderCreated"}`)
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(payload)

	upper := strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
	assert.True(t, p.VerifySignature(payload, upper))
}
