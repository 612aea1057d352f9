package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketsync/internal/logger"
	"marketsync/internal/models"
	"marketsync/internal/store"
	"marketsync/internal/webhook"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-test-secret"

// handlerStore is the minimal persistence fake the webhook processor
// touches from these handler tests.
type handlerStore struct {
	orders map[string]*models.Order
	events map[string]*models.WebhookEvent
}

func newHandlerStore() *handlerStore {
	return &handlerStore{
		orders: map[string]*models.Order{},
		events: map[string]*models.WebhookEvent{},
	}
}

func (s *handlerStore) ProductCandidates(limit int, staleAfter time.Duration) ([]store.Candidate, error) {
	return nil, nil
}

func (s *handlerStore) StockCandidates(limit int, staleAfter time.Duration) ([]store.Candidate, error) {
	return nil, nil
}

func (s *handlerStore) EnsureMapping(localID string) (*models.ProductMapping, error) {
	return &models.ProductMapping{LocalID: localID}, nil
}

func (s *handlerStore) SetMappingState(localID string, state models.SyncState, message string) error {
	return nil
}

func (s *handlerStore) MarkSynced(localID, remoteID, barcode string, at time.Time) error {
	return nil
}

func (s *handlerStore) TouchStockSync(localID string, at time.Time) error {
	return nil
}

func (s *handlerStore) SetMappingApproval(barcode string, approved bool, reason string) error {
	return nil
}

func (s *handlerStore) UpdateProductStock(barcode string, quantity int) error {
	return nil
}

func (s *handlerStore) UpdateProductPrice(barcode string, listPrice, salePrice float64) error {
	return nil
}

func (s *handlerStore) OrderByNumber(number string) (*models.Order, error) {
	return s.orders[number], nil
}

func (s *handlerStore) UpsertOrder(o *models.Order) error {
	s.orders[o.OrderNumber] = o
	return nil
}

func (s *handlerStore) UpdateOrderStatus(number, status string, localStatusID int) (bool, error) {
	o, ok := s.orders[number]
	if !ok {
		return false, nil
	}
	o.Status = status
	o.LocalStatusID = localStatusID
	return true, nil
}

func (s *handlerStore) SetOrderTracking(number, trackingNo, cargoProvider string) (bool, error) {
	_, ok := s.orders[number]
	return ok, nil
}

func (s *handlerStore) SaveWebhookEvent(e *models.WebhookEvent) error {
	if e.ID == "" {
		e.ID = "ev-handler"
	}
	s.events[e.ID] = e
	return nil
}

func (s *handlerStore) WebhookEventByID(id string) (*models.WebhookEvent, error) {
	return s.events[id], nil
}

func (s *handlerStore) WebhookBacklog(maxAge time.Duration, limit int) ([]models.WebhookEvent, error) {
	return nil, nil
}

func (s *handlerStore) MarkEventProcessed(id, result, errMessage string) error {
	if e, ok := s.events[id]; ok {
		e.Processed = true
	}
	return nil
}

type recordingPublisher struct {
	published []string
	err       error
}

func (p *recordingPublisher) Publish(ctx context.Context, eventID string) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, eventID)
	return nil
}

func newWebhookRouter(st *handlerStore, publisher EventPublisher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.New("error")
	processor := webhook.NewProcessor(st, st, st, testSecret, log)
	handler := NewWebhookHandler(processor, publisher, log)

	router := gin.New()
	router.POST("/api/v1/webhooks/marketplace", handler.Receive)
	return router
}

func sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(router *gin.Engine, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/marketplace", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", signature)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestWebhookEndpointAcceptsValidDelivery(t *testing.T) {
	st := newHandlerStore()
	router := newWebhookRouter(st, nil)

	payload := []byte(`{"eventType":"OrderCreated","data":{"orderNumber":"ORD-1","status":"Created","grossAmount":10.5}}`)
	w := postWebhook(router, payload, sign(payload))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, st.orders, 1)
	require.Len(t, st.events, 1)
	for _, e := range st.events {
		assert.True(t, e.Processed)
	}
}

func TestWebhookEndpointRejectsBadSignature(t *testing.T) {
	st := newHandlerStore()
	router := newWebhookRouter(st, nil)

	payload := []byte(`{"eventType":"OrderCreated","data":{"orderNumber":"ORD-1"}}`)
	w := postWebhook(router, payload, "bad-signature")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, st.events)
	assert.Empty(t, st.orders)
}

func TestWebhookEndpointRejectsMalformedBody(t *testing.T) {
	st := newHandlerStore()
	router := newWebhookRouter(st, nil)

	payload := []byte(`not-json`)
	w := postWebhook(router, payload, sign(payload))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, st.events)
}

func TestWebhookEndpointQueuesWhenPublisherConfigured(t *testing.T) {
	st := newHandlerStore()
	publisher := &recordingPublisher{}
	router := newWebhookRouter(st, publisher)

	payload := []byte(`{"eventType":"OrderCreated","data":{"orderNumber":"ORD-1"}}`)
	w := postWebhook(router, payload, sign(payload))

	assert.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, publisher.published, 1)
	// Queued events are persisted but not yet processed.
	for _, e := range st.events {
		assert.False(t, e.Processed)
	}
	assert.Empty(t, st.orders)
}

func TestWebhookEndpointFallsBackWhenQueueFails(t *testing.T) {
	st := newHandlerStore()
	publisher := &recordingPublisher{err: errors.New("broker down")}
	router := newWebhookRouter(st, publisher)

	payload := []byte(`{"eventType":"OrderCreated","data":{"orderNumber":"ORD-1","status":"Created"}}`)
	w := postWebhook(router, payload, sign(payload))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, st.orders, 1)
}
