package store

import (
	"time"

	"marketsync/internal/models"
)

// Candidate is one local product selected for a sync run together with
// its marketplace mapping (nil when the product was never pushed).
type Candidate struct {
	Product models.Product
	Mapping *models.ProductMapping
}

// ProductStore covers catalog reads and per-entity sync bookkeeping.
type ProductStore interface {
	// ProductCandidates returns a bounded page of products whose state is
	// UNSYNCED/FAILED, that have no mapping yet, or whose last sync is
	// older than staleAfter, most recently modified first.
	ProductCandidates(limit int, staleAfter time.Duration) ([]Candidate, error)
	// StockCandidates returns listed products whose stock/price sync is
	// older than staleAfter.
	StockCandidates(limit int, staleAfter time.Duration) ([]Candidate, error)
	EnsureMapping(localID string) (*models.ProductMapping, error)
	SetMappingState(localID string, state models.SyncState, message string) error
	// MarkSynced sets the state to SYNCED and records the remote
	// identifier. An already-assigned remote identifier is never
	// overwritten.
	MarkSynced(localID, remoteID, barcode string, at time.Time) error
	TouchStockSync(localID string, at time.Time) error
	SetMappingApproval(barcode string, approved bool, reason string) error
	UpdateProductStock(barcode string, quantity int) error
	UpdateProductPrice(barcode string, listPrice, salePrice float64) error
}

// OrderStore covers pulled marketplace orders, keyed by order number.
type OrderStore interface {
	OrderByNumber(number string) (*models.Order, error)
	UpsertOrder(o *models.Order) error
	// UpdateOrderStatus updates the order by number; it reports false
	// when no such order exists.
	UpdateOrderStatus(number, status string, localStatusID int) (bool, error)
	SetOrderTracking(number, trackingNo, cargoProvider string) (bool, error)
}

// EventStore persists inbound webhook events and the processing backlog.
type EventStore interface {
	SaveWebhookEvent(e *models.WebhookEvent) error
	WebhookEventByID(id string) (*models.WebhookEvent, error)
	// WebhookBacklog returns unprocessed events no older than maxAge,
	// oldest first.
	WebhookBacklog(maxAge time.Duration, limit int) ([]models.WebhookEvent, error)
	MarkEventProcessed(id, result, errMessage string) error
}

// LockStore is the mutual-exclusion primitive guarding orchestrator runs.
type LockStore interface {
	// AcquireRunLock atomically claims the run lock. A held lock older
	// than staleAfter is treated as abandoned and reclaimed.
	AcquireRunLock(owner string, staleAfter time.Duration) (bool, error)
	ReleaseRunLock(owner string) error
	CurrentRunLock() (*models.RunLock, error)
}

// RunStore persists per-run statistics.
type RunStore interface {
	SaveSyncRun(r *models.SyncRun) error
	RecentSyncRuns(limit int) ([]models.SyncRun, error)
}

// Store is the full persistence capability consumed by the engine.
type Store interface {
	ProductStore
	OrderStore
	EventStore
	LockStore
	RunStore
}
