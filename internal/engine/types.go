package engine

import (
	"context"
	"errors"
	"time"

	"marketsync/internal/marketplace"
	"marketsync/internal/models"
)

var (
	// ErrLockHeld signals that another orchestrator run is active. It is
	// an expected concurrent-run guard, not a failure.
	ErrLockHeld = errors.New("another sync run is active")
	// ErrSyncDisabled and ErrMissingCredentials are precondition
	// failures; the next scheduled invocation re-checks them.
	ErrSyncDisabled       = errors.New("synchronization is disabled")
	ErrMissingCredentials = errors.New("marketplace credentials are not configured")
)

// MarketplaceAPI is the outbound marketplace capability consumed by the
// sync jobs. Every call is preceded by a rate limiter acquisition.
type MarketplaceAPI interface {
	CreateProduct(ctx context.Context, payload marketplace.ProductPayload) (string, error)
	UpdateProduct(ctx context.Context, barcode string, fields marketplace.ProductFields) error
	FetchOrders(ctx context.Context, window marketplace.OrderWindow, page, size int) (*marketplace.OrdersPage, error)
}

// BacklogProcessor drains persisted webhook events; the webhook
// processor implements it.
type BacklogProcessor interface {
	Process(e *models.WebhookEvent) (string, error)
}

// JobStats is the per-item outcome summary of one batch job. Per-entity
// failures are folded in here rather than aborting the batch.
type JobStats struct {
	Processed int
	Synced    int
	Failed    int
	Skipped   int
	APICalls  int
}

func (s *JobStats) add(other JobStats) {
	s.Processed += other.Processed
	s.Synced += other.Synced
	s.Failed += other.Failed
	s.Skipped += other.Skipped
	s.APICalls += other.APICalls
}

// job is one batch sub-job of an orchestrator run. The deadline is a
// cooperative cutoff checked between items; in-flight calls complete.
type job interface {
	Run(ctx context.Context, deadline time.Time) JobStats
}
