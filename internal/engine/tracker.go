package engine

import (
	"time"

	"marketsync/internal/logger"
	"marketsync/internal/models"
	"marketsync/internal/store"
)

// Tracker records per-entity sync state transitions. It is the single
// writer of mapping state for the batch jobs.
type Tracker struct {
	store  store.ProductStore
	logger *logger.Logger
}

func NewTracker(st store.ProductStore, logger *logger.Logger) *Tracker {
	return &Tracker{store: st, logger: logger}
}

// MarkPending selects an entity for the current run, creating its
// mapping on first sight.
func (t *Tracker) MarkPending(localID string) error {
	if _, err := t.store.EnsureMapping(localID); err != nil {
		return err
	}
	return t.store.SetMappingState(localID, models.SyncStatePending, "")
}

// MarkSynced records a successful push. The remote identifier is only
// stored on first assignment; later calls never reassign it.
func (t *Tracker) MarkSynced(localID, remoteID, barcode string) error {
	return t.store.MarkSynced(localID, remoteID, barcode, time.Now())
}

// MarkFailed records the error message; the entity stays eligible for
// retry on the next run.
func (t *Tracker) MarkFailed(localID, message string) error {
	return t.store.SetMappingState(localID, models.SyncStateFailed, message)
}

// MarkSkipped records a business-rule exclusion.
func (t *Tracker) MarkSkipped(localID, reason string) error {
	if _, err := t.store.EnsureMapping(localID); err != nil {
		return err
	}
	return t.store.SetMappingState(localID, models.SyncStateSkipped, reason)
}

// TouchStockSync stamps a completed stock/price refresh.
func (t *Tracker) TouchStockSync(localID string) error {
	return t.store.TouchStockSync(localID, time.Now())
}
