package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncState tracks a local entity through the synchronization lifecycle.
type SyncState string

const (
	SyncStateUnsynced SyncState = "UNSYNCED"
	SyncStatePending  SyncState = "PENDING"
	SyncStateSynced   SyncState = "SYNCED"
	SyncStateFailed   SyncState = "FAILED"
	SyncStateSkipped  SyncState = "SKIPPED"
)

// ProductMapping links a local product to its marketplace listing and
// records per-entity sync state. LocalID maps to at most one RemoteID;
// the remote identifier is assigned on the first successful push and
// never reassigned afterwards.
type ProductMapping struct {
	ID              string     `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	LocalID         string     `json:"local_id" gorm:"unique;not null"`
	RemoteID        *string    `json:"remote_id"`
	Barcode         string     `json:"barcode"`
	State           SyncState  `json:"state" gorm:"default:UNSYNCED"`
	LastSyncedAt    *time.Time `json:"last_synced_at"`
	LastStockSyncAt *time.Time `json:"last_stock_sync_at"`
	LastPriceSyncAt *time.Time `json:"last_price_sync_at"`
	LastError       *string    `json:"last_error"`
	Approved        *bool      `json:"approved"`
	RejectionReason *string    `json:"rejection_reason"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (m *ProductMapping) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// HasRemoteID reports whether the mapping has been pushed at least once.
func (m *ProductMapping) HasRemoteID() bool {
	return m.RemoteID != nil && *m.RemoteID != ""
}
