package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RunLock is the process-wide mutual exclusion marker for orchestrator
// runs. At most one row exists; a lock older than the maximum run
// duration is treated as abandoned and may be reclaimed.
type RunLock struct {
	ID         int       `json:"id" gorm:"primary_key"`
	Owner      string    `json:"owner" gorm:"not null"`
	AcquiredAt time.Time `json:"acquired_at"`
}

func (RunLock) TableName() string {
	return "run_locks"
}

// SyncRun holds the aggregate statistics persisted after every
// orchestrator run, used by operational alerting.
type SyncRun struct {
	ID                string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ProductsSynced    int       `json:"products_synced"`
	StockUpdated      int       `json:"stock_updated"`
	OrdersSynced      int       `json:"orders_synced"`
	WebhooksProcessed int       `json:"webhooks_processed"`
	Errors            int       `json:"errors"`
	APICalls          int       `json:"api_calls"`
	ExecutionTime     float64   `json:"execution_time"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
}

func (r *SyncRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}
