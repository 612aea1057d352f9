package handlers

import (
	"context"
	"net/http"
	"strconv"

	"marketsync/internal/logger"
	"marketsync/internal/models"
	"marketsync/internal/store"

	"github.com/gin-gonic/gin"
)

// SyncRunner starts one full synchronization pass.
type SyncRunner interface {
	Run(ctx context.Context) (*models.SyncRun, error)
}

type SyncHandler struct {
	locks  store.LockStore
	runs   store.RunStore
	runner SyncRunner
	logger *logger.Logger
}

func NewSyncHandler(locks store.LockStore, runs store.RunStore, runner SyncRunner, logger *logger.Logger) *SyncHandler {
	return &SyncHandler{
		locks:  locks,
		runs:   runs,
		runner: runner,
		logger: logger,
	}
}

func (h *SyncHandler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	runs, err := h.runs.RecentSyncRuns(limit)
	if err != nil {
		h.logger.Error("Failed to fetch sync runs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sync runs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

func (h *SyncHandler) Status(c *gin.Context) {
	lock, err := h.locks.CurrentRunLock()
	if err != nil {
		h.logger.Error("Failed to read run lock: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read sync status"})
		return
	}

	if lock == nil {
		c.JSON(http.StatusOK, gin.H{"running": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"running":     true,
		"owner":       lock.Owner,
		"acquired_at": lock.AcquiredAt,
	})
}

// Trigger starts a sync run in the background. The orchestrator holds
// the real mutual exclusion; the lock check here only gives callers a
// fast 409 instead of a silently skipped run.
func (h *SyncHandler) Trigger(c *gin.Context) {
	lock, err := h.locks.CurrentRunLock()
	if err != nil {
		h.logger.Error("Failed to read run lock: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read sync status"})
		return
	}
	if lock != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "A sync run is already in progress"})
		return
	}

	go func() {
		if _, err := h.runner.Run(context.Background()); err != nil {
			h.logger.Error("Manual sync run failed: %v", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"success": true, "message": "Sync run started"})
}
