package engine

import (
	"context"
	"fmt"
	"time"

	"marketsync/internal/config"
	"marketsync/internal/logger"
	"marketsync/internal/models"
	"marketsync/internal/ratelimit"
	"marketsync/internal/store"

	"github.com/google/uuid"
)

// runStores is the slice of the Store capability the orchestrator
// itself touches; the jobs carry their own.
type runStores interface {
	store.LockStore
	store.EventStore
	store.RunStore
}

// Orchestrator is the top-level sync entry point. One run acquires the
// run lock, validates preconditions, executes the batch jobs and the
// webhook backlog in sequence, persists run statistics, and releases
// the lock on every exit path.
type Orchestrator struct {
	cfg       *config.Config
	logger    *logger.Logger
	store     runStores
	products  job
	orders    job
	stock     job
	processor BacklogProcessor
	owner     string
}

func NewOrchestrator(cfg *config.Config, logger *logger.Logger, st store.Store, client MarketplaceAPI, processor BacklogProcessor) *Orchestrator {
	limiter := ratelimit.New(cfg.RateLimitPerMinute, cfg.RateLimitPerHour, cfg.RateLimitCallDelay, cfg.RateLimitMaxWait)
	tracker := NewTracker(st, logger)

	return &Orchestrator{
		cfg:       cfg,
		logger:    logger,
		store:     st,
		products:  NewProductSyncJob(st, tracker, client, limiter, logger, cfg.SyncBatchSize, cfg.ProductStaleAfter),
		orders:    NewOrderSyncJob(st, client, limiter, logger, cfg.OrderLookback, cfg.SyncBatchSize),
		stock:     NewStockSyncJob(st, tracker, client, limiter, logger, cfg.SyncBatchSize, cfg.StockStaleAfter),
		processor: processor,
		owner:     uuid.New().String(),
	}
}

// Run executes one full synchronization pass. ErrLockHeld means another
// run is active and nothing was touched; precondition errors mean the
// run stopped before doing any work.
func (o *Orchestrator) Run(ctx context.Context) (*models.SyncRun, error) {
	start := time.Now()

	acquired, err := o.store.AcquireRunLock(o.owner, o.cfg.SyncMaxRunDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !acquired {
		o.logger.Info("sync run skipped: %v", ErrLockHeld)
		return nil, ErrLockHeld
	}
	defer func() {
		if err := o.store.ReleaseRunLock(o.owner); err != nil {
			o.logger.Error("failed to release run lock: %v", err)
		}
	}()

	if !o.cfg.SyncEnabled {
		o.logger.Warn("sync run skipped: %v", ErrSyncDisabled)
		return nil, ErrSyncDisabled
	}
	if !o.cfg.CredentialsPresent() {
		o.logger.Error("sync run skipped: %v", ErrMissingCredentials)
		return nil, ErrMissingCredentials
	}

	o.logger.Info("sync run started")
	deadline := start.Add(o.cfg.SyncMaxRunDuration)

	var total JobStats
	productStats := o.runJob(ctx, "product sync", deadline, o.products)
	orderStats := o.runJob(ctx, "order sync", deadline, o.orders)
	stockStats := o.runJob(ctx, "stock sync", deadline, o.stock)
	total.add(productStats)
	total.add(orderStats)
	total.add(stockStats)

	webhooksProcessed, webhookErrors := o.drainBacklog(deadline)

	run := &models.SyncRun{
		ProductsSynced:    productStats.Synced,
		OrdersSynced:      orderStats.Synced,
		StockUpdated:      stockStats.Synced,
		WebhooksProcessed: webhooksProcessed,
		Errors:            total.Failed + webhookErrors,
		APICalls:          total.APICalls,
		ExecutionTime:     time.Since(start).Seconds(),
		StartedAt:         start,
		FinishedAt:        time.Now(),
	}

	if err := o.store.SaveSyncRun(run); err != nil {
		o.logger.Error("failed to persist sync run statistics: %v", err)
	}

	o.alert(run)

	o.logger.Info("sync run completed: products=%d orders=%d stock=%d webhooks=%d errors=%d api_calls=%d time=%.2fs",
		run.ProductsSynced, run.OrdersSynced, run.StockUpdated,
		run.WebhooksProcessed, run.Errors, run.APICalls, run.ExecutionTime)

	return run, nil
}

// runJob executes one sub-job behind a panic boundary; a failing job is
// logged and counted but never aborts the remaining jobs.
func (o *Orchestrator) runJob(ctx context.Context, name string, deadline time.Time, j job) (stats JobStats) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("%s job panicked: %v", name, r)
			stats.Failed++
		}
	}()
	return j.Run(ctx, deadline)
}

// drainBacklog processes received-but-unprocessed webhook events,
// oldest first, bounded by the backlog window and batch size.
func (o *Orchestrator) drainBacklog(deadline time.Time) (processed, errors int) {
	events, err := o.store.WebhookBacklog(o.cfg.WebhookBacklogMaxAge, o.cfg.WebhookBacklogBatch)
	if err != nil {
		o.logger.Error("failed to load webhook backlog: %v", err)
		return 0, 1
	}

	for i := range events {
		if time.Now().After(deadline) {
			o.logger.Warn("webhook backlog: execution time limit reached, stopping drain")
			break
		}
		if _, err := o.processor.Process(&events[i]); err != nil {
			errors++
		}
		processed++
	}

	return processed, errors
}

func (o *Orchestrator) alert(run *models.SyncRun) {
	if run.Errors > o.cfg.AlertMaxErrors {
		o.logger.Error("ALERT: sync run recorded %d errors (threshold %d)", run.Errors, o.cfg.AlertMaxErrors)
	}
	if elapsed := run.FinishedAt.Sub(run.StartedAt); elapsed > o.cfg.AlertMaxDuration {
		o.logger.Error("ALERT: sync run took %s (threshold %s)", elapsed, o.cfg.AlertMaxDuration)
	}
}
