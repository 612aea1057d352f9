package engine

import (
	"context"
	"time"

	"marketsync/internal/logger"
	"marketsync/internal/marketplace"
	"marketsync/internal/ratelimit"
	"marketsync/internal/store"
)

// StockSyncJob refreshes stock and price for products already listed on
// the marketplace. It runs on a tighter staleness threshold than the
// full product sync because inventory drifts faster than catalog data.
type StockSyncJob struct {
	store      store.ProductStore
	tracker    *Tracker
	client     MarketplaceAPI
	limiter    *ratelimit.Limiter
	logger     *logger.Logger
	batchSize  int
	staleAfter time.Duration
}

func NewStockSyncJob(st store.ProductStore, tracker *Tracker, client MarketplaceAPI, limiter *ratelimit.Limiter, logger *logger.Logger, batchSize int, staleAfter time.Duration) *StockSyncJob {
	return &StockSyncJob{
		store:      st,
		tracker:    tracker,
		client:     client,
		limiter:    limiter,
		logger:     logger,
		batchSize:  batchSize,
		staleAfter: staleAfter,
	}
}

func (j *StockSyncJob) Run(ctx context.Context, deadline time.Time) JobStats {
	var stats JobStats

	candidates, err := j.store.StockCandidates(j.batchSize, j.staleAfter)
	if err != nil {
		j.logger.Error("stock sync: failed to load candidates: %v", err)
		stats.Failed++
		return stats
	}

	j.logger.Info("stock sync: %d candidates", len(candidates))

	for _, cand := range candidates {
		if time.Now().After(deadline) {
			j.logger.Warn("stock sync: execution time limit reached, stopping batch")
			break
		}
		j.syncOne(ctx, cand, &stats)
	}

	return stats
}

func (j *StockSyncJob) syncOne(ctx context.Context, cand store.Candidate, stats *JobStats) {
	product := cand.Product
	stats.Processed++

	if cand.Mapping == nil || !cand.Mapping.HasRemoteID() {
		// Not listed yet; the product sync job owns first pushes.
		stats.Skipped++
		return
	}

	if !product.SyncEnabled {
		j.tracker.MarkSkipped(product.ID, "sync disabled")
		stats.Skipped++
		return
	}

	if err := j.limiter.Acquire(ctx); err != nil {
		j.tracker.MarkFailed(product.ID, err.Error())
		j.logger.Error("stock sync: rate limiter rejected call for %s: %v", product.SKU, err)
		stats.Failed++
		return
	}
	stats.APICalls++

	err := j.client.UpdateProduct(ctx, cand.Mapping.Barcode, marketplace.ProductFields{
		Quantity:  product.Quantity,
		ListPrice: product.Price,
		SalePrice: product.EffectiveSalePrice(),
	})
	if err != nil {
		if markErr := j.tracker.MarkFailed(product.ID, err.Error()); markErr != nil {
			j.logger.Error("stock sync: failed to record failure for %s: %v", product.SKU, markErr)
		}
		j.logger.Error("stock sync: update failed for %s: %v", product.SKU, err)
		stats.Failed++
		return
	}

	if err := j.tracker.MarkSynced(product.ID, "", cand.Mapping.Barcode); err != nil {
		j.logger.Error("stock sync: failed to mark %s synced: %v", product.SKU, err)
		stats.Failed++
		return
	}
	if err := j.tracker.TouchStockSync(product.ID); err != nil {
		j.logger.Error("stock sync: failed to stamp stock sync for %s: %v", product.SKU, err)
	}

	j.logger.Debug("stock sync: updated %s", product.SKU)
	stats.Synced++
}
