package engine

import (
	"context"
	"time"

	"marketsync/internal/logger"
	"marketsync/internal/marketplace"
	"marketsync/internal/ratelimit"
	"marketsync/internal/store"
)

// ProductSyncJob pushes new and changed products to the marketplace.
// Products without a remote identifier are created; already-listed
// products get a price/stock update.
type ProductSyncJob struct {
	store      store.ProductStore
	tracker    *Tracker
	client     MarketplaceAPI
	limiter    *ratelimit.Limiter
	logger     *logger.Logger
	batchSize  int
	staleAfter time.Duration
}

func NewProductSyncJob(st store.ProductStore, tracker *Tracker, client MarketplaceAPI, limiter *ratelimit.Limiter, logger *logger.Logger, batchSize int, staleAfter time.Duration) *ProductSyncJob {
	return &ProductSyncJob{
		store:      st,
		tracker:    tracker,
		client:     client,
		limiter:    limiter,
		logger:     logger,
		batchSize:  batchSize,
		staleAfter: staleAfter,
	}
}

func (j *ProductSyncJob) Run(ctx context.Context, deadline time.Time) JobStats {
	var stats JobStats

	candidates, err := j.store.ProductCandidates(j.batchSize, j.staleAfter)
	if err != nil {
		j.logger.Error("product sync: failed to load candidates: %v", err)
		stats.Failed++
		return stats
	}

	j.logger.Info("product sync: %d candidates", len(candidates))

	for _, cand := range candidates {
		if time.Now().After(deadline) {
			j.logger.Warn("product sync: execution time limit reached, stopping batch")
			break
		}
		j.syncOne(ctx, cand, &stats)
	}

	return stats
}

func (j *ProductSyncJob) syncOne(ctx context.Context, cand store.Candidate, stats *JobStats) {
	product := cand.Product
	stats.Processed++

	if !product.SyncEnabled {
		if err := j.tracker.MarkSkipped(product.ID, "sync disabled"); err != nil {
			j.logger.Error("product sync: failed to mark %s skipped: %v", product.SKU, err)
		}
		stats.Skipped++
		return
	}

	if err := j.tracker.MarkPending(product.ID); err != nil {
		j.logger.Error("product sync: failed to mark %s pending: %v", product.SKU, err)
		stats.Failed++
		return
	}

	if err := j.limiter.Acquire(ctx); err != nil {
		j.tracker.MarkFailed(product.ID, err.Error())
		j.logger.Error("product sync: rate limiter rejected call for %s: %v", product.SKU, err)
		stats.Failed++
		return
	}
	stats.APICalls++

	var remoteID string
	var err error
	if cand.Mapping != nil && cand.Mapping.HasRemoteID() {
		err = j.client.UpdateProduct(ctx, cand.Mapping.Barcode, marketplace.ProductFields{
			Quantity:  product.Quantity,
			ListPrice: product.Price,
			SalePrice: product.EffectiveSalePrice(),
		})
	} else {
		remoteID, err = j.client.CreateProduct(ctx, marketplace.ProductPayload{
			Barcode:     product.SKU,
			Title:       product.Title,
			Description: derefString(product.Description),
			StockCode:   product.SKU,
			Quantity:    product.Quantity,
			ListPrice:   product.Price,
			SalePrice:   product.EffectiveSalePrice(),
			Currency:    product.Currency,
		})
	}

	if err != nil {
		if markErr := j.tracker.MarkFailed(product.ID, err.Error()); markErr != nil {
			j.logger.Error("product sync: failed to record failure for %s: %v", product.SKU, markErr)
		}
		j.logger.Error("product sync: push failed for %s: %v", product.SKU, err)
		stats.Failed++
		return
	}

	if err := j.tracker.MarkSynced(product.ID, remoteID, product.SKU); err != nil {
		j.logger.Error("product sync: failed to mark %s synced: %v", product.SKU, err)
		stats.Failed++
		return
	}

	j.logger.Debug("product sync: synced %s", product.SKU)
	stats.Synced++
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
