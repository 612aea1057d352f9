package engine

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"marketsync/internal/logger"
	"marketsync/internal/marketplace"
	"marketsync/internal/models"
	"marketsync/internal/ratelimit"
	"marketsync/internal/store"
)

// OrderSyncJob pulls marketplace orders from a trailing window into the
// local store. Orders are upserted by order number, so re-fetching the
// same order is a no-op rather than a duplicate.
type OrderSyncJob struct {
	store    store.OrderStore
	client   MarketplaceAPI
	limiter  *ratelimit.Limiter
	logger   *logger.Logger
	lookback time.Duration
	pageSize int
}

func NewOrderSyncJob(st store.OrderStore, client MarketplaceAPI, limiter *ratelimit.Limiter, logger *logger.Logger, lookback time.Duration, pageSize int) *OrderSyncJob {
	return &OrderSyncJob{
		store:    st,
		client:   client,
		limiter:  limiter,
		logger:   logger,
		lookback: lookback,
		pageSize: pageSize,
	}
}

func (j *OrderSyncJob) Run(ctx context.Context, deadline time.Time) JobStats {
	var stats JobStats

	now := time.Now()
	window := marketplace.OrderWindow{Start: now.Add(-j.lookback), End: now}

	for page := 0; ; page++ {
		if time.Now().After(deadline) {
			j.logger.Warn("order sync: execution time limit reached, stopping fetch")
			break
		}

		if err := j.limiter.Acquire(ctx); err != nil {
			j.logger.Error("order sync: rate limiter rejected fetch: %v", err)
			stats.Failed++
			break
		}
		stats.APICalls++

		ordersPage, err := j.client.FetchOrders(ctx, window, page, j.pageSize)
		if err != nil {
			j.logger.Error("order sync: failed to fetch orders page %d: %v", page, err)
			stats.Failed++
			break
		}

		for _, remote := range ordersPage.Content {
			stats.Processed++
			if err := j.apply(remote); err != nil {
				j.logger.Error("order sync: failed to apply order %s: %v", remote.OrderNumber, err)
				stats.Failed++
				continue
			}
			stats.Synced++
		}

		if len(ordersPage.Content) < j.pageSize {
			break
		}
	}

	return stats
}

// apply upserts one remote order by its order number.
func (j *OrderSyncJob) apply(remote marketplace.RemoteOrder) error {
	order := remoteToLocal(remote)
	if err := j.store.UpsertOrder(order); err != nil {
		return err
	}
	if remote.TrackingNumber != "" {
		if _, err := j.store.SetOrderTracking(remote.OrderNumber, remote.TrackingNumber, remote.CargoProvider); err != nil {
			return err
		}
	}
	return nil
}

func remoteToLocal(remote marketplace.RemoteOrder) *models.Order {
	status := remote.Status
	if status == "" {
		status = "Created"
	}

	orderDate := time.Now()
	if remote.OrderDate > 0 {
		orderDate = time.UnixMilli(remote.OrderDate)
	}

	payload := ""
	if raw, err := json.Marshal(remote); err == nil {
		payload = string(raw)
	}

	order := &models.Order{
		OrderNumber:   remote.OrderNumber,
		Status:        status,
		GrossAmount:   remote.GrossAmount,
		TotalDiscount: remote.TotalDiscount,
		CustomerName:  strings.TrimSpace(remote.CustomerFirstName + " " + remote.CustomerLastName),
		CustomerEmail: remote.CustomerEmail,
		OrderDate:     orderDate,
		LocalStatusID: models.LocalStatusID(status),
	}
	if payload != "" {
		order.Payload = &payload
	}
	return order
}
