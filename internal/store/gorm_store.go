package store

import (
	"fmt"
	"time"

	"marketsync/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormStore struct {
	db *gorm.DB
}

func New(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

var _ Store = (*GormStore)(nil)

func (s *GormStore) ProductCandidates(limit int, staleAfter time.Duration) ([]Candidate, error) {
	cutoff := time.Now().Add(-staleAfter)

	var products []models.Product
	err := s.db.
		Select("products.*").
		Joins("LEFT JOIN product_mappings pm ON pm.local_id = products.id").
		Where("products.enabled = ?", true).
		Where("pm.id IS NULL OR pm.state IN ? OR pm.last_synced_at IS NULL OR pm.last_synced_at < ?",
			[]models.SyncState{models.SyncStateUnsynced, models.SyncStateFailed}, cutoff).
		Order("products.updated_at DESC").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query product candidates: %w", err)
	}

	return s.attachMappings(products)
}

func (s *GormStore) StockCandidates(limit int, staleAfter time.Duration) ([]Candidate, error) {
	cutoff := time.Now().Add(-staleAfter)

	var products []models.Product
	err := s.db.
		Select("products.*").
		Joins("INNER JOIN product_mappings pm ON pm.local_id = products.id").
		Where("products.enabled = ?", true).
		Where("pm.remote_id IS NOT NULL AND pm.remote_id != ''").
		Where("pm.last_stock_sync_at IS NULL OR pm.last_stock_sync_at < ?", cutoff).
		Order("products.updated_at DESC").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query stock candidates: %w", err)
	}

	return s.attachMappings(products)
}

func (s *GormStore) attachMappings(products []models.Product) ([]Candidate, error) {
	candidates := make([]Candidate, 0, len(products))
	for _, p := range products {
		var mapping models.ProductMapping
		err := s.db.Where("local_id = ?", p.ID).First(&mapping).Error
		if err == gorm.ErrRecordNotFound {
			candidates = append(candidates, Candidate{Product: p})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load mapping for product %s: %w", p.ID, err)
		}
		m := mapping
		candidates = append(candidates, Candidate{Product: p, Mapping: &m})
	}
	return candidates, nil
}

func (s *GormStore) EnsureMapping(localID string) (*models.ProductMapping, error) {
	var mapping models.ProductMapping
	err := s.db.Where(models.ProductMapping{LocalID: localID}).
		Attrs(models.ProductMapping{State: models.SyncStateUnsynced}).
		FirstOrCreate(&mapping).Error
	if err != nil {
		return nil, fmt.Errorf("failed to ensure mapping for %s: %w", localID, err)
	}
	return &mapping, nil
}

func (s *GormStore) SetMappingState(localID string, state models.SyncState, message string) error {
	updates := map[string]interface{}{
		"state":      state,
		"updated_at": time.Now(),
	}
	if message != "" {
		updates["last_error"] = message
	} else {
		updates["last_error"] = nil
	}
	return s.db.Model(&models.ProductMapping{}).
		Where("local_id = ?", localID).
		Updates(updates).Error
}

func (s *GormStore) MarkSynced(localID, remoteID, barcode string, at time.Time) error {
	updates := map[string]interface{}{
		"state":          models.SyncStateSynced,
		"last_synced_at": at,
		"last_error":     nil,
		"updated_at":     at,
	}
	if remoteID != "" {
		// Assign exactly once; an existing remote identifier wins.
		updates["remote_id"] = gorm.Expr("COALESCE(NULLIF(remote_id, ''), ?)", remoteID)
	}
	if barcode != "" {
		updates["barcode"] = gorm.Expr("CASE WHEN barcode IS NULL OR barcode = '' THEN ? ELSE barcode END", barcode)
	}
	return s.db.Model(&models.ProductMapping{}).
		Where("local_id = ?", localID).
		Updates(updates).Error
}

func (s *GormStore) TouchStockSync(localID string, at time.Time) error {
	return s.db.Model(&models.ProductMapping{}).
		Where("local_id = ?", localID).
		Updates(map[string]interface{}{
			"last_stock_sync_at": at,
			"last_price_sync_at": at,
			"updated_at":         at,
		}).Error
}

func (s *GormStore) SetMappingApproval(barcode string, approved bool, reason string) error {
	updates := map[string]interface{}{
		"approved":   approved,
		"updated_at": time.Now(),
	}
	if approved {
		updates["rejection_reason"] = nil
	} else {
		updates["rejection_reason"] = reason
	}
	return s.db.Model(&models.ProductMapping{}).
		Where("barcode = ?", barcode).
		Updates(updates).Error
}

func (s *GormStore) UpdateProductStock(barcode string, quantity int) error {
	sub := s.db.Model(&models.ProductMapping{}).Select("local_id").Where("barcode = ?", barcode)
	err := s.db.Model(&models.Product{}).
		Where("id IN (?)", sub).
		Update("quantity", quantity).Error
	if err != nil {
		return fmt.Errorf("failed to update stock for barcode %s: %w", barcode, err)
	}
	return s.db.Model(&models.ProductMapping{}).
		Where("barcode = ?", barcode).
		Update("last_stock_sync_at", time.Now()).Error
}

func (s *GormStore) UpdateProductPrice(barcode string, listPrice, salePrice float64) error {
	updates := map[string]interface{}{"price": listPrice}
	if salePrice > 0 && salePrice != listPrice {
		updates["sale_price"] = salePrice
	} else {
		updates["sale_price"] = nil
	}
	sub := s.db.Model(&models.ProductMapping{}).Select("local_id").Where("barcode = ?", barcode)
	err := s.db.Model(&models.Product{}).
		Where("id IN (?)", sub).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update price for barcode %s: %w", barcode, err)
	}
	return s.db.Model(&models.ProductMapping{}).
		Where("barcode = ?", barcode).
		Update("last_price_sync_at", time.Now()).Error
}

func (s *GormStore) OrderByNumber(number string) (*models.Order, error) {
	var order models.Order
	err := s.db.Where("order_number = ?", number).First(&order).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", number, err)
	}
	return &order, nil
}

func (s *GormStore) UpsertOrder(o *models.Order) error {
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "order_number"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "gross_amount", "total_discount",
			"local_status_id", "payload", "updated_at",
		}),
	}).Create(o).Error
}

func (s *GormStore) UpdateOrderStatus(number, status string, localStatusID int) (bool, error) {
	res := s.db.Model(&models.Order{}).
		Where("order_number = ?", number).
		Updates(map[string]interface{}{
			"status":          status,
			"local_status_id": localStatusID,
			"updated_at":      time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) SetOrderTracking(number, trackingNo, cargoProvider string) (bool, error) {
	res := s.db.Model(&models.Order{}).
		Where("order_number = ?", number).
		Updates(map[string]interface{}{
			"tracking_no":    trackingNo,
			"cargo_provider": cargoProvider,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) SaveWebhookEvent(e *models.WebhookEvent) error {
	return s.db.Create(e).Error
}

func (s *GormStore) WebhookEventByID(id string) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	err := s.db.Where("id = ?", id).First(&event).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load webhook event %s: %w", id, err)
	}
	return &event, nil
}

func (s *GormStore) WebhookBacklog(maxAge time.Duration, limit int) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	err := s.db.
		Where("processed = ?", false).
		Where("received_at > ?", time.Now().Add(-maxAge)).
		Order("received_at ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query webhook backlog: %w", err)
	}
	return events, nil
}

func (s *GormStore) MarkEventProcessed(id, result, errMessage string) error {
	updates := map[string]interface{}{
		"processed":    true,
		"processed_at": time.Now(),
		"result":       result,
	}
	if errMessage != "" {
		updates["error_message"] = errMessage
	}
	return s.db.Model(&models.WebhookEvent{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (s *GormStore) AcquireRunLock(owner string, staleAfter time.Duration) (bool, error) {
	lock := models.RunLock{ID: 1, Owner: owner, AcquiredAt: time.Now()}
	res := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&lock)
	if res.Error != nil {
		return false, fmt.Errorf("failed to acquire run lock: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	// A lock row exists; reclaim it only if it has gone stale.
	res = s.db.Model(&models.RunLock{}).
		Where("id = ? AND acquired_at < ?", 1, time.Now().Add(-staleAfter)).
		Updates(map[string]interface{}{"owner": owner, "acquired_at": time.Now()})
	if res.Error != nil {
		return false, fmt.Errorf("failed to reclaim stale run lock: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) ReleaseRunLock(owner string) error {
	return s.db.Where("id = ? AND owner = ?", 1, owner).Delete(&models.RunLock{}).Error
}

func (s *GormStore) CurrentRunLock() (*models.RunLock, error) {
	var lock models.RunLock
	err := s.db.First(&lock, 1).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run lock: %w", err)
	}
	return &lock, nil
}

func (s *GormStore) SaveSyncRun(r *models.SyncRun) error {
	return s.db.Create(r).Error
}

func (s *GormStore) RecentSyncRuns(limit int) ([]models.SyncRun, error) {
	var runs []models.SyncRun
	err := s.db.Order("started_at DESC").Limit(limit).Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	return runs, nil
}
