package database

import (
	"path/filepath"
	"testing"

	"marketsync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSqliteBootstrapsSchema(t *testing.T) {
	db, err := New("sqlite://" + filepath.Join(t.TempDir(), "marketsync.db"))
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{
		"products", "product_mappings", "orders",
		"webhook_events", "run_locks", "sync_runs",
	} {
		var count int64
		assert.NoError(t, db.DB.Table(table).Count(&count).Error, "table %s", table)
	}

	// Inserts rely on the BeforeCreate uuid hooks instead of database
	// defaults, so a round trip must produce a populated id.
	product := models.Product{SKU: "SKU-1", Title: "Widget", Enabled: true, SyncEnabled: true}
	require.NoError(t, db.DB.Create(&product).Error)
	assert.NotEmpty(t, product.ID)

	var loaded models.Product
	require.NoError(t, db.DB.Where("sku = ?", "SKU-1").First(&loaded).Error)
	assert.Equal(t, product.ID, loaded.ID)
}
