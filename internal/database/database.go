package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Database struct {
	DB *gorm.DB
}

func New(databaseURL string) (*Database, error) {
	var db *gorm.DB
	var err error
	var schema string

	if strings.HasPrefix(databaseURL, "sqlite://") {
		// SQLite for development
		dbPath := strings.TrimPrefix(databaseURL, "sqlite://")
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		schema = sqliteSchema
	} else {
		// PostgreSQL for production
		db, err = gorm.Open(postgres.Open(databaseURL), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		schema = postgresSchema
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Create tables manually with raw SQL
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if err := db.Exec(stmt).Error; err != nil {
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		sku TEXT UNIQUE NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		price DECIMAL(10,2),
		sale_price DECIMAL(10,2),
		currency TEXT DEFAULT 'USD',
		quantity INTEGER DEFAULT 0,
		enabled BOOLEAN DEFAULT true,
		sync_enabled BOOLEAN DEFAULT true,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS product_mappings (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		local_id UUID UNIQUE NOT NULL,
		remote_id TEXT,
		barcode TEXT,
		state TEXT DEFAULT 'UNSYNCED',
		last_synced_at TIMESTAMPTZ,
		last_stock_sync_at TIMESTAMPTZ,
		last_price_sync_at TIMESTAMPTZ,
		last_error TEXT,
		approved BOOLEAN,
		rejection_reason TEXT,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		order_number TEXT UNIQUE NOT NULL,
		status TEXT DEFAULT 'Created',
		gross_amount DECIMAL(10,2) DEFAULT 0,
		total_discount DECIMAL(10,2) DEFAULT 0,
		customer_name TEXT,
		customer_email TEXT,
		order_date TIMESTAMPTZ,
		tracking_no TEXT,
		cargo_provider TEXT,
		local_status_id INTEGER DEFAULT 1,
		payload TEXT,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS webhook_events (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		event_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		received_at TIMESTAMPTZ DEFAULT NOW(),
		processed BOOLEAN DEFAULT false,
		processed_at TIMESTAMPTZ,
		result TEXT,
		error_message TEXT
	);

	CREATE TABLE IF NOT EXISTS run_locks (
		id INTEGER PRIMARY KEY,
		owner TEXT NOT NULL,
		acquired_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS sync_runs (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		products_synced INTEGER DEFAULT 0,
		stock_updated INTEGER DEFAULT 0,
		orders_synced INTEGER DEFAULT 0,
		webhooks_processed INTEGER DEFAULT 0,
		errors INTEGER DEFAULT 0,
		api_calls INTEGER DEFAULT 0,
		execution_time DECIMAL DEFAULT 0,
		started_at TIMESTAMPTZ,
		finished_at TIMESTAMPTZ
	);
`

// sqliteSchema mirrors postgresSchema without the function defaults
// sqlite cannot parse; uuid primary keys come from the BeforeCreate
// hooks on every insert path.
const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		sku TEXT UNIQUE NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		price DECIMAL(10,2),
		sale_price DECIMAL(10,2),
		currency TEXT DEFAULT 'USD',
		quantity INTEGER DEFAULT 0,
		enabled BOOLEAN DEFAULT true,
		sync_enabled BOOLEAN DEFAULT true,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS product_mappings (
		id TEXT PRIMARY KEY,
		local_id TEXT UNIQUE NOT NULL,
		remote_id TEXT,
		barcode TEXT,
		state TEXT DEFAULT 'UNSYNCED',
		last_synced_at DATETIME,
		last_stock_sync_at DATETIME,
		last_price_sync_at DATETIME,
		last_error TEXT,
		approved BOOLEAN,
		rejection_reason TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		order_number TEXT UNIQUE NOT NULL,
		status TEXT DEFAULT 'Created',
		gross_amount DECIMAL(10,2) DEFAULT 0,
		total_discount DECIMAL(10,2) DEFAULT 0,
		customer_name TEXT,
		customer_email TEXT,
		order_date DATETIME,
		tracking_no TEXT,
		cargo_provider TEXT,
		local_status_id INTEGER DEFAULT 1,
		payload TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS webhook_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		received_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		processed BOOLEAN DEFAULT false,
		processed_at DATETIME,
		result TEXT,
		error_message TEXT
	);

	CREATE TABLE IF NOT EXISTS run_locks (
		id INTEGER PRIMARY KEY,
		owner TEXT NOT NULL,
		acquired_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS sync_runs (
		id TEXT PRIMARY KEY,
		products_synced INTEGER DEFAULT 0,
		stock_updated INTEGER DEFAULT 0,
		orders_synced INTEGER DEFAULT 0,
		webhooks_processed INTEGER DEFAULT 0,
		errors INTEGER DEFAULT 0,
		api_calls INTEGER DEFAULT 0,
		execution_time REAL DEFAULT 0,
		started_at DATETIME,
		finished_at DATETIME
	);
`
