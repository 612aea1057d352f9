package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DatabaseURL string

	// Kafka
	KafkaBrokers string

	// API Configuration
	APIPort string
	APIHost string

	// Marketplace
	MarketplaceBaseURL    string
	MarketplaceAPIKey     string
	MarketplaceAPISecret  string
	MarketplaceSupplierID string
	WebhookSecret         string

	// Sync engine
	SyncEnabled        bool
	SyncBatchSize      int
	SyncMaxRunDuration time.Duration
	ProductStaleAfter  time.Duration
	StockStaleAfter    time.Duration
	OrderLookback      time.Duration

	// Rate limiting
	RateLimitPerMinute int
	RateLimitPerHour   int
	RateLimitCallDelay time.Duration
	RateLimitMaxWait   time.Duration

	// Webhook backlog
	WebhookBacklogMaxAge time.Duration
	WebhookBacklogBatch  int
	WebhookQueueEnabled  bool
	WebhookQueueTopic    string

	// Alerting thresholds
	AlertMaxErrors   int
	AlertMaxDuration time.Duration

	// Environment
	Env      string
	LogLevel string
}

func Load() (*Config, error) {
	// Load .env file
	godotenv.Load()

	return &Config{
		DatabaseURL:  getEnv("DATABASE_URL", "sqlite://marketsync.db"),
		KafkaBrokers: getEnv("KAFKA_BROKERS", "localhost:9092"),
		APIPort:      getEnv("API_PORT", "8080"),
		APIHost:      getEnv("API_HOST", "0.0.0.0"),

		MarketplaceBaseURL:    getEnv("MARKETPLACE_BASE_URL", "https://api.marketplace.example.com/sapigw"),
		MarketplaceAPIKey:     getEnv("MARKETPLACE_API_KEY", ""),
		MarketplaceAPISecret:  getEnv("MARKETPLACE_API_SECRET", ""),
		MarketplaceSupplierID: getEnv("MARKETPLACE_SUPPLIER_ID", ""),
		WebhookSecret:         getEnv("WEBHOOK_SECRET", ""),

		SyncEnabled:        getEnvAsBool("SYNC_ENABLED", true),
		SyncBatchSize:      getEnvAsInt("SYNC_BATCH_SIZE", 50),
		SyncMaxRunDuration: getEnvAsDuration("SYNC_MAX_RUN_DURATION", time.Hour),
		ProductStaleAfter:  getEnvAsDuration("PRODUCT_STALE_AFTER", 6*time.Hour),
		StockStaleAfter:    getEnvAsDuration("STOCK_STALE_AFTER", time.Hour),
		OrderLookback:      getEnvAsDuration("ORDER_LOOKBACK", 24*time.Hour),

		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 600),
		RateLimitPerHour:   getEnvAsInt("RATE_LIMIT_PER_HOUR", 20000),
		RateLimitCallDelay: getEnvAsDuration("RATE_LIMIT_CALL_DELAY", 100*time.Millisecond),
		RateLimitMaxWait:   getEnvAsDuration("RATE_LIMIT_MAX_WAIT", 2*time.Minute),

		WebhookBacklogMaxAge: getEnvAsDuration("WEBHOOK_BACKLOG_MAX_AGE", 24*time.Hour),
		WebhookBacklogBatch:  getEnvAsInt("WEBHOOK_BACKLOG_BATCH", 100),
		WebhookQueueEnabled:  getEnvAsBool("WEBHOOK_QUEUE_ENABLED", false),
		WebhookQueueTopic:    getEnv("WEBHOOK_QUEUE_TOPIC", "webhook-events"),

		AlertMaxErrors:   getEnvAsInt("ALERT_MAX_ERRORS", 10),
		AlertMaxDuration: getEnvAsDuration("ALERT_MAX_DURATION", 30*time.Minute),

		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}, nil
}

// CredentialsPresent reports whether the marketplace API credentials
// required for a sync run are configured.
func (c *Config) CredentialsPresent() bool {
	return c.MarketplaceAPIKey != "" && c.MarketplaceAPISecret != "" && c.MarketplaceSupplierID != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
