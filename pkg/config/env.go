package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv       = "STOREFRONT_APP_ENV"
	EnvPort         = "STOREFRONT_APP_PORT"
	EnvLogLevel     = "STOREFRONT_LOG_LEVEL"
	EnvLogFormat    = "STOREFRONT_LOG_FORMAT"
	EnvLogWarnStack = "STOREFRONT_LOG_WARN_STACK"
	EnvCORSOrigins  = "STOREFRONT_CORS_ORIGINS"
	EnvShutdown     = "STOREFRONT_SHUTDOWN_TIMEOUT"

	EnvSnapshotBackend     = "STOREFRONT_SNAPSHOT_BACKEND"
	EnvSnapshotDir         = "STOREFRONT_SNAPSHOT_DIR"
	EnvSnapshotTTL         = "STOREFRONT_SNAPSHOT_TTL"
	EnvSnapshotSaveTimeout = "STOREFRONT_SNAPSHOT_SAVE_TIMEOUT"
	EnvSnapshotSyncWrites  = "STOREFRONT_SNAPSHOT_SYNC_WRITES"

	EnvDBDSN      = "STOREFRONT_DB_DSN"
	EnvDBDriver   = "STOREFRONT_DB_DRIVER"
	EnvDBHost     = "STOREFRONT_DB_HOST"
	EnvDBPort     = "STOREFRONT_DB_PORT"
	EnvDBUser     = "STOREFRONT_DB_USER"
	EnvDBPassword = "STOREFRONT_DB_PASSWORD"
	EnvDBName     = "STOREFRONT_DB_NAME"
	EnvDBSSLMode  = "STOREFRONT_DB_SSLMODE"

	EnvRedisURL  = "STOREFRONT_REDIS_URL"
	EnvRedisAddr = "STOREFRONT_REDIS_ADDR"

	EnvPricingCurrency = "STOREFRONT_PRICING_CURRENCY"
	EnvPricingTaxRate  = "STOREFRONT_PRICING_TAX_RATE"
	EnvPricingShipping = "STOREFRONT_PRICING_FLAT_SHIPPING"

	EnvHousekeepingEnabled  = "STOREFRONT_HOUSEKEEPING_ENABLED"
	EnvHousekeepingInterval = "STOREFRONT_HOUSEKEEPING_INTERVAL"
	EnvCartIdleTimeout      = "STOREFRONT_CART_IDLE_TIMEOUT"
	EnvHousekeepingLockTTL  = "STOREFRONT_HOUSEKEEPING_LOCK_TTL"

	EnvAutoMigrate = "STOREFRONT_AUTO_MIGRATE"
)

var legacyDBEnvVars = []string{
	EnvDBHost,
	EnvDBUser,
	EnvDBName,
}
