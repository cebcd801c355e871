package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-cart/pkg/enums"
)

type Config struct {
	App          AppConfig
	Snapshot     SnapshotConfig
	DB           DBConfig
	Redis        RedisConfig
	Pricing      PricingConfig
	Housekeeping HousekeepingConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Snapshot.validate(); err != nil {
		return nil, err
	}
	if cfg.Snapshot.Backend == enums.SnapshotBackendSQL {
		if err := cfg.DB.EnsureDSN(); err != nil {
			return nil, err
		}
	}
	if cfg.Snapshot.Backend == enums.SnapshotBackendRedis && cfg.Redis.URL == "" && cfg.Redis.Address == "" {
		return nil, fmt.Errorf("either %s or %s is required for the redis snapshot backend", EnvRedisURL, EnvRedisAddr)
	}
	if err := cfg.Pricing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`

	CORSOrigins     []string      `envconfig:"STOREFRONT_CORS_ORIGINS" default:"http://localhost:3000"`
	ShutdownTimeout time.Duration `envconfig:"STOREFRONT_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type SnapshotConfig struct {
	Backend     enums.SnapshotBackend `envconfig:"STOREFRONT_SNAPSHOT_BACKEND" default:"memory"`
	Dir         string                `envconfig:"STOREFRONT_SNAPSHOT_DIR" default:"./data/carts"`
	TTL         time.Duration         `envconfig:"STOREFRONT_SNAPSHOT_TTL" default:"720h"`
	SaveTimeout time.Duration         `envconfig:"STOREFRONT_SNAPSHOT_SAVE_TIMEOUT" default:"5s"`
	SyncWrites  bool                  `envconfig:"STOREFRONT_SNAPSHOT_SYNC_WRITES" default:"false"`
}

func (s SnapshotConfig) validate() error {
	if !s.Backend.IsValid() {
		return fmt.Errorf("invalid %s %q", EnvSnapshotBackend, s.Backend)
	}
	if s.Backend == enums.SnapshotBackendFile && strings.TrimSpace(s.Dir) == "" {
		return fmt.Errorf("%s is required for the file snapshot backend", EnvSnapshotDir)
	}
	return nil
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is SQLite.
func (db DBConfig) IsSQLite() bool {
	switch strings.ToLower(strings.TrimSpace(db.Driver)) {
	case "sqlite", "sqlite3":
		return true
	}
	return false
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// PricingConfig drives the order summary shown next to the cart.
type PricingConfig struct {
	Currency     enums.Currency  `envconfig:"STOREFRONT_PRICING_CURRENCY" default:"USD"`
	TaxRate      decimal.Decimal `envconfig:"STOREFRONT_PRICING_TAX_RATE" default:"0.08"`
	FlatShipping decimal.Decimal `envconfig:"STOREFRONT_PRICING_FLAT_SHIPPING" default:"15.00"`
}

func (p PricingConfig) validate() error {
	if !p.Currency.IsValid() {
		return fmt.Errorf("invalid %s %q", EnvPricingCurrency, p.Currency)
	}
	if p.TaxRate.IsNegative() {
		return fmt.Errorf("%s must be non-negative", EnvPricingTaxRate)
	}
	if p.FlatShipping.IsNegative() {
		return fmt.Errorf("%s must be non-negative", EnvPricingShipping)
	}
	return nil
}

// HousekeepingConfig drives snapshot retention and idle cart eviction.
type HousekeepingConfig struct {
	Enabled         bool          `envconfig:"STOREFRONT_HOUSEKEEPING_ENABLED" default:"true"`
	Interval        time.Duration `envconfig:"STOREFRONT_HOUSEKEEPING_INTERVAL" default:"15m"`
	CartIdleTimeout time.Duration `envconfig:"STOREFRONT_CART_IDLE_TIMEOUT" default:"30m"`
	LockTTL         time.Duration `envconfig:"STOREFRONT_HOUSEKEEPING_LOCK_TTL" default:"10m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

// EnsureDSN fills DSN from the legacy host/user/name variables when unset.
func (db *DBConfig) EnsureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
