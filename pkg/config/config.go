package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Storage  StorageConfig
	Redis    RedisConfig
	DB       DBConfig
	Breaker  BreakerConfig
	Checkout CheckoutConfig
	Catalog  CatalogConfig
	Sessions SessionsConfig
	CORS     CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Storage.Driver = cfg.Storage.NormalizedDriver()
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	if cfg.Storage.Driver == StorageDriverRedis && cfg.Redis.URL == "" && cfg.Redis.Address == "" {
		return nil, fmt.Errorf("either %s or %s is required for the redis storage driver", EnvRedisURL, EnvRedisAddr)
	}
	if cfg.Storage.Driver == StorageDriverPostgres {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" default:"dev"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// StorageConfig selects the backend that mirrors session collections.
type StorageConfig struct {
	Driver    string `envconfig:"STOREFRONT_STORAGE_DRIVER" default:"memory"`
	Namespace string `envconfig:"STOREFRONT_STORAGE_NAMESPACE" default:"storefront"`
}

func (s StorageConfig) validate() error {
	switch s.NormalizedDriver() {
	case StorageDriverMemory, StorageDriverRedis, StorageDriverSQLite, StorageDriverPostgres:
		return nil
	}
	return fmt.Errorf("unsupported storage driver %q", s.Driver)
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"2s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"2s"`
	EntryTTL     time.Duration `envconfig:"STOREFRONT_REDIS_ENTRY_TTL" default:"0"`
}

type DBConfig struct {
	DSN        string `envconfig:"STOREFRONT_DB_DSN"`
	SQLitePath string `envconfig:"STOREFRONT_SQLITE_PATH" default:"storefront.db"`

	Host     string `envconfig:"STOREFRONT_DB_HOST"`
	Port     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	User     string `envconfig:"STOREFRONT_DB_USER"`
	Password string `envconfig:"STOREFRONT_DB_PASSWORD"`
	Name     string `envconfig:"STOREFRONT_DB_NAME"`
	SSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	AutoMigrate     bool          `envconfig:"STOREFRONT_DB_AUTO_MIGRATE" default:"true"`
	EntryRetention  time.Duration `envconfig:"STOREFRONT_DB_ENTRY_RETENTION" default:"0"`
}

// BreakerConfig tunes the circuit breaker wrapped around remote storage.
type BreakerConfig struct {
	Enabled     bool          `envconfig:"STOREFRONT_BREAKER_ENABLED" default:"true"`
	MaxFailures uint32        `envconfig:"STOREFRONT_BREAKER_MAX_FAILURES" default:"5"`
	Interval    time.Duration `envconfig:"STOREFRONT_BREAKER_INTERVAL" default:"1m"`
	OpenTimeout time.Duration `envconfig:"STOREFRONT_BREAKER_OPEN_TIMEOUT" default:"30s"`
}

type CheckoutConfig struct {
	ShippingFee        int64         `envconfig:"STOREFRONT_CHECKOUT_SHIPPING_FEE" default:"2500"`
	ProcessingDelay    time.Duration `envconfig:"STOREFRONT_CHECKOUT_PROCESSING_DELAY" default:"3s"`
	PaymentFailureRate float64       `envconfig:"STOREFRONT_CHECKOUT_PAYMENT_FAILURE_RATE" default:"0"`
}

func (c CheckoutConfig) validate() error {
	if c.ShippingFee < 0 {
		return fmt.Errorf("%s must be non-negative", EnvShippingFee)
	}
	if c.ProcessingDelay < 0 {
		return fmt.Errorf("%s must be non-negative", EnvProcessingDelay)
	}
	if c.PaymentFailureRate < 0 || c.PaymentFailureRate > 1 {
		return fmt.Errorf("%s must be between 0 and 1", EnvPaymentFailureRate)
	}
	return nil
}

type CatalogConfig struct {
	Path string `envconfig:"STOREFRONT_CATALOG_PATH"`
}

type SessionsConfig struct {
	Header        string        `envconfig:"STOREFRONT_SESSION_HEADER" default:"X-Session-Id"`
	IdleTTL       time.Duration `envconfig:"STOREFRONT_SESSION_IDLE_TTL" default:"24h"`
	SweepInterval time.Duration `envconfig:"STOREFRONT_SESSION_SWEEP_INTERVAL" default:"10m"`
	InboxSize     int           `envconfig:"STOREFRONT_SESSION_INBOX_SIZE" default:"32"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"STOREFRONT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// NormalizedDriver returns the lower-cased storage driver name.
func (s StorageConfig) NormalizedDriver() string {
	return strings.ToLower(strings.TrimSpace(s.Driver))
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range splitDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
