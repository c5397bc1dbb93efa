package config

const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	StorageDriverMemory   = "memory"
	StorageDriverRedis    = "redis"
	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"
)

const (
	EnvAppEnv             = "STOREFRONT_APP_ENV"
	EnvPort               = "STOREFRONT_APP_PORT"
	EnvLogLevel           = "STOREFRONT_LOG_LEVEL"
	EnvStorageDriver      = "STOREFRONT_STORAGE_DRIVER"
	EnvStorageNamespace   = "STOREFRONT_STORAGE_NAMESPACE"
	EnvRedisURL           = "STOREFRONT_REDIS_URL"
	EnvRedisAddr          = "STOREFRONT_REDIS_ADDR"
	EnvDBDSN              = "STOREFRONT_DB_DSN"
	EnvDBHost             = "STOREFRONT_DB_HOST"
	EnvDBUser             = "STOREFRONT_DB_USER"
	EnvDBName             = "STOREFRONT_DB_NAME"
	EnvShippingFee        = "STOREFRONT_CHECKOUT_SHIPPING_FEE"
	EnvProcessingDelay    = "STOREFRONT_CHECKOUT_PROCESSING_DELAY"
	EnvPaymentFailureRate = "STOREFRONT_CHECKOUT_PAYMENT_FAILURE_RATE"
	EnvCatalogPath        = "STOREFRONT_CATALOG_PATH"
	EnvCORSOrigins        = "STOREFRONT_CORS_ALLOWED_ORIGINS"
)

var splitDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
