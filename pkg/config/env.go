package config

// EnvPrefix namespaces every variable read by Load.
const EnvPrefix = "BIENES"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "BIENES_APP_ENV"
	EnvPort         = "BIENES_APP_PORT"
	EnvLogLevel     = "BIENES_LOG_LEVEL"
	EnvLogWarnStack = "BIENES_LOG_WARN_STACK"

	EnvDBDSN      = "BIENES_DB_DSN"
	EnvDBDriver   = "BIENES_DB_DRIVER"
	EnvDBHost     = "BIENES_DB_HOST"
	EnvDBPort     = "BIENES_DB_PORT"
	EnvDBUser     = "BIENES_DB_USER"
	EnvDBPassword = "BIENES_DB_PASSWORD"
	EnvDBName     = "BIENES_DB_NAME"
	EnvDBSSLMode  = "BIENES_DB_SSLMODE"

	EnvRedisURL  = "BIENES_REDIS_URL"
	EnvRedisAddr = "BIENES_REDIS_ADDR"

	EnvJWTSecret  = "BIENES_JWT_SECRET"
	EnvJWTIssuer  = "BIENES_JWT_ISSUER"
	EnvJWTExpMins = "BIENES_JWT_EXPIRATION_MINUTES"

	EnvAutoMigrate = "BIENES_AUTO_MIGRATE"

	EnvRenaperBaseURL         = "BIENES_RENAPER_BASE_URL"
	EnvRenaperToken           = "BIENES_RENAPER_TOKEN"
	EnvRenaperTimeout         = "BIENES_RENAPER_TIMEOUT"
	EnvRenaperMaxRetries      = "BIENES_RENAPER_MAX_RETRIES"
	EnvRenaperRetryBackoff    = "BIENES_RENAPER_RETRY_BACKOFF"
	EnvRenaperBreakerFailures = "BIENES_RENAPER_BREAKER_FAILURES"
	EnvRenaperBreakerCooldown = "BIENES_RENAPER_BREAKER_COOLDOWN"
	EnvRenaperCacheTTL        = "BIENES_RENAPER_CACHE_TTL"
	EnvRenaperRateWindow      = "BIENES_RENAPER_RATE_LIMIT_WINDOW"
	EnvRenaperRateLimit       = "BIENES_RENAPER_RATE_LIMIT"

	EnvSerializedTypes   = "BIENES_SERIALIZED_TYPES"
	EnvCORSAllowedOrigin = "BIENES_CORS_ALLOWED_ORIGINS"
	EnvIdempotencyTTL    = "BIENES_IDEMPOTENCY_TTL"
)

// legacyDBEnvVars must all be set when BIENES_DB_DSN is absent.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
