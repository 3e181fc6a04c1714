package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Renaper      RenaperConfig
	Goods        GoodsConfig
	HTTP         HTTPConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Renaper.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BIENES_APP_ENV" required:"true"`
	Port         string `envconfig:"BIENES_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BIENES_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BIENES_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"BIENES_LOG_FORMAT" default:"json"`
}

// ConsoleLogs reports whether logs should use the human readable writer.
func (a AppConfig) ConsoleLogs() bool {
	return strings.EqualFold(strings.TrimSpace(a.LogFormat), "console")
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BIENES_DB_DSN"`
	Driver string `envconfig:"BIENES_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BIENES_DB_HOST"`
	LegacyPort     int    `envconfig:"BIENES_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BIENES_DB_USER"`
	LegacyPassword string `envconfig:"BIENES_DB_PASSWORD"`
	LegacyName     string `envconfig:"BIENES_DB_NAME"`
	LegacySSLMode  string `envconfig:"BIENES_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BIENES_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BIENES_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BIENES_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BIENES_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded SQLite one.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), "sqlite")
}

// RedisConfig is optional: when neither URL nor Address is set the API runs
// without idempotency replay, lookup caching or rate limiting.
type RedisConfig struct {
	URL          string        `envconfig:"BIENES_REDIS_URL"`
	Address      string        `envconfig:"BIENES_REDIS_ADDR"`
	Password     string        `envconfig:"BIENES_REDIS_PASSWORD"`
	DB           int           `envconfig:"BIENES_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BIENES_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BIENES_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BIENES_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BIENES_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BIENES_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"BIENES_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BIENES_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BIENES_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BIENES_AUTO_MIGRATE" default:"false"`
}

type RenaperConfig struct {
	BaseURL         string        `envconfig:"BIENES_RENAPER_BASE_URL" required:"true"`
	Token           string        `envconfig:"BIENES_RENAPER_TOKEN"`
	Timeout         time.Duration `envconfig:"BIENES_RENAPER_TIMEOUT" default:"5s"`
	MaxRetries      uint64        `envconfig:"BIENES_RENAPER_MAX_RETRIES" default:"0"`
	RetryBackoff    time.Duration `envconfig:"BIENES_RENAPER_RETRY_BACKOFF" default:"200ms"`
	BreakerFailures uint32        `envconfig:"BIENES_RENAPER_BREAKER_FAILURES" default:"5"`
	BreakerCooldown time.Duration `envconfig:"BIENES_RENAPER_BREAKER_COOLDOWN" default:"30s"`
	CacheTTL        time.Duration `envconfig:"BIENES_RENAPER_CACHE_TTL" default:"24h"`
	RateLimitWindow time.Duration `envconfig:"BIENES_RENAPER_RATE_LIMIT_WINDOW" default:"1m"`
	RateLimit       int           `envconfig:"BIENES_RENAPER_RATE_LIMIT" default:"30"`
}

func (r RenaperConfig) validate() error {
	u, err := url.Parse(strings.TrimSpace(r.BaseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL", EnvRenaperBaseURL)
	}
	if r.Timeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvRenaperTimeout)
	}
	return nil
}

type GoodsConfig struct {
	SerializedTypes []string `envconfig:"BIENES_SERIALIZED_TYPES" default:"phone,celular,telefono"`
}

type HTTPConfig struct {
	AllowedOrigins []string      `envconfig:"BIENES_CORS_ALLOWED_ORIGINS" default:"*"`
	IdempotencyTTL time.Duration `envconfig:"BIENES_IDEMPOTENCY_TTL" default:"24h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:bienes.db?_foreign_keys=on"
		return nil
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
