package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix  = ""
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Inventory    InventoryConfig
	Deployment   DeploymentConfig
	Health       HealthConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CROFFLEPOS_APP_ENV" required:"true"`
	Port         string `envconfig:"CROFFLEPOS_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"CROFFLEPOS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CROFFLEPOS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CROFFLEPOS_DB_DSN"`
	Driver string `envconfig:"CROFFLEPOS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CROFFLEPOS_DB_HOST"`
	LegacyPort     int    `envconfig:"CROFFLEPOS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CROFFLEPOS_DB_USER"`
	LegacyPassword string `envconfig:"CROFFLEPOS_DB_PASSWORD"`
	LegacyName     string `envconfig:"CROFFLEPOS_DB_NAME"`
	LegacySSLMode  string `envconfig:"CROFFLEPOS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CROFFLEPOS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CROFFLEPOS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CROFFLEPOS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CROFFLEPOS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// ensureDSN assembles a postgres DSN from the discrete legacy variables when
// CROFFLEPOS_DB_DSN is not set directly.
func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.LegacyHost == "" || d.LegacyUser == "" || d.LegacyName == "" {
		return fmt.Errorf("either CROFFLEPOS_DB_DSN or host/user/name variables are required")
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.LegacyUser, d.LegacyPassword),
		Host:   fmt.Sprintf("%s:%d", d.LegacyHost, d.LegacyPort),
		Path:   d.LegacyName,
	}
	q := u.Query()
	q.Set("sslmode", d.LegacySSLMode)
	u.RawQuery = q.Encode()
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"CROFFLEPOS_REDIS_URL"`
	Address      string        `envconfig:"CROFFLEPOS_REDIS_ADDR"`
	Password     string        `envconfig:"CROFFLEPOS_REDIS_PASSWORD"`
	DB           int           `envconfig:"CROFFLEPOS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CROFFLEPOS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CROFFLEPOS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CROFFLEPOS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CROFFLEPOS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CROFFLEPOS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CROFFLEPOS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CROFFLEPOS_AUTO_MIGRATE" default:"false"`
}

type InventoryConfig struct {
	// MaxDeductionAttempts bounds retries on version conflicts and transient
	// datastore errors. Business-rule failures never retry.
	MaxDeductionAttempts int           `envconfig:"CROFFLEPOS_INVENTORY_MAX_DEDUCTION_ATTEMPTS" default:"3"`
	RetryBaseDelay       time.Duration `envconfig:"CROFFLEPOS_INVENTORY_RETRY_BASE_DELAY" default:"25ms"`
	// StockPolicy selects reject (hard fail) or clamp (warn and zero out)
	// when stock is insufficient.
	StockPolicy          string        `envconfig:"CROFFLEPOS_INVENTORY_STOCK_POLICY" default:"reject"`
	DeductionConcurrency int           `envconfig:"CROFFLEPOS_INVENTORY_DEDUCTION_CONCURRENCY" default:"4"`
	IdempotencyTTL       time.Duration `envconfig:"CROFFLEPOS_INVENTORY_IDEMPOTENCY_TTL" default:"720h"`
	// ServingOverrides maps product names to serving sizes smaller than one
	// full serving, e.g. "mini croffle:0.5" doubles the serving yield of a
	// delivery for that product.
	ServingOverrides map[string]float64 `envconfig:"CROFFLEPOS_INVENTORY_SERVING_OVERRIDES" default:"mini croffle:0.5"`
}

type DeploymentConfig struct {
	PriceMarkup      float64 `envconfig:"CROFFLEPOS_DEPLOYMENT_PRICE_MARKUP" default:"1.5"`
	DefaultThreshold int     `envconfig:"CROFFLEPOS_DEPLOYMENT_DEFAULT_THRESHOLD" default:"5"`
}

type HealthConfig struct {
	Interval          time.Duration `envconfig:"CROFFLEPOS_HEALTH_INTERVAL" default:"5m"`
	SuccessRateWindow time.Duration `envconfig:"CROFFLEPOS_HEALTH_SUCCESS_RATE_WINDOW" default:"1h"`
}
