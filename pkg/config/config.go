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
	Settlement   SettlementConfig
	Stripe       StripeConfig
	Gateway      GatewayConfig
	AdConversion AdConversionConfig
	FX           FXConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Settlement.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"OFFERPAY_APP_ENV" required:"true"`
	Port         string `envconfig:"OFFERPAY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"OFFERPAY_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"OFFERPAY_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"OFFERPAY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"OFFERPAY_DB_DSN"`
	Driver string `envconfig:"OFFERPAY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"OFFERPAY_DB_HOST"`
	LegacyPort     int    `envconfig:"OFFERPAY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"OFFERPAY_DB_USER"`
	LegacyPassword string `envconfig:"OFFERPAY_DB_PASSWORD"`
	LegacyName     string `envconfig:"OFFERPAY_DB_NAME"`
	LegacySSLMode  string `envconfig:"OFFERPAY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"OFFERPAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"OFFERPAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"OFFERPAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"OFFERPAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"OFFERPAY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"OFFERPAY_REDIS_ADDR"`
	Password     string        `envconfig:"OFFERPAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"OFFERPAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"OFFERPAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"OFFERPAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"OFFERPAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"OFFERPAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"OFFERPAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SettlementConfig tunes the fee split and the post-commit fan-out.
type SettlementConfig struct {
	PlatformFeeBps    int64         `envconfig:"OFFERPAY_PLATFORM_FEE_BPS" default:"500"`
	DispatchTimeout   time.Duration `envconfig:"OFFERPAY_DISPATCH_TIMEOUT" default:"15s"`
	SettledMarkerTTL  time.Duration `envconfig:"OFFERPAY_SETTLED_MARKER_TTL" default:"72h"`
	PlatformName      string        `envconfig:"OFFERPAY_PLATFORM_NAME" default:"offerpay"`
	DispatchUserAgent string        `envconfig:"OFFERPAY_DISPATCH_USER_AGENT" default:"offerpay-dispatch/1.0"`
}

func (s SettlementConfig) validate() error {
	if s.PlatformFeeBps < 0 || s.PlatformFeeBps > 10000 {
		return fmt.Errorf("%s must be between 0 and 10000, got %d", EnvPlatformFeeBps, s.PlatformFeeBps)
	}
	if s.DispatchTimeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvDispatchTimeout)
	}
	return nil
}

type StripeConfig struct {
	Secret string `envconfig:"OFFERPAY_STRIPE_SECRET"`
	Env    string `envconfig:"OFFERPAY_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// GatewayConfig configures the gateway-neutral signed envelope endpoint.
type GatewayConfig struct {
	SigningSecret string `envconfig:"OFFERPAY_GATEWAY_SIGNING_SECRET"`
}

type AdConversionConfig struct {
	BaseURL    string `envconfig:"OFFERPAY_AD_CONVERSION_BASE_URL" default:"https://graph.facebook.com"`
	APIVersion string `envconfig:"OFFERPAY_AD_CONVERSION_API_VERSION" default:"v19.0"`
	TestCode   string `envconfig:"OFFERPAY_AD_CONVERSION_TEST_CODE"`
}

// FXConfig feeds the static rate source and its cache.
type FXConfig struct {
	Rates             string        `envconfig:"OFFERPAY_FX_RATES"`
	TTL               time.Duration `envconfig:"OFFERPAY_FX_TTL" default:"1h"`
	ReportingCurrency string        `envconfig:"OFFERPAY_FX_REPORTING_CURRENCY" default:"USD"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"OFFERPAY_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	SalesTopic string `envconfig:"OFFERPAY_PUBSUB_SALES_TOPIC" default:"op-sales-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"OFFERPAY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"OFFERPAY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"OFFERPAY_OUTBOX_MAX_ATTEMPTS" default:"10"`
	// MetricsAddr is where the publisher exposes /metrics; empty disables it.
	MetricsAddr string `envconfig:"OFFERPAY_OUTBOX_METRICS_ADDR" default:":9091"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"OFFERPAY_CRON_INTERVAL" default:"1h"`
	LockTTL         time.Duration `envconfig:"OFFERPAY_CRON_LOCK_TTL" default:"50m"`
	OutboxRetention time.Duration `envconfig:"OFFERPAY_CRON_OUTBOX_RETENTION" default:"720h"`
	MetricsAddr     string        `envconfig:"OFFERPAY_CRON_METRICS_ADDR" default:":9092"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"OFFERPAY_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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
