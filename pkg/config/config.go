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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Outbox       OutboxConfig
	Totals       TotalsConfig
	Forms        FormsConfig
	Catalog      CatalogConfig
	Streams      StreamsConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = "sqlite"
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"RETAILERP_APP_ENV" required:"true"`
	Port         string   `envconfig:"RETAILERP_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"RETAILERP_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"RETAILERP_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"RETAILERP_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"RETAILERP_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"RETAILERP_DB_DSN"`
	Driver string `envconfig:"RETAILERP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RETAILERP_DB_HOST"`
	LegacyPort     int    `envconfig:"RETAILERP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RETAILERP_DB_USER"`
	LegacyPassword string `envconfig:"RETAILERP_DB_PASSWORD"`
	LegacyName     string `envconfig:"RETAILERP_DB_NAME"`
	LegacySSLMode  string `envconfig:"RETAILERP_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"RETAILERP_SQLITE_PATH" default:"retailerp.db"`

	MaxOpenConns    int           `envconfig:"RETAILERP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RETAILERP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RETAILERP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RETAILERP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"RETAILERP_DB_SLOW_QUERY" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RETAILERP_REDIS_URL"`
	Address      string        `envconfig:"RETAILERP_REDIS_ADDR"`
	Password     string        `envconfig:"RETAILERP_REDIS_PASSWORD"`
	DB           int           `envconfig:"RETAILERP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RETAILERP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RETAILERP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RETAILERP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RETAILERP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RETAILERP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"RETAILERP_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"RETAILERP_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"RETAILERP_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"RETAILERP_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"RETAILERP_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"RETAILERP_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"RETAILERP_PUBSUB_ORDERS_TOPIC" default:"erp-order-events"`
	OrdersSubscription string `envconfig:"RETAILERP_PUBSUB_ORDERS_SUBSCRIPTION" default:"erp-order-events-reporting"`
}

type BigQueryConfig struct {
	Dataset          string `envconfig:"RETAILERP_BIGQUERY_DATASET" default:"retailerp"`
	OrderTotalsTable string `envconfig:"RETAILERP_BIGQUERY_ORDER_TOTALS_TABLE" default:"order_totals"`
	CreateTables     bool   `envconfig:"RETAILERP_BIGQUERY_CREATE_TABLES" default:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"RETAILERP_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"RETAILERP_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"RETAILERP_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// TotalsConfig tunes the order totals calculator.
type TotalsConfig struct {
	AdvisoryTTL time.Duration `envconfig:"RETAILERP_TOTALS_ADVISORY_TTL" default:"3s"`
}

type FormsConfig struct {
	TTL time.Duration `envconfig:"RETAILERP_FORMS_TTL" default:"12h"`
}

type CatalogConfig struct {
	CacheTTL time.Duration `envconfig:"RETAILERP_CATALOG_CACHE_TTL" default:"5m"`
}

type StreamsConfig struct {
	Buffer    int           `envconfig:"RETAILERP_STREAMS_BUFFER" default:"32"`
	Heartbeat time.Duration `envconfig:"RETAILERP_STREAMS_HEARTBEAT" default:"25s"`
}

type RateLimitConfig struct {
	SubmitWindow time.Duration `envconfig:"RETAILERP_RATE_LIMIT_SUBMIT_WINDOW" default:"1m"`
	SubmitLimit  int           `envconfig:"RETAILERP_RATE_LIMIT_SUBMIT_LIMIT" default:"60"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
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
