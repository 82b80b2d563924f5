package config

const (
	EnvPrefix = "RETAILERP"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv       = "RETAILERP_APP_ENV"
	EnvPort         = "RETAILERP_APP_PORT"
	EnvLogLevel     = "RETAILERP_LOG_LEVEL"
	EnvLogWarnStack = "RETAILERP_LOG_WARN_STACK"
	EnvCORSOrigins  = "RETAILERP_CORS_ORIGINS"
	EnvServiceKind  = "RETAILERP_SERVICE_KIND"

	EnvDBDSN      = "RETAILERP_DB_DSN"
	EnvDBDriver   = "RETAILERP_DB_DRIVER"
	EnvDBHost     = "RETAILERP_DB_HOST"
	EnvDBPort     = "RETAILERP_DB_PORT"
	EnvDBUser     = "RETAILERP_DB_USER"
	EnvDBPassword = "RETAILERP_DB_PASSWORD"
	EnvDBName     = "RETAILERP_DB_NAME"
	EnvDBSSLMode  = "RETAILERP_DB_SSLMODE"

	EnvRedisURL  = "RETAILERP_REDIS_URL"
	EnvRedisAddr = "RETAILERP_REDIS_ADDR"

	EnvUseSQLite   = "RETAILERP_USE_SQLITE"
	EnvAutoMigrate = "RETAILERP_AUTO_MIGRATE"

	EnvGCPProjectID = "RETAILERP_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic = "RETAILERP_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub   = "RETAILERP_PUBSUB_ORDERS_SUBSCRIPTION"

	EnvBigQueryDataset      = "RETAILERP_BIGQUERY_DATASET"
	EnvBigQueryTotalsTable  = "RETAILERP_BIGQUERY_ORDER_TOTALS_TABLE"
	EnvBigQueryCreateTables = "RETAILERP_BIGQUERY_CREATE_TABLES"

	EnvTotalsAdvisoryTTL = "RETAILERP_TOTALS_ADVISORY_TTL"
	EnvFormsTTL          = "RETAILERP_FORMS_TTL"
	EnvCatalogCacheTTL   = "RETAILERP_CATALOG_CACHE_TTL"
	EnvStreamsBuffer     = "RETAILERP_STREAMS_BUFFER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
