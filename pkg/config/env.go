package config

// EnvPrefix is handed to envconfig; every field carries its full key via tags.
const EnvPrefix = "HELADERIA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	CartMergeCap      = "cap"
	CartMergeUncapped = "uncapped"
)

const (
	EnvAppEnv   = "HELADERIA_APP_ENV"
	EnvPort     = "HELADERIA_APP_PORT"
	EnvLogLevel = "HELADERIA_LOG_LEVEL"
	EnvTimezone = "HELADERIA_TIMEZONE"

	EnvDBDSN  = "HELADERIA_DB_DSN"
	EnvDBHost = "HELADERIA_DB_HOST"
	EnvDBUser = "HELADERIA_DB_USER"
	EnvDBName = "HELADERIA_DB_NAME"

	EnvRedisURL = "HELADERIA_REDIS_URL"

	EnvJWTSecret              = "HELADERIA_JWT_SECRET"
	EnvJWTIssuer              = "HELADERIA_JWT_ISSUER"
	EnvJWTExpMins             = "HELADERIA_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "HELADERIA_REFRESH_TOKEN_TTL_MINUTES"

	EnvUseSQLite   = "HELADERIA_USE_SQLITE"
	EnvAutoMigrate = "HELADERIA_AUTO_MIGRATE"

	EnvCartMergePolicy = "HELADERIA_CART_MERGE_POLICY"
	EnvCartTTL         = "HELADERIA_CART_TTL"

	EnvReportTopN = "HELADERIA_REPORT_TOP_N"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
