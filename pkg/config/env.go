package config

// EnvPrefix namespaces every variable read by Load.
const EnvPrefix = "OFFERPAY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv   = "OFFERPAY_APP_ENV"
	EnvPort     = "OFFERPAY_APP_PORT"
	EnvLogLevel = "OFFERPAY_LOG_LEVEL"

	EnvDBDSN  = "OFFERPAY_DB_DSN"
	EnvDBHost = "OFFERPAY_DB_HOST"
	EnvDBUser = "OFFERPAY_DB_USER"
	EnvDBName = "OFFERPAY_DB_NAME"

	EnvRedisURL = "OFFERPAY_REDIS_URL"

	EnvPlatformFeeBps  = "OFFERPAY_PLATFORM_FEE_BPS"
	EnvDispatchTimeout = "OFFERPAY_DISPATCH_TIMEOUT"

	EnvStripeSecret  = "OFFERPAY_STRIPE_SECRET"
	EnvGatewaySecret = "OFFERPAY_GATEWAY_SIGNING_SECRET"
	EnvFXRates       = "OFFERPAY_FX_RATES"
	EnvFXTTL         = "OFFERPAY_FX_TTL"
	EnvSalesTopic    = "OFFERPAY_PUBSUB_SALES_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
