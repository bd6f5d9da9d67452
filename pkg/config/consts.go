package config

// EnvPrefix is passed to envconfig; every field carries its full name via tags.
const EnvPrefix = "PERSONACAST"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv = "PERSONACAST_APP_ENV"
	EnvPort   = "PERSONACAST_APP_PORT"

	EnvDBDSN  = "PERSONACAST_DB_DSN"
	EnvDBHost = "PERSONACAST_DB_HOST"
	EnvDBUser = "PERSONACAST_DB_USER"
	EnvDBName = "PERSONACAST_DB_NAME"

	EnvUseSQLite = "PERSONACAST_USE_SQLITE"
	EnvRedisURL  = "PERSONACAST_REDIS_URL"

	EnvJWTSecret = "PERSONACAST_JWT_SECRET"
	EnvJWTIssuer = "PERSONACAST_JWT_ISSUER"

	EnvRateLimitGenerationMax    = "PERSONACAST_RATE_LIMIT_GENERATION_MAX"
	EnvRateLimitGenerationWindow = "PERSONACAST_RATE_LIMIT_GENERATION_WINDOW"

	EnvSchedulerInterval    = "PERSONACAST_SCHEDULER_INTERVAL"
	EnvSchedulerMaxAttempts = "PERSONACAST_SCHEDULER_MAX_PUBLISH_ATTEMPTS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
