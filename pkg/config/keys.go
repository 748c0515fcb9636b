package config

// EnvPrefix scopes every environment variable the loader reads.
const EnvPrefix = "SHOPKIT"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv        = "SHOPKIT_APP_ENV"
	EnvPort          = "SHOPKIT_APP_PORT"
	EnvLogLevel      = "SHOPKIT_LOG_LEVEL"
	EnvRemoteBaseURL = "SHOPKIT_REMOTE_BASE_URL"
	EnvRemoteTimeout = "SHOPKIT_REMOTE_TIMEOUT"
	EnvStatePath     = "SHOPKIT_SESSION_STATE_PATH"
	EnvMaxQuantity   = "SHOPKIT_CART_MAX_QUANTITY"
)
