package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	Remote    RemoteConfig
	Session   SessionConfig
	Cart      CartConfig
	Analytics AnalyticsConfig
	CORS      CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SHOPKIT_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOPKIT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SHOPKIT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOPKIT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// RemoteConfig points at the JSON document store the client talks to.
type RemoteConfig struct {
	BaseURL string        `envconfig:"SHOPKIT_REMOTE_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"SHOPKIT_REMOTE_TIMEOUT" default:"10s"`
}

// SessionConfig controls where the persisted session document lives.
type SessionConfig struct {
	StatePath string `envconfig:"SHOPKIT_SESSION_STATE_PATH" default:".shopkit/session.json"`
}

type CartConfig struct {
	MaxQuantity int `envconfig:"SHOPKIT_CART_MAX_QUANTITY" default:"5"`
}

type AnalyticsConfig struct {
	TopProductsLimit int `envconfig:"SHOPKIT_ANALYTICS_TOP_PRODUCTS_LIMIT" default:"5"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"SHOPKIT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}
