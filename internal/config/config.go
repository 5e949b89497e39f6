// Package config reads the console settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/klwxsrx/storefront-console/internal/tokenstore"
	"github.com/klwxsrx/storefront-console/pkg/log"
)

const (
	TokenStoreMemory = "memory"
	TokenStoreFile   = "file"
	TokenStoreSQL    = "sql"
)

type (
	Config struct {
		APIURL   string `env:"STOREFRONT_API_URL,required"`
		LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

		HTTP       HTTP
		TokenStore TokenStore
		Pulsar     Pulsar
		Session    Session

		MetricsAddress string `env:"METRICS_ADDRESS"`
	}

	HTTP struct {
		Timeout  time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
		RetryMax uint64        `env:"HTTP_RETRY_MAX" envDefault:"2"`
	}

	TokenStore struct {
		Kind                 string        `env:"TOKEN_STORE" envDefault:"file"`
		Dir                  string        `env:"TOKEN_STORE_DIR"`
		SQLDSN               string        `env:"TOKEN_STORE_SQL_DSN"`
		SQLConnectionTimeout time.Duration `env:"TOKEN_STORE_SQL_CONNECTION_TIMEOUT" envDefault:"10s"`
	}

	Pulsar struct {
		Address           string        `env:"PULSAR_ADDRESS"`
		TopicPrefix       string        `env:"PULSAR_TOPIC"`
		ConnectionTimeout time.Duration `env:"PULSAR_CONNECTION_TIMEOUT" envDefault:"5s"`
	}

	Session struct {
		LogoutTimeout      time.Duration `env:"SESSION_LOGOUT_TIMEOUT" envDefault:"5s"`
		KeepaliveInterval  time.Duration `env:"SESSION_KEEPALIVE_INTERVAL" envDefault:"30s"`
		KeepaliveThreshold time.Duration `env:"SESSION_KEEPALIVE_THRESHOLD" envDefault:"2m"`
	}
)

func Parse() (Config, error) {
	return ParseWith(env.Options{})
}

// ParseWith parses with explicit options, Environment overrides the process environment.
func ParseWith(opts env.Options) (Config, error) {
	var cfg Config
	err := env.ParseWithOptions(&cfg, opts)
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	err = cfg.validate()
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Level() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.LevelInfo
	}

	return level
}

// Scope is the token store scope of the configured api.
func (c Config) Scope() string {
	scope, _ := tokenstore.OriginScope(c.APIURL)
	return scope
}

func (c Config) validate() error {
	if _, err := tokenstore.OriginScope(c.APIURL); err != nil {
		return fmt.Errorf("invalid STOREFRONT_API_URL: %w", err)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	switch c.TokenStore.Kind {
	case TokenStoreMemory, TokenStoreFile:
	case TokenStoreSQL:
		if c.TokenStore.SQLDSN == "" {
			return fmt.Errorf("TOKEN_STORE_SQL_DSN is required for the %s token store", TokenStoreSQL)
		}
	default:
		return fmt.Errorf("unknown TOKEN_STORE %q", c.TokenStore.Kind)
	}

	return nil
}
