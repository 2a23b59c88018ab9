// Package config reads process configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
	"github.com/rs/zerolog"
)

// Storage backends.
const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

// Secret sources.
const (
	SecretSourceEnv = "env"
	SecretSourceSSM = "ssm"
	SecretSourceKMS = "kms"
)

// Config holds the settings read once at startup. The MongoDB connection
// string is not among them: it is resolved through MongoURIParam on the first
// connection attempt.
type Config struct {
	DevMode      bool   `env:"DEV_MODE"`
	Storage      string `env:"STORAGE" envDefault:"mongo"`
	SecretSource string `env:"SECRET_SOURCE"`

	MongoURIParam         string `env:"MONGODB_URI_PARAM" envDefault:"/notes/mongodb-uri"`
	APITokenSecretParam   string `env:"API_TOKEN_SECRET_PARAM"`
	APIGatewaySecretParam string `env:"API_GATEWAY_SECRET_PARAM" envDefault:"/notes/api-gateway-secret"`
	KMSKeyID              string `env:"KMS_KEY_ID" envDefault:"alias/notes-config-key"`

	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Port        string `env:"PORT" envDefault:"8080"`
}

// Load parses the environment into a Config. SECRET_SOURCE defaults to env
// in dev mode and ssm otherwise.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.SecretSource == "" {
		cfg.SecretSource = SecretSourceSSM
		if cfg.DevMode {
			cfg.SecretSource = SecretSourceEnv
		}
	}

	switch cfg.Storage {
	case StorageMongo, StorageMemory:
	default:
		return Config{}, fmt.Errorf("unknown STORAGE %q (want %s or %s)", cfg.Storage, StorageMongo, StorageMemory)
	}
	switch cfg.SecretSource {
	case SecretSourceEnv, SecretSourceSSM, SecretSourceKMS:
	default:
		return Config{}, fmt.Errorf("unknown SECRET_SOURCE %q (want %s, %s or %s)", cfg.SecretSource, SecretSourceEnv, SecretSourceSSM, SecretSourceKMS)
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return Config{}, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	return cfg, nil
}

// Level returns the configured log level.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
