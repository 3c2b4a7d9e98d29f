package config

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	EncryptionKeyHex string `envconfig:"WALLETD_ENCRYPTION_KEY"`
	DBPath           string `envconfig:"WALLETD_DB_PATH" default:"./data/walletd.sqlite"`
	Port             int    `envconfig:"WALLETD_PORT" default:"8080"`
	LogLevel         string `envconfig:"WALLETD_LOG_LEVEL" default:"info"`
	LogDir           string `envconfig:"WALLETD_LOG_DIR" default:"./logs"`
	BasePath         string `envconfig:"WALLETD_BASE_PATH" default:"m/44'/60'/0'/0"`
	WorkerCount      int    `envconfig:"WALLETD_WORKER_COUNT" default:"5"`

	ChainRPCURL string `envconfig:"WALLETD_CHAIN_RPC_URL" default:"http://localhost:8545"`
	ChainID     int64  `envconfig:"WALLETD_CHAIN_ID" default:"1"`

	encryptionKey []byte
}

// Load reads configuration from .env file (if present) then from environment variables.
// Environment variables override .env values.
func Load() (*Config, error) {
	// godotenv does NOT override already-set env vars, so real environment
	// variables take precedence over .env values.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			slog.Warn("failed to load .env file", "error", err)
		} else {
			slog.Info("loaded .env file")
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks configuration values for correctness. A missing or
// mis-sized encryption key is a fatal startup error, never a per-request one.
func (c *Config) Validate() error {
	if c.EncryptionKeyHex == "" {
		return fmt.Errorf("%w: WALLETD_ENCRYPTION_KEY is required", ErrInvalidConfig)
	}

	key, err := hex.DecodeString(c.EncryptionKeyHex)
	if err != nil {
		return fmt.Errorf("%w: WALLETD_ENCRYPTION_KEY must be hex: %v", ErrInvalidConfig, err)
	}
	if len(key) != EncryptionKeyLen {
		return fmt.Errorf("%w: encryption key must be %d bytes, got %d", ErrInvalidConfig, EncryptionKeyLen, len(key))
	}
	c.encryptionKey = key

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be 1-65535, got %d", ErrInvalidConfig, c.Port)
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("%w: worker count must be >= 1, got %d", ErrInvalidConfig, c.WorkerCount)
	}

	return nil
}

// EncryptionKey returns the decoded process-wide symmetric key.
// Read-only after Load; safe for concurrent use.
func (c *Config) EncryptionKey() []byte {
	return c.encryptionKey
}
