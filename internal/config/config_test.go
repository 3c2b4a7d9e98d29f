package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WALLETD_ENCRYPTION_KEY", testKeyHex)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.BasePath != DefaultBasePath {
		t.Errorf("BasePath = %q, want %q", cfg.BasePath, DefaultBasePath)
	}
	if cfg.WorkerCount != DefaultWorkerCount {
		t.Errorf("WorkerCount = %d, want %d", cfg.WorkerCount, DefaultWorkerCount)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if len(cfg.EncryptionKey()) != EncryptionKeyLen {
		t.Errorf("EncryptionKey() length = %d, want %d", len(cfg.EncryptionKey()), EncryptionKeyLen)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WALLETD_ENCRYPTION_KEY", testKeyHex)
	t.Setenv("WALLETD_PORT", "9999")
	t.Setenv("WALLETD_WORKER_COUNT", "2")
	t.Setenv("WALLETD_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 9999 {
		t.Errorf("Port = %d, want 9999", cfg.Port)
	}
	if cfg.WorkerCount != 2 {
		t.Errorf("WorkerCount = %d, want 2", cfg.WorkerCount)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing key", func(c *Config) { c.EncryptionKeyHex = "" }, true},
		{"key not hex", func(c *Config) { c.EncryptionKeyHex = "zz" + testKeyHex[2:] }, true},
		{"key too short", func(c *Config) { c.EncryptionKeyHex = "00112233" }, true},
		{"key too long", func(c *Config) { c.EncryptionKeyHex = testKeyHex + "ff" }, true},
		{"port zero", func(c *Config) { c.Port = 0 }, true},
		{"port too large", func(c *Config) { c.Port = 70000 }, true},
		{"worker count zero", func(c *Config) { c.WorkerCount = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				EncryptionKeyHex: testKeyHex,
				Port:             8080,
				WorkerCount:      5,
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestTransientError(t *testing.T) {
	base := errors.New("database is locked")

	te := NewTransientError(base)
	if !IsTransient(te) {
		t.Error("IsTransient() = false for TransientError")
	}
	if !errors.Is(te, base) {
		t.Error("TransientError does not unwrap to the base error")
	}
	if GetRetryAfter(te) != 0 {
		t.Errorf("GetRetryAfter() = %v, want 0", GetRetryAfter(te))
	}
	if !strings.Contains(te.Error(), "database is locked") {
		t.Errorf("Error() = %q", te.Error())
	}

	withRetry := NewTransientErrorWithRetry(base, 5*time.Second)
	if GetRetryAfter(withRetry) != 5*time.Second {
		t.Errorf("GetRetryAfter() = %v, want 5s", GetRetryAfter(withRetry))
	}

	if IsTransient(base) {
		t.Error("IsTransient() = true for a plain error")
	}
	if IsTransient(nil) {
		t.Error("IsTransient(nil) = true")
	}
	if GetRetryAfter(base) != 0 {
		t.Error("GetRetryAfter() != 0 for a plain error")
	}
}
