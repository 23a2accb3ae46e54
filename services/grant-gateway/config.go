package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config captures runtime configuration for the grant gateway service.
type Config struct {
	ListenAddress        string `toml:"ListenAddress"`
	DataDir              string `toml:"DataDir"`
	Backend              string `toml:"Backend"` // "leveldb", "bolt" or "memory"
	Environment          string `toml:"Environment"`
	APISecretEnv         string `toml:"APISecretEnv"`
	AllowedTimestampSkew string `toml:"AllowedTimestampSkew"`

	apiSecret     string
	timestampSkew time.Duration
}

const (
	defaultListenAddress = ":8086"
	defaultDataDir       = "grant-gateway-data"
	defaultBackend       = "leveldb"
	defaultAPISecretEnv  = "GRANT_GATEWAY_API_SECRET"
	defaultSkew          = 2 * time.Minute
)

// LoadConfig reads the TOML configuration at path, applying defaults for
// missing fields. Secrets are never stored in the file; the API secret is
// read from the environment variable named by APISecretEnv.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ListenAddress: defaultListenAddress,
		DataDir:       defaultDataDir,
		Backend:       defaultBackend,
		APISecretEnv:  defaultAPISecretEnv,
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return Config{}, fmt.Errorf("decode config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, err
		}
	}

	if listen := strings.TrimSpace(os.Getenv("GRANT_GATEWAY_LISTEN")); listen != "" {
		cfg.ListenAddress = listen
	}
	if dir := strings.TrimSpace(os.Getenv("GRANT_GATEWAY_DATA_DIR")); dir != "" {
		cfg.DataDir = dir
	}
	if backend := strings.TrimSpace(os.Getenv("GRANT_GATEWAY_BACKEND")); backend != "" {
		cfg.Backend = backend
	}

	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	switch cfg.Backend {
	case "leveldb", "bolt", "memory":
	default:
		return Config{}, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}

	cfg.timestampSkew = defaultSkew
	if raw := strings.TrimSpace(cfg.AllowedTimestampSkew); raw != "" {
		skew, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse AllowedTimestampSkew: %w", err)
		}
		cfg.timestampSkew = skew
	}

	cfg.apiSecret = strings.TrimSpace(os.Getenv(cfg.APISecretEnv))
	if cfg.apiSecret == "" {
		return Config{}, fmt.Errorf("API secret environment variable %s is not set", cfg.APISecretEnv)
	}
	return cfg, nil
}
