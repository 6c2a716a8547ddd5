// Copyright 2026 Chava Systems
//
// Environment-driven configuration for a Chava deployment

// Package config loads Chava's runtime configuration from environment
// variables, with an optional YAML deployment profile overlay via
// gopkg.in/yaml.v3.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the process-wide settings a Chava deployment needs: where
// the KMS server secret comes from, how the persistent store connects,
// and where the service listens.
type Config struct {
	// KMS Configuration
	KMSServerSecretPath string // path to a file holding σ, the KMS server secret
	PBKDF2Iterations    int

	// Storage Configuration
	StoreBackend   string // "memory" or "postgres"
	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int
	DBConnMaxLifetime time.Duration

	// Server Configuration
	ListenAddr  string
	MetricsAddr string

	LogLevel string
}

// Load populates a Config from environment variables, applying a
// defaults-with-override discipline throughout.
func Load() (*Config, error) {
	cfg := &Config{
		KMSServerSecretPath: getEnv("CHAVA_KMS_SECRET_PATH", ""),
		PBKDF2Iterations:    getEnvInt("CHAVA_PBKDF2_ITERATIONS", 100_000),

		StoreBackend:      getEnv("CHAVA_STORE_BACKEND", "memory"),
		DatabaseURL:       getEnv("CHAVA_DATABASE_URL", ""),
		DBMaxOpenConns:    getEnvInt("CHAVA_DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:    getEnvInt("CHAVA_DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime: getEnvDuration("CHAVA_DB_CONN_MAX_LIFETIME", time.Hour),

		ListenAddr:  getEnv("CHAVA_LISTEN_ADDR", "127.0.0.1:8080"),
		MetricsAddr: getEnv("CHAVA_METRICS_ADDR", "127.0.0.1:9090"),

		LogLevel: getEnv("CHAVA_LOG_LEVEL", "info"),
	}
	return cfg, nil
}

// Validate checks cross-field invariants that Load cannot enforce on its
// own (a postgres backend needs a DSN; the secret path must be set).
func (c *Config) Validate() error {
	var problems []string
	if c.KMSServerSecretPath == "" {
		problems = append(problems, "CHAVA_KMS_SECRET_PATH is required but not set")
	}
	if c.StoreBackend == "postgres" && c.DatabaseURL == "" {
		problems = append(problems, "CHAVA_DATABASE_URL is required when CHAVA_STORE_BACKEND=postgres")
	}
	if c.StoreBackend != "memory" && c.StoreBackend != "postgres" {
		problems = append(problems, fmt.Sprintf("CHAVA_STORE_BACKEND must be \"memory\" or \"postgres\", got %q", c.StoreBackend))
	}
	if len(problems) > 0 {
		return fmt.Errorf("config: invalid configuration: %v", problems)
	}
	return nil
}

// LoadServerSecret reads the KMS server secret from KMSServerSecretPath.
func (c *Config) LoadServerSecret() ([]byte, error) {
	secret, err := os.ReadFile(c.KMSServerSecretPath)
	if err != nil {
		return nil, fmt.Errorf("config: read KMS server secret: %w", err)
	}
	return secret, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
