// Copyright 2026 Chava Systems
//
// Tests for environment-driven configuration loading

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	for _, key := range []string{
		"CHAVA_KMS_SECRET_PATH", "CHAVA_PBKDF2_ITERATIONS", "CHAVA_STORE_BACKEND",
		"CHAVA_DATABASE_URL", "CHAVA_DB_MAX_OPEN_CONNS", "CHAVA_DB_MAX_IDLE_CONNS",
		"CHAVA_DB_CONN_MAX_LIFETIME", "CHAVA_LISTEN_ADDR", "CHAVA_METRICS_ADDR", "CHAVA_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoreBackend != "memory" {
		t.Errorf("StoreBackend default = %q, want %q", cfg.StoreBackend, "memory")
	}
	if cfg.PBKDF2Iterations != 100_000 {
		t.Errorf("PBKDF2Iterations default = %d, want 100000", cfg.PBKDF2Iterations)
	}
	if cfg.DBConnMaxLifetime != time.Hour {
		t.Errorf("DBConnMaxLifetime default = %v, want 1h", cfg.DBConnMaxLifetime)
	}
	if cfg.ListenAddr != "127.0.0.1:8080" {
		t.Errorf("ListenAddr default = %q", cfg.ListenAddr)
	}
}

func TestLoadHonorsEnvOverrides(t *testing.T) {
	t.Setenv("CHAVA_STORE_BACKEND", "postgres")
	t.Setenv("CHAVA_PBKDF2_ITERATIONS", "5000")
	t.Setenv("CHAVA_DB_CONN_MAX_LIFETIME", "15m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoreBackend != "postgres" {
		t.Errorf("StoreBackend = %q, want postgres", cfg.StoreBackend)
	}
	if cfg.PBKDF2Iterations != 5000 {
		t.Errorf("PBKDF2Iterations = %d, want 5000", cfg.PBKDF2Iterations)
	}
	if cfg.DBConnMaxLifetime != 15*time.Minute {
		t.Errorf("DBConnMaxLifetime = %v, want 15m", cfg.DBConnMaxLifetime)
	}
}

func TestValidateRequiresKMSSecretPath(t *testing.T) {
	cfg := &Config{StoreBackend: "memory"}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate with empty KMSServerSecretPath should fail")
	}
}

func TestValidateRequiresDatabaseURLForPostgres(t *testing.T) {
	cfg := &Config{KMSServerSecretPath: "/tmp/secret", StoreBackend: "postgres"}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate with postgres backend and no DatabaseURL should fail")
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := &Config{KMSServerSecretPath: "/tmp/secret", StoreBackend: "bogus"}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate with unknown backend should fail")
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	cfg := &Config{KMSServerSecretPath: "/tmp/secret", StoreBackend: "memory"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate on well-formed config: %v", err)
	}
}

func TestLoadServerSecretReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secret")
	if err := os.WriteFile(path, []byte("sigma"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg := &Config{KMSServerSecretPath: path}

	got, err := cfg.LoadServerSecret()
	if err != nil {
		t.Fatalf("LoadServerSecret: %v", err)
	}
	if string(got) != "sigma" {
		t.Errorf("LoadServerSecret = %q, want %q", got, "sigma")
	}
}

func TestLoadServerSecretMissingFile(t *testing.T) {
	cfg := &Config{KMSServerSecretPath: filepath.Join(t.TempDir(), "absent")}
	if _, err := cfg.LoadServerSecret(); err == nil {
		t.Error("LoadServerSecret on missing file should fail")
	}
}
