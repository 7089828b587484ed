package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "BIND_ADDR", "ENVIRONMENT", "BASE_URL", "LOG_LEVEL",
		"STORAGE_DRIVER", "STORAGE_PATH", "DATABASE_URL", "STORAGE_MAX_CONNECTIONS",
		"IMAGES_ROOT", "GRAPH_FETCH_CONCURRENCY", "MCP_ENABLED",
	} {
		if value, ok := os.LookupEnv(key); ok {
			os.Unsetenv(key)
			t.Cleanup(func() { os.Setenv(key, value) })
		}
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	clearConfigEnv(t)

	path := writeConfig(t, `
port: "3450"
env: "test"
storage:
  driver: "bolt"
  path: "/tmp/model.db"
graph:
  fetch_concurrency: 4
`)

	t.Setenv("PORT", "4450")
	t.Setenv("STORAGE_DRIVER", "sqlite")

	cfg, err := Load(path, "test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "4450" {
		t.Errorf("expected Port=4450 (from env), got %s", cfg.Port)
	}
	if cfg.Storage.Driver != DriverSQLite {
		t.Errorf("expected driver sqlite (from env), got %s", cfg.Storage.Driver)
	}
	if cfg.Storage.Path != "/tmp/model.db" {
		t.Errorf("expected storage path from YAML, got %s", cfg.Storage.Path)
	}
	if cfg.Graph.FetchConcurrency != 4 {
		t.Errorf("expected fetch concurrency 4, got %d", cfg.Graph.FetchConcurrency)
	}
	if cfg.Version != "test-version" {
		t.Errorf("expected version test-version, got %s", cfg.Version)
	}
	if cfg.BaseURL != "http://localhost:4450" {
		t.Errorf("expected derived BaseURL, got %s", cfg.BaseURL)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), "dev")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Storage.Driver != DriverFile {
		t.Errorf("expected default driver file, got %s", cfg.Storage.Driver)
	}
	if cfg.Port != "3450" {
		t.Errorf("expected default port 3450, got %s", cfg.Port)
	}
	if cfg.Graph.FetchConcurrency != 8 {
		t.Errorf("expected default fetch concurrency 8, got %d", cfg.Graph.FetchConcurrency)
	}
	if !cfg.MCP.Enabled {
		t.Error("expected MCP enabled by default")
	}
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	clearConfigEnv(t)
	path := writeConfig(t, "storage:\n  driver: \"mongo\"\n")

	_, err := Load(path, "dev")
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if !strings.Contains(err.Error(), "unknown storage driver") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			LogLevel: "info",
			Storage:  StorageConfig{Driver: DriverFile, Path: "./data"},
			Graph:    GraphConfig{FetchConcurrency: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid file driver", func(c *Config) {}, ""},
		{"postgres without url", func(c *Config) { c.Storage.Driver = DriverPostgres }, "DATABASE_URL"},
		{"postgres with url", func(c *Config) {
			c.Storage.Driver = DriverPostgres
			c.Storage.DatabaseURL = "postgres://u:p@localhost:5432/db"
		}, ""},
		{"empty path", func(c *Config) { c.Storage.Path = " " }, "storage.path"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log level"},
		{"zero concurrency", func(c *Config) { c.Graph.FetchConcurrency = 0 }, "fetch_concurrency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestListenAddr(t *testing.T) {
	cfg := &Config{BindAddr: "0.0.0.0", Port: "8080"}
	if got := cfg.ListenAddr(); got != "0.0.0.0:8080" {
		t.Errorf("ListenAddr() = %q", got)
	}
}
