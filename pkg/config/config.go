package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Storage drivers accepted by StorageConfig.Driver.
const (
	DriverFile     = "file"
	DriverBolt     = "bolt"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all configuration for immarkus-engine.
// Configuration can come from a YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3450"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	// Storage configuration for the backing documents
	Storage StorageConfig `yaml:"storage"`

	// Images configuration
	Images ImagesConfig `yaml:"images"`

	// Graph builder configuration
	Graph GraphConfig `yaml:"graph"`

	// MCP enables the MCP tool endpoint at /mcp.
	MCP MCPConfig `yaml:"mcp"`
}

// StorageConfig selects and configures the document store.
type StorageConfig struct {
	// Driver is one of file, bolt, sqlite, postgres.
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"file"`

	// Path is the document folder for the file driver, or the database file
	// for bolt and sqlite. The default lives in a hidden folder of the image
	// root, which the image catalog skips.
	Path string `yaml:"path" env:"STORAGE_PATH" env-default:"./data/_immarkus"`

	// DatabaseURL is the PostgreSQL connection URL for the postgres driver.
	DatabaseURL string `yaml:"-" env:"DATABASE_URL"` // Secret - not in YAML

	// MaxConnections bounds the postgres pool.
	MaxConnections int32 `yaml:"max_connections" env:"STORAGE_MAX_CONNECTIONS" env-default:"5"`
}

// ImagesConfig points at the folder scanned for images.
type ImagesConfig struct {
	Root string `yaml:"root" env:"IMAGES_ROOT" env-default:"./data"`
}

// GraphConfig tunes the knowledge graph builder.
type GraphConfig struct {
	// FetchConcurrency bounds concurrent per-image annotation reads.
	FetchConcurrency int `yaml:"fetch_concurrency" env:"GRAPH_FETCH_CONCURRENCY" env-default:"8"`
}

// MCPConfig holds MCP tool server settings.
type MCPConfig struct {
	Enabled bool `yaml:"enabled" env:"MCP_ENABLED" env-default:"true"`
}

// Load reads configuration from path (usually config.yaml) with environment
// variable overrides. A missing file is not an error: defaults and the
// environment are used instead.
func Load(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, fs.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg.applyDockerDefaults(IsRunningInDocker())

	// Auto-derive BaseURL from Port if not explicitly set
	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

// Validate checks values cleanenv cannot check on its own.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverFile, DriverBolt, DriverSQLite:
		if strings.TrimSpace(c.Storage.Path) == "" {
			return fmt.Errorf("storage.path is required for driver %q", c.Storage.Driver)
		}
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for driver %q", DriverPostgres)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}

	if c.Graph.FetchConcurrency < 1 {
		return fmt.Errorf("graph.fetch_concurrency must be at least 1, got %d", c.Graph.FetchConcurrency)
	}
	return nil
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return c.BindAddr + ":" + c.Port
}
