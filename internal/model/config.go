package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hay-kot/criterio"
	"github.com/spf13/viper"
)

// Backend kinds.
const (
	BackendSQLite = "sqlite"
	BackendHTTP   = "http"
)

// Invalidation granularities. Coarse invalidates only the views named by
// each mutation; strict also invalidates the aggregate views.
const (
	InvalidationCoarse = "coarse"
	InvalidationStrict = "strict"
)

// BackendConfig selects and configures the task store.
type BackendConfig struct {
	// Kind is BackendSQLite or BackendHTTP.
	Kind string `mapstructure:"kind" yaml:"kind"`

	// DBPath is the SQLite database path for BackendSQLite.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`

	// BaseURL is the API root for BackendHTTP.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// Token overrides the keyring-stored API token when set.
	Token string `mapstructure:"token" yaml:"token,omitempty"`

	// ExportDir is where the SQLite backend writes task exports.
	ExportDir string `mapstructure:"export_dir" yaml:"export_dir"`
}

// CacheConfig holds view-cache settings.
type CacheConfig struct {
	Size               int    `mapstructure:"size" yaml:"size"`
	Invalidation       string `mapstructure:"invalidation" yaml:"invalidation"`
	RefreshIntervalSec int    `mapstructure:"refresh_interval_sec" yaml:"refresh_interval_sec"`
}

// RefreshInterval returns the aggregate refresh window as a duration.
func (c CacheConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSec) * time.Second
}

// FilterConfig holds defaults for the filter location.
type FilterConfig struct {
	DefaultTake int `mapstructure:"default_take" yaml:"default_take"`
	MaxTake     int `mapstructure:"max_take" yaml:"max_take"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Tenant  string        `mapstructure:"tenant" yaml:"tenant"`
	Locale  string        `mapstructure:"locale" yaml:"locale"`
	Backend BackendConfig `mapstructure:"backend" yaml:"backend"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Filters FilterConfig  `mapstructure:"filters" yaml:"filters"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/advisortasks/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "advisortasks", "config.yaml")
}

// DefaultDataDir returns the directory holding the SQLite database and exports.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "advisortasks")
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	dataDir := DefaultDataDir()
	return &AppConfig{
		Tenant: "default",
		Locale: "en",
		Backend: BackendConfig{
			Kind:      BackendSQLite,
			DBPath:    filepath.Join(dataDir, "tasks.db"),
			ExportDir: filepath.Join(dataDir, "exports"),
		},
		Cache: CacheConfig{
			Size:               256,
			Invalidation:       InvalidationCoarse,
			RefreshIntervalSec: 300,
		},
		Filters: FilterConfig{
			DefaultTake: 10,
			MaxTake:     100,
		},
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info"},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	def := DefaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("tenant", def.Tenant)
	v.SetDefault("locale", def.Locale)
	v.SetDefault("backend.kind", def.Backend.Kind)
	v.SetDefault("backend.db_path", def.Backend.DBPath)
	v.SetDefault("backend.export_dir", def.Backend.ExportDir)
	v.SetDefault("cache.size", def.Cache.Size)
	v.SetDefault("cache.invalidation", def.Cache.Invalidation)
	v.SetDefault("cache.refresh_interval_sec", def.Cache.RefreshIntervalSec)
	v.SetDefault("filters.default_take", def.Filters.DefaultTake)
	v.SetDefault("filters.max_take", def.Filters.MaxTake)
	v.SetDefault("server.addr", def.Server.Addr)
	v.SetDefault("log.level", def.Log.Level)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return def, nil
		}
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return def, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("tenant", cfg.Tenant)
	v.Set("locale", cfg.Locale)
	v.Set("backend", cfg.Backend)
	v.Set("cache", cfg.Cache)
	v.Set("filters", cfg.Filters)
	v.Set("server", cfg.Server)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// Validate checks the configuration for structural errors.
func (c *AppConfig) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("tenant", c.Tenant, required),
		c.validateBackend(),
		c.validateCache(),
		c.validateFilters(),
	)
}

func (c *AppConfig) validateBackend() error {
	var errs criterio.FieldErrorsBuilder
	switch c.Backend.Kind {
	case BackendSQLite:
		if c.Backend.DBPath == "" {
			errs = errs.Append("backend.db_path", fmt.Errorf("is required for the sqlite backend"))
		}
	case BackendHTTP:
		if c.Backend.BaseURL == "" {
			errs = errs.Append("backend.base_url", fmt.Errorf("is required for the http backend"))
		}
	default:
		errs = errs.Append("backend.kind", fmt.Errorf("unknown backend %q", c.Backend.Kind))
	}
	return errs.ToError()
}

func (c *AppConfig) validateCache() error {
	var errs criterio.FieldErrorsBuilder
	if c.Cache.Size < 1 {
		errs = errs.Append("cache.size", fmt.Errorf("must be positive"))
	}
	if c.Cache.Invalidation != InvalidationCoarse && c.Cache.Invalidation != InvalidationStrict {
		errs = errs.Append("cache.invalidation", fmt.Errorf("must be %q or %q", InvalidationCoarse, InvalidationStrict))
	}
	if c.Cache.RefreshIntervalSec < 0 {
		errs = errs.Append("cache.refresh_interval_sec", fmt.Errorf("must not be negative"))
	}
	return errs.ToError()
}

func (c *AppConfig) validateFilters() error {
	var errs criterio.FieldErrorsBuilder
	if c.Filters.MaxTake < 1 {
		errs = errs.Append("filters.max_take", fmt.Errorf("must be positive"))
	}
	if c.Filters.DefaultTake < 1 || c.Filters.DefaultTake > c.Filters.MaxTake {
		errs = errs.Append("filters.default_take", fmt.Errorf("must be between 1 and max_take"))
	}
	return errs.ToError()
}

func required(s string) error {
	if s == "" {
		return fmt.Errorf("is required")
	}
	return nil
}
