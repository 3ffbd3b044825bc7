package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Storage    StorageConfig    `yaml:"storage"`
	Database   DatabaseConfig   `yaml:"database"`
	Session    SessionConfig    `yaml:"session"`
	Export     ExportConfig     `yaml:"export"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec" validate:"gt=0"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" validate:"min=1"`
	CacheTTLSeconds int           `yaml:"cache_ttl_seconds"`
	CacheTTL        time.Duration `yaml:"-"`
	StaticDir       string        `yaml:"static_dir"`
}

// CatalogConfig points at the truck registry and checklist definitions.
// Either Dir or BaseURL must be set; Dir wins when both are.
type CatalogConfig struct {
	Dir             string        `yaml:"dir" validate:"required_without=BaseURL"`
	BaseURL         string        `yaml:"base_url" validate:"omitempty,url"`
	HTTPProxy       string        `yaml:"http_proxy"`
	TimeoutSeconds  int           `yaml:"timeout_seconds"`
	Timeout         time.Duration `yaml:"-"`
	CacheTTLSeconds int           `yaml:"cache_ttl_seconds"`
	CacheTTL        time.Duration `yaml:"-"`
	DefaultTruck    int64         `yaml:"default_truck"`
	Preload         bool          `yaml:"preload"`
	// RefreshIntervalSeconds re-reads the catalog periodically; 0 disables it.
	RefreshIntervalSeconds int           `yaml:"refresh_interval_seconds" validate:"min=0"`
	RefreshInterval        time.Duration `yaml:"-"`
}

// StorageConfig selects where inspection records are persisted.
type StorageConfig struct {
	Backend  string `yaml:"backend" validate:"oneof=database file"`
	FilePath string `yaml:"file_path" validate:"required_if=Backend file"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn" validate:"required"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogQueries             bool   `yaml:"log_queries"`
}

// SessionConfig controls how long an idle checklist session is kept.
type SessionConfig struct {
	TTLMinutes int           `yaml:"ttl_minutes"`
	TTL        time.Duration `yaml:"-"`
}

// ExportConfig controls the exported inspection document.
type ExportConfig struct {
	Timezone string `yaml:"timezone"`
}

// PushConfig holds the VAPID keys for defect alert notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// LogConfig holds logger settings. File is optional and rotated by size.
type LogConfig struct {
	Level      string `yaml:"level" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" validate:"oneof=console json"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return &cfg, nil
}

// ApplyDefaults fills zero values and derives the duration fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 20
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}
	cfg.Server.CacheTTL = time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	if cfg.Server.StaticDir == "" {
		cfg.Server.StaticDir = "./static"
	}

	if cfg.Catalog.TimeoutSeconds <= 0 {
		cfg.Catalog.TimeoutSeconds = 30
	}
	cfg.Catalog.Timeout = time.Duration(cfg.Catalog.TimeoutSeconds) * time.Second
	if cfg.Catalog.CacheTTLSeconds <= 0 {
		cfg.Catalog.CacheTTLSeconds = 300
	}
	cfg.Catalog.CacheTTL = time.Duration(cfg.Catalog.CacheTTLSeconds) * time.Second
	cfg.Catalog.RefreshInterval = time.Duration(cfg.Catalog.RefreshIntervalSeconds) * time.Second
	if cfg.Catalog.DefaultTruck == 0 {
		cfg.Catalog.DefaultTruck = 341
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "database"
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "inspections.db"
	}
	if cfg.Database.MaxOpenConns <= 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns <= 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetimeMinutes <= 0 {
		cfg.Database.ConnMaxLifetimeMinutes = 30
	}

	if cfg.Session.TTLMinutes <= 0 {
		cfg.Session.TTLMinutes = 60
	}
	cfg.Session.TTL = time.Duration(cfg.Session.TTLMinutes) * time.Minute

	if cfg.Export.Timezone == "" {
		cfg.Export.Timezone = "Local"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.MaxSizeMB <= 0 {
		cfg.Log.MaxSizeMB = 50
	}
	if cfg.Log.MaxBackups <= 0 {
		cfg.Log.MaxBackups = 5
	}
	if cfg.Log.MaxAgeDays <= 0 {
		cfg.Log.MaxAgeDays = 28
	}
}
