// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"gopkg.in/yaml.v3"

	"infradash/internal/database"
)

// containerDataDir is used for the default data directory when it exists.
var containerDataDir = "/app/data"

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Web        WebConfig        `yaml:"web"`
	Database   DatabaseConfig   `yaml:"database"`
	Ports      PortsConfig      `yaml:"ports"`
	Auth       AuthConfig       `yaml:"auth"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port         string        `yaml:"port" env:"INFRADASH_PORT"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	UploadDir    string        `yaml:"upload_dir" env:"UPLOAD_DIR"`
}

type WebConfig struct {
	StaticDir   string `yaml:"static_dir" env:"INFRADASH_STATIC_DIR"`
	ServeStatic bool   `yaml:"serve_static"`
}

type DatabaseConfig struct {
	// Path is the JSON store file. URL, when set, takes precedence and
	// accepts the file:<path> form.
	Path string `yaml:"path" env:"INFRADASH_DB_PATH"`
	URL  string `yaml:"url" env:"DATABASE_URL"`

	BackupEnabled   bool          `yaml:"backup_enabled" env:"INFRADASH_BACKUP_ENABLED"`
	BackupPath      string        `yaml:"backup_path" env:"INFRADASH_BACKUP_PATH"`
	BackupInterval  time.Duration `yaml:"backup_interval" env:"INFRADASH_BACKUP_INTERVAL"`
	BackupRetention time.Duration `yaml:"backup_retention" env:"INFRADASH_BACKUP_RETENTION"`
}

type PortsConfig struct {
	RangeStart int   `yaml:"range_start"`
	RangeEnd   int   `yaml:"range_end"`
	Reserved   []int `yaml:"reserved" env:"INFRADASH_RESERVED_PORTS" envSeparator:","`
}

type AuthConfig struct {
	BcryptCost int `yaml:"bcrypt_cost" env:"INFRADASH_BCRYPT_COST"`
}

type PrometheusConfig struct {
	Enabled     bool   `yaml:"enabled" env:"INFRADASH_METRICS_ENABLED"`
	MetricsPath string `yaml:"metrics_path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"INFRADASH_LOG_LEVEL"`
	Format string `yaml:"format" env:"INFRADASH_LOG_FORMAT"`
}

// Load reads filename (a missing file yields defaults), applies environment
// overrides, fills defaults and validates the result.
func Load(filename string) (*Config, error) {
	config, err := loadConfigFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	setDefaults(config)

	if err := validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func loadConfigFile(filename string) (*Config, error) {
	var config Config
	if filename == "" {
		return &config, nil
	}

	data, err := os.ReadFile(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return &config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &config, nil
}

// DataDir is the directory holding the store file, uploads and backups
// unless configured otherwise.
func DataDir() string {
	if info, err := os.Stat(containerDataDir); err == nil && info.IsDir() {
		return containerDataDir
	}
	return "./data"
}

func setDefaults(cfg *Config) {
	dataDir := DataDir()

	// Server defaults
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8000"
	}
	if !strings.Contains(cfg.Server.Port, ":") {
		cfg.Server.Port = ":" + cfg.Server.Port
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.UploadDir == "" {
		cfg.Server.UploadDir = filepath.Join(dataDir, "uploads")
	}

	// Web defaults
	if cfg.Web.StaticDir == "" {
		cfg.Web.StaticDir = "web"
	}

	// Database defaults
	if cfg.Database.Path == "" {
		cfg.Database.Path = filepath.Join(dataDir, "db.json")
	}
	cfg.Database.Path = database.ResolvePath(cfg.Database.URL, cfg.Database.Path)
	if cfg.Database.BackupPath == "" {
		cfg.Database.BackupPath = filepath.Join(filepath.Dir(cfg.Database.Path), "backups.db")
	}
	if cfg.Database.BackupInterval == 0 {
		cfg.Database.BackupInterval = time.Hour
	}
	if cfg.Database.BackupRetention == 0 {
		cfg.Database.BackupRetention = 7 * 24 * time.Hour
	}

	// Port allocator defaults
	if cfg.Ports.RangeStart == 0 {
		cfg.Ports.RangeStart = 3000
	}
	if cfg.Ports.RangeEnd == 0 {
		cfg.Ports.RangeEnd = 65535
	}
	if cfg.Ports.Reserved == nil {
		cfg.Ports.Reserved = []int{22, 80, 443, 3306, 5432, 6379, 8080, 8443}
	}

	if cfg.Auth.BcryptCost == 0 {
		cfg.Auth.BcryptCost = 12
	}

	// Prometheus defaults
	if cfg.Prometheus.MetricsPath == "" {
		cfg.Prometheus.MetricsPath = "/metrics"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

func validate(cfg *Config) error {
	if cfg.Ports.RangeStart < database.MinPort || cfg.Ports.RangeEnd > database.MaxPort {
		return fmt.Errorf("ports range must be within %d-%d", database.MinPort, database.MaxPort)
	}
	if cfg.Ports.RangeStart > cfg.Ports.RangeEnd {
		return fmt.Errorf("ports.range_start (%d) must not exceed ports.range_end (%d)", cfg.Ports.RangeStart, cfg.Ports.RangeEnd)
	}
	for _, p := range cfg.Ports.Reserved {
		if p < database.MinPort || p > database.MaxPort {
			return fmt.Errorf("ports.reserved contains invalid port: %d", p)
		}
	}

	if cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost must be between 4 and 31")
	}

	if cfg.Database.BackupEnabled && cfg.Database.BackupInterval < time.Minute {
		return fmt.Errorf("database.backup_interval must be at least 1m")
	}
	if cfg.Database.BackupRetention < 0 {
		return fmt.Errorf("database.backup_retention cannot be negative")
	}

	if !strings.HasPrefix(cfg.Prometheus.MetricsPath, "/") {
		return fmt.Errorf("prometheus.metrics_path must start with /")
	}

	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json")
	}

	return nil
}
