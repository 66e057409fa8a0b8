package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != ":8000" {
		t.Errorf("expected :8000, got %s", cfg.Server.Port)
	}
	if filepath.Base(cfg.Database.Path) != "db.json" {
		t.Errorf("unexpected db path %s", cfg.Database.Path)
	}
	if cfg.Ports.RangeStart != 3000 || cfg.Ports.RangeEnd != 65535 {
		t.Errorf("unexpected port range %d-%d", cfg.Ports.RangeStart, cfg.Ports.RangeEnd)
	}
	if !reflect.DeepEqual(cfg.Ports.Reserved, []int{22, 80, 443, 3306, 5432, 6379, 8080, 8443}) {
		t.Errorf("unexpected reserved ports %v", cfg.Ports.Reserved)
	}
	if cfg.Auth.BcryptCost != 12 {
		t.Errorf("expected bcrypt cost 12, got %d", cfg.Auth.BcryptCost)
	}
	if cfg.Prometheus.MetricsPath != "/metrics" || cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("unexpected defaults %+v %+v", cfg.Prometheus, cfg.Logging)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  port: ":9000"
  read_timeout: 5s
database:
  path: /srv/infra/db.json
  backup_enabled: true
  backup_interval: 2h
ports:
  range_start: 4000
  range_end: 4100
  reserved: [4001]
logging:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != ":9000" || cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("unexpected server config %+v", cfg.Server)
	}
	if cfg.Database.Path != "/srv/infra/db.json" || cfg.Database.BackupPath != "/srv/infra/backups.db" {
		t.Errorf("unexpected database config %+v", cfg.Database)
	}
	if cfg.Database.BackupInterval != 2*time.Hour {
		t.Errorf("unexpected backup interval %v", cfg.Database.BackupInterval)
	}
	if !reflect.DeepEqual(cfg.Ports.Reserved, []int{4001}) {
		t.Errorf("unexpected reserved ports %v", cfg.Ports.Reserved)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  port: \":9000\"\nlogging:\n  level: warn\n")
	t.Setenv("INFRADASH_PORT", "7000")
	t.Setenv("INFRADASH_LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "file:/var/lib/infra.db")
	t.Setenv("INFRADASH_RESERVED_PORTS", "22,80")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != ":7000" {
		t.Errorf("expected :7000, got %s", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug, got %s", cfg.Logging.Level)
	}
	if cfg.Database.Path != "/var/lib/infra.json" {
		t.Errorf("expected /var/lib/infra.json, got %s", cfg.Database.Path)
	}
	if !reflect.DeepEqual(cfg.Ports.Reserved, []int{22, 80}) {
		t.Errorf("unexpected reserved ports %v", cfg.Ports.Reserved)
	}
}

func TestLegacyDatabaseURLFallsBack(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:./prisma/database.db")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if filepath.Base(cfg.Database.Path) != "db.json" {
		t.Errorf("expected default db.json, got %s", cfg.Database.Path)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"inverted range", "ports:\n  range_start: 5000\n  range_end: 4000\n", "range_start"},
		{"range too high", "ports:\n  range_end: 70000\n", "within"},
		{"bad reserved", "ports:\n  reserved: [-1]\n", "reserved"},
		{"bad cost", "auth:\n  bcrypt_cost: 40\n", "bcrypt_cost"},
		{"bad format", "logging:\n  format: xml\n", "logging.format"},
		{"bad metrics path", "prometheus:\n  metrics_path: metrics\n", "metrics_path"},
		{"short backup interval", "database:\n  backup_enabled: true\n  backup_interval: 1s\n", "backup_interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "server: [")); err == nil {
		t.Error("expected parse error")
	}
}
