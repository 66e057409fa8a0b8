package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"infradash/internal/database"
)

type testEnv struct {
	dir    string
	dbPath string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("INFRADASH_BCRYPT_COST", "4")
	dir := t.TempDir()
	return &testEnv{dir: dir, dbPath: filepath.Join(dir, "db.json")}
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", filepath.Join(e.dir, "missing.yaml"), "--db", e.dbPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func (e *testEnv) addService(t *testing.T, hostID string, port int) {
	t.Helper()
	store, err := database.Open(e.dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Services().Create(context.Background(), database.Service{Name: "svc", Port: port, HostID: hostID}); err != nil {
		t.Fatal(err)
	}
}

func TestPortsCommands(t *testing.T) {
	env := setupTestEnv(t)
	env.addService(t, "example-host-1", 3000)

	out, err := env.run(t, "ports", "generate", "example-host-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if strings.TrimSpace(out) != "3001" {
		t.Errorf("expected 3001, got %q", out)
	}

	out, err = env.run(t, "ports", "generate", "example-host-1", "--start", "3000", "--end", "3000")
	if err == nil {
		t.Errorf("expected exhausted range error, got %q", out)
	}

	out, _ = env.run(t, "ports", "check", "example-host-1", "3000")
	if !strings.Contains(out, "in use") {
		t.Errorf("check used: %q", out)
	}
	out, _ = env.run(t, "ports", "check", "example-host-1", "3005")
	if !strings.Contains(out, "available") {
		t.Errorf("check free: %q", out)
	}
	if _, err := env.run(t, "ports", "check", "example-host-1", "abc"); err == nil {
		t.Error("expected invalid port error")
	}

	out, _ = env.run(t, "ports", "used", "example-host-1")
	if strings.TrimSpace(out) != "3000" {
		t.Errorf("used: %q", out)
	}
}

func TestBackupCommands(t *testing.T) {
	env := setupTestEnv(t)

	out, err := env.run(t, "backup", "list")
	if err != nil || !strings.Contains(out, "No backups") {
		t.Fatalf("empty list: %q %v", out, err)
	}

	out, err = env.run(t, "backup", "create")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	fields := strings.Fields(out)
	if len(fields) < 2 || fields[0] != "Created" {
		t.Fatalf("unexpected create output %q", out)
	}
	key := fields[1]

	env.addService(t, "example-host-1", 4000)

	if _, err := env.run(t, "backup", "restore", key); err != nil {
		t.Fatalf("restore: %v", err)
	}
	out, _ = env.run(t, "ports", "used", "example-host-1")
	if strings.TrimSpace(out) != "" {
		t.Errorf("restore should drop later services, used ports %q", out)
	}

	out, _ = env.run(t, "backup", "list")
	if !strings.Contains(out, key) {
		t.Errorf("list missing %s: %q", key, out)
	}

	out, err = env.run(t, "backup", "prune", "--older-than", "1h")
	if err != nil || !strings.Contains(out, "Pruned 0") {
		t.Errorf("prune: %q %v", out, err)
	}
}

func TestUserCommands(t *testing.T) {
	env := setupTestEnv(t)

	if _, err := env.run(t, "user", "setup", "admin"); err == nil {
		t.Error("expected missing password error")
	}

	out, err := env.run(t, "user", "setup", "admin", "--password", "secret")
	if err != nil || !strings.Contains(out, "Created admin user admin") {
		t.Fatalf("setup: %q %v", out, err)
	}

	if _, err := env.run(t, "user", "setup", "other", "-p", "secret"); err == nil {
		t.Error("second setup should fail")
	}

	t.Setenv(passwordEnv, "changed")
	out, err = env.run(t, "user", "passwd", "admin")
	if err != nil || !strings.Contains(out, "Password updated") {
		t.Errorf("passwd: %q %v", out, err)
	}
	if _, err := env.run(t, "user", "passwd", "nobody"); err == nil {
		t.Error("expected error for unknown user")
	}
}

func TestPurgeOrphans(t *testing.T) {
	env := setupTestEnv(t)
	env.addService(t, "gone", 3000)
	env.addService(t, "example-host-1", 3000)

	out, err := env.run(t, "purge", "orphans")
	if err != nil || !strings.Contains(out, "Deleted 1 orphaned") {
		t.Errorf("purge: %q %v", out, err)
	}
}
