package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadAppliesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: prod
apiServer:
  addr: ":9090"
sync:
  writeRate: 5
  writeBurst: 10
store:
  notificationRetention: 50
telemetry:
  serviceName: backoffice-prod
  otlpEndpoint: collector:4318
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Environment != EnvProd {
		t.Errorf("environment = %q", cfg.Environment)
	}
	if cfg.APIServer.Addr != ":9090" {
		t.Errorf("addr = %q", cfg.APIServer.Addr)
	}
	if cfg.Store.NotificationRetention != 50 {
		t.Errorf("retention = %d", cfg.Store.NotificationRetention)
	}
	// Unspecified values keep their defaults.
	if cfg.Sync.QueueSize != 64 {
		t.Errorf("queueSize = %d", cfg.Sync.QueueSize)
	}
}

func TestLoadOrDefaultWithoutPath(t *testing.T) {
	cfg, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.Environment != EnvDev || cfg.APIServer.Addr != ":8080" {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestValidateRejectsUnknownEnvironment(t *testing.T) {
	path := writeConfig(t, `
environment: sandbox
telemetry:
  serviceName: backoffice
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "environment") {
		t.Errorf("expected environment error, got %v", err)
	}
}

func TestValidateRequiresMigrationsPathWithDSN(t *testing.T) {
	path := writeConfig(t, `
environment: dev
database:
  dsn: postgres://localhost/backoffice
  migrationsPath: ""
telemetry:
  serviceName: backoffice
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "migrationsPath") {
		t.Errorf("expected migrationsPath error, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
