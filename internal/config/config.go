// Package config manages application configuration loading and validation.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment identifies the deployment environment.
type Environment string

// Supported environments.
const (
	EnvDev     Environment = "dev"
	EnvStaging Environment = "staging"
	EnvProd    Environment = "prod"
)

// APIServerConfig configures the admin HTTP surface.
type APIServerConfig struct {
	Addr string `yaml:"addr"`
}

// SyncConfig tunes the customer-facing synchronization bridge.
type SyncConfig struct {
	// WriteRate limits status pushes per second per connection.
	WriteRate  float64 `yaml:"writeRate"`
	WriteBurst int     `yaml:"writeBurst"`
	// QueueSize bounds the per-connection outbound buffer. Broadcasts beyond
	// a full buffer are dropped for that connection, never blocked on.
	QueueSize int `yaml:"queueSize"`
}

// StoreConfig tunes in-memory retention.
type StoreConfig struct {
	NotificationRetention int `yaml:"notificationRetention"`
}

// DatabaseConfig configures the optional Postgres backend. An empty DSN
// selects pure in-memory operation.
type DatabaseConfig struct {
	DSN            string `yaml:"dsn"`
	MigrationsPath string `yaml:"migrationsPath"`
}

// TelemetryConfig configures OTLP metric export.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlpEndpoint"`
	ServiceName  string `yaml:"serviceName"`
}

// AppConfig is the unified application configuration sourced from YAML.
type AppConfig struct {
	Environment Environment     `yaml:"environment"`
	APIServer   APIServerConfig `yaml:"apiServer"`
	Sync        SyncConfig      `yaml:"sync"`
	Store       StoreConfig     `yaml:"store"`
	Database    DatabaseConfig  `yaml:"database"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
}

// Default returns the configuration used when no file is supplied.
func Default() AppConfig {
	return AppConfig{
		Environment: EnvDev,
		APIServer:   APIServerConfig{Addr: ":8080"},
		Sync:        SyncConfig{WriteRate: 20, WriteBurst: 40, QueueSize: 64},
		Store:       StoreConfig{NotificationRetention: 200},
		Database:    DatabaseConfig{MigrationsPath: "db/migrations"},
		Telemetry:   TelemetryConfig{ServiceName: "backoffice"},
	}
}

// Load reads and validates an AppConfig from the provided YAML file.
func Load(configPath string) (AppConfig, error) {
	reader, closer, err := openConfigFile(configPath)
	if err != nil {
		return AppConfig{}, err
	}
	defer closer()

	bytes, err := io.ReadAll(reader)
	if err != nil {
		return AppConfig{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(bytes, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.normalise()

	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

// LoadOrDefault loads the file when path is non-empty, otherwise returns the
// validated defaults.
func LoadOrDefault(configPath string) (AppConfig, error) {
	if strings.TrimSpace(configPath) == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	return Load(configPath)
}

func (c *AppConfig) normalise() {
	c.Environment = Environment(strings.ToLower(strings.TrimSpace(string(c.Environment))))
	c.APIServer.Addr = strings.TrimSpace(c.APIServer.Addr)
	c.Database.DSN = strings.TrimSpace(c.Database.DSN)
	c.Database.MigrationsPath = strings.TrimSpace(c.Database.MigrationsPath)
	c.Telemetry.OTLPEndpoint = strings.TrimSpace(c.Telemetry.OTLPEndpoint)
	c.Telemetry.ServiceName = strings.TrimSpace(c.Telemetry.ServiceName)

	if c.Store.NotificationRetention <= 0 {
		c.Store.NotificationRetention = 200
	}
	if c.Sync.QueueSize <= 0 {
		c.Sync.QueueSize = 64
	}
}

// Validate performs semantic validation on the configuration.
func (c AppConfig) Validate() error {
	switch c.Environment {
	case EnvDev, EnvStaging, EnvProd:
	default:
		return fmt.Errorf("environment must be one of dev, staging, prod")
	}

	if strings.TrimSpace(c.APIServer.Addr) == "" {
		return fmt.Errorf("apiServer addr required")
	}

	if c.Sync.WriteRate <= 0 {
		return fmt.Errorf("sync writeRate must be > 0")
	}
	if c.Sync.WriteBurst <= 0 {
		return fmt.Errorf("sync writeBurst must be > 0")
	}
	if c.Sync.QueueSize <= 0 {
		return fmt.Errorf("sync queueSize must be > 0")
	}

	if c.Store.NotificationRetention <= 0 {
		return fmt.Errorf("store notificationRetention must be > 0")
	}

	if c.Database.DSN != "" && c.Database.MigrationsPath == "" {
		return fmt.Errorf("database migrationsPath required when dsn set")
	}

	if strings.TrimSpace(c.Telemetry.ServiceName) == "" {
		return fmt.Errorf("telemetry serviceName required")
	}

	return nil
}

func openConfigFile(path string) (io.Reader, func(), error) {
	candidate := filepath.Clean(strings.TrimSpace(path))

	file, err := os.Open(candidate) // #nosec G304 -- path is operator controlled.
	if err != nil {
		return nil, nil, fmt.Errorf("open app config: %w", err)
	}
	return file, func() { _ = file.Close() }, nil
}
