package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for thingsd.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Auth    AuthConfig    `yaml:"auth"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig contains HTTP API server settings.
type ServerConfig struct {
	Host     string              `yaml:"host"`
	Port     int                 `yaml:"port"`
	Timeouts ServerTimeoutConfig `yaml:"timeouts"`
}

// ServerTimeoutConfig contains HTTP timeout settings, in seconds.
// No write timeout is configured: subscriber connections stay open
// indefinitely and a write deadline would sever them.
type ServerTimeoutConfig struct {
	Read int `yaml:"read"`
	Idle int `yaml:"idle"`
}

// Backend names accepted by StorageConfig.Backend.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendDocstore = "docstore"
	BackendSQLite   = "sqlite"
)

// StorageConfig selects and configures the persistence backend.
// Both the thing store and the credential store follow the selection.
type StorageConfig struct {
	// Backend is one of: memory, file, docstore, sqlite.
	Backend string `yaml:"backend"`

	// File contains settings for the file backend (one JSON array per store).
	File FileStorageConfig `yaml:"file"`

	// Docstore contains settings for the embedded document collection backend.
	Docstore DocstoreConfig `yaml:"docstore"`

	// Database contains settings for the sqlite backend.
	Database DatabaseConfig `yaml:"database"`
}

// FileStorageConfig contains file backend settings.
type FileStorageConfig struct {
	ThingsPath string `yaml:"things_path"`
	UsersPath  string `yaml:"users_path"`
}

// DocstoreConfig contains embedded document collection settings.
type DocstoreConfig struct {
	// Path is the directory holding one file per collection.
	Path string `yaml:"path"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	// BootstrapUsername and BootstrapPassword seed the administrator
	// account created when the credential store is empty at startup.
	BootstrapUsername string `yaml:"bootstrap_username"`
	BootstrapPassword string `yaml:"bootstrap_password"`
}

// MQTTConfig contains settings for the optional broadcast relay.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings, in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: THINGSD_SECTION_KEY
// For example: THINGSD_STORAGE_BACKEND, THINGSD_SERVER_PORT
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
// The defaults run the server on :3000 with the in-memory backend.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 3000,
			Timeouts: ServerTimeoutConfig{
				Read: 30,
				Idle: 60,
			},
		},
		Storage: StorageConfig{
			Backend: BackendMemory,
			File: FileStorageConfig{
				ThingsPath: "./data/things.json",
				UsersPath:  "./data/users.json",
			},
			Docstore: DocstoreConfig{
				Path: "./data/db",
			},
			Database: DatabaseConfig{
				Path:        "./data/thingsd.db",
				WALMode:     true,
				BusyTimeout: 5,
			},
		},
		Auth: AuthConfig{
			BootstrapUsername: "chuck",
			BootstrapPassword: "hunter2",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "thingsd",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: THINGSD_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Server
	if v := os.Getenv("THINGSD_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("THINGSD_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	// Storage
	if v := os.Getenv("THINGSD_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("THINGSD_DATABASE_PATH"); v != "" {
		cfg.Storage.Database.Path = v
	}

	// Auth - bootstrap credentials (IMPORTANT: always override in production)
	if v := os.Getenv("THINGSD_AUTH_BOOTSTRAP_USERNAME"); v != "" {
		cfg.Auth.BootstrapUsername = v
	}
	if v := os.Getenv("THINGSD_AUTH_BOOTSTRAP_PASSWORD"); v != "" {
		cfg.Auth.BootstrapPassword = v
	}

	// MQTT
	if v := os.Getenv("THINGSD_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("THINGSD_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("THINGSD_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
}

// validBackends lists the accepted storage.backend values.
var validBackends = []string{BackendMemory, BackendFile, BackendDocstore, BackendSQLite}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	backendOK := false
	for _, b := range validBackends {
		if c.Storage.Backend == b {
			backendOK = true
			break
		}
	}
	if !backendOK {
		errs = append(errs, fmt.Sprintf("storage.backend must be one of: %s", strings.Join(validBackends, ", ")))
	}

	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.File.ThingsPath == "" || c.Storage.File.UsersPath == "" {
			errs = append(errs, "storage.file.things_path and storage.file.users_path are required for the file backend")
		}
	case BackendDocstore:
		if c.Storage.Docstore.Path == "" {
			errs = append(errs, "storage.docstore.path is required for the docstore backend")
		}
	case BackendSQLite:
		if c.Storage.Database.Path == "" {
			errs = append(errs, "storage.database.path is required for the sqlite backend")
		}
	}

	if c.Auth.BootstrapUsername == "" {
		errs = append(errs, "auth.bootstrap_username is required")
	}
	if c.Auth.BootstrapPassword == "" {
		errs = append(errs, "auth.bootstrap_password is required")
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the server read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Read) * time.Second
}

// GetIdleTimeout returns the server idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Idle) * time.Second
}
