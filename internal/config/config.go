package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultDBPath          = "analytics.db"
	defaultBusyTimeout     = 5000
	defaultAddr            = ":5000"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 5 * time.Second
	defaultRequestTimeout  = 15 * time.Second
	defaultSource          = "2_device_utilization_data.json"
	defaultLogLevel        = "info"
	defaultLogFormat       = "text"
	defaultTopicPrefix     = "device_utilisation"
)

// Config holds the application configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Loader   LoaderConfig   `yaml:"loader"`
	Log      LogConfig      `yaml:"log"`
	MQTT     MQTTConfig     `yaml:"mqtt,omitempty"`
}

// DatabaseConfig holds the SQLite store settings
type DatabaseConfig struct {
	Path          string `yaml:"path"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms,omitempty"`
}

// ServerConfig holds the query service HTTP settings
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout,omitempty"`
	WriteTimeout    time.Duration `yaml:"write_timeout,omitempty"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout,omitempty"`
	RequestTimeout  time.Duration `yaml:"request_timeout,omitempty"`
}

// LoaderConfig holds the ingestion settings
type LoaderConfig struct {
	Source string `yaml:"source"` // Path to the JSON batch document
}

// LogConfig controls the slog handler
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // text or json
}

// MQTTConfig holds broker settings for publishing rankings
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"` // host:port
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"`
}

// Load reads the config file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty config if file doesn't exist
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// Defaults returns a config with every setting filled in
func Defaults() *Config {
	return &Config{
		Database: DatabaseConfig{Path: defaultDBPath, BusyTimeoutMS: defaultBusyTimeout},
		Server: ServerConfig{
			Addr:            defaultAddr,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
			RequestTimeout:  defaultRequestTimeout,
		},
		Loader: LoaderConfig{Source: defaultSource},
		Log:    LogConfig{Level: defaultLogLevel, Format: defaultLogFormat},
		MQTT:   MQTTConfig{Broker: "localhost:1883", TopicPrefix: defaultTopicPrefix},
	}
}

// GetDBPath returns the database file path, defaulting to ./analytics.db
func (c *Config) GetDBPath() string {
	if c.Database.Path == "" {
		return defaultDBPath
	}
	return c.Database.Path
}

// GetBusyTimeoutMS returns how long a connection waits on a locked database
func (c *Config) GetBusyTimeoutMS() int {
	if c.Database.BusyTimeoutMS <= 0 {
		return defaultBusyTimeout
	}
	return c.Database.BusyTimeoutMS
}

// GetAddr returns the HTTP listen address
func (c *Config) GetAddr() string {
	if c.Server.Addr == "" {
		return defaultAddr
	}
	return c.Server.Addr
}

// GetReadTimeout returns the server read timeout
func (c *Config) GetReadTimeout() time.Duration {
	return durationOr(c.Server.ReadTimeout, defaultReadTimeout)
}

// GetWriteTimeout returns the server write timeout
func (c *Config) GetWriteTimeout() time.Duration {
	return durationOr(c.Server.WriteTimeout, defaultWriteTimeout)
}

// GetShutdownTimeout returns how long in-flight requests get on shutdown
func (c *Config) GetShutdownTimeout() time.Duration {
	return durationOr(c.Server.ShutdownTimeout, defaultShutdownTimeout)
}

// GetRequestTimeout returns the per-request handler deadline
func (c *Config) GetRequestTimeout() time.Duration {
	return durationOr(c.Server.RequestTimeout, defaultRequestTimeout)
}

// GetSource returns the loader's source document path
func (c *Config) GetSource() string {
	if c.Loader.Source == "" {
		return defaultSource
	}
	return c.Loader.Source
}

// GetLogLevel returns the configured log level name
func (c *Config) GetLogLevel() string {
	if c.Log.Level == "" {
		return defaultLogLevel
	}
	return c.Log.Level
}

// GetLogFormat returns the configured log format name
func (c *Config) GetLogFormat() string {
	if c.Log.Format == "" {
		return defaultLogFormat
	}
	return c.Log.Format
}

// GetTopicPrefix returns the MQTT topic prefix
func (c *Config) GetTopicPrefix() string {
	if c.MQTT.TopicPrefix == "" {
		return defaultTopicPrefix
	}
	return c.MQTT.TopicPrefix
}

func durationOr(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
