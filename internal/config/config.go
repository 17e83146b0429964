// Package config loads storefront settings from .env, an optional YAML file
// and the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/example/coffee-storefront/internal/api"
)

// EnvConfigFile names the YAML config file.
const EnvConfigFile = "STOREFRONT_CONFIG"

const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	Logging LoggingConfig `yaml:"logging"`
}

type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	// Timeout is empty by default: requests wait as long as the context allows.
	Timeout   string        `yaml:"timeout"`
	Endpoints api.Endpoints `yaml:"endpoints"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver"` // memory, file, postgres
	Dir         string `yaml:"dir"`
	Origin      string `yaml:"origin"`
	PostgresURL string `yaml:"postgres_url"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080",
		},
		Storage: StorageConfig{
			Driver: DriverFile,
			Dir:    defaultStorageDir(),
			Origin: "http://localhost:3000",
		},
		Kafka: KafkaConfig{
			Topic: "storefront-events",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads .env from the working directory when present, then the YAML file
// named by STOREFRONT_CONFIG, then environment overrides.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFile(os.Getenv(EnvConfigFile))
}

// LoadFile reads path (if set and present) on top of the defaults and applies
// environment overrides.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.API.BaseURL = getEnv("STOREFRONT_API_URL", c.API.BaseURL)
	c.API.Timeout = getEnv("STOREFRONT_API_TIMEOUT", c.API.Timeout)
	c.Storage.Driver = getEnv("STOREFRONT_STORAGE", c.Storage.Driver)
	c.Storage.Dir = getEnv("STOREFRONT_STORAGE_DIR", c.Storage.Dir)
	c.Storage.Origin = getEnv("STOREFRONT_ORIGIN", c.Storage.Origin)
	c.Storage.PostgresURL = getEnv("DATABASE_URL", c.Storage.PostgresURL)
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		c.Kafka.Brokers = splitList(brokers)
	}
	c.Kafka.Topic = getEnv("KAFKA_TOPIC", c.Kafka.Topic)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverFile:
	case DriverPostgres:
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("%w: postgres storage needs DATABASE_URL", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.Storage.Driver)
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("%w: api base url is empty", ErrInvalidConfig)
	}
	if _, err := c.API.TimeoutDuration(); err != nil {
		return err
	}
	return nil
}

// TimeoutDuration parses the client timeout. Zero means no timeout.
func (a APIConfig) TimeoutDuration() (time.Duration, error) {
	if a.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(a.Timeout)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: api timeout %q", ErrInvalidConfig, a.Timeout)
	}
	return d, nil
}

// KafkaEnabled reports whether event fan-out is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0 && c.Kafka.Topic != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaultStorageDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".storefront"
	}
	return dir + string(os.PathSeparator) + "coffee-storefront"
}
