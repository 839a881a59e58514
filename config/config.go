// Package config loads the cart service configuration from YAML.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Catalog CatalogConfig `yaml:"catalog"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// MaxSessions caps the carts kept in memory; the least recently used
	// are dropped and reloaded from storage on their next request.
	MaxSessions int `yaml:"max_sessions"`
}

// CatalogConfig points at the stock and product API.
type CatalogConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	BackoffMin time.Duration `yaml:"backoff_min"`
	BackoffMax time.Duration `yaml:"backoff_max"`
}

type StorageConfig struct {
	Driver    string        `yaml:"driver"` // memory, postgres, sqlite, redis
	DSN       string        `yaml:"dsn"`
	Namespace string        `yaml:"namespace"`
	TTL       time.Duration `yaml:"ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
}

// Default returns a configuration that runs locally against an in-memory
// store and a catalog on localhost:3333.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			MaxSessions:  10000,
		},
		Catalog: CatalogConfig{
			BaseURL:    "http://localhost:3333",
			Timeout:    5 * time.Second,
			MaxRetries: 3,
			BackoffMin: 100 * time.Millisecond,
			BackoffMax: 2 * time.Second,
		},
		Storage: StorageConfig{
			Driver:    "memory",
			Namespace: "storefront",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// envRef matches the ${VAR} references Load expands. A bare $ is left
// alone so DSNs and passwords containing one survive.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(envRef.FindStringSubmatch(ref)[1])
	})
}

// Load reads filename over the defaults. ${VAR} references are expanded from
// the environment before parsing; $VAR without braces is kept literally.
// An empty filename returns the defaults.
func Load(filename string) (*Config, error) {
	cfg := Default()
	if filename == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}
	if err := yaml.Unmarshal([]byte(expandEnv(string(data))), cfg); err != nil {
		return nil, errors.Wrap(err, "parse config file")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Addr == "" {
		problems = append(problems, "server.addr is required")
	}
	if c.Server.MaxSessions < 1 {
		problems = append(problems, "server.max_sessions must be >= 1")
	}
	if c.Catalog.BaseURL == "" {
		problems = append(problems, "catalog.base_url is required")
	}
	if c.Catalog.Timeout <= 0 {
		problems = append(problems, "catalog.timeout must be > 0")
	}
	if c.Catalog.MaxRetries < 0 {
		problems = append(problems, "catalog.max_retries must be >= 0")
	}

	switch strings.ToLower(c.Storage.Driver) {
	case "memory":
	case "postgres", "sqlite", "redis":
		if c.Storage.DSN == "" {
			problems = append(problems, fmt.Sprintf("storage.dsn is required for driver %q", c.Storage.Driver))
		}
	default:
		problems = append(problems, fmt.Sprintf("storage.driver %q is not one of memory, postgres, sqlite, redis", c.Storage.Driver))
	}
	if c.Storage.TTL < 0 {
		problems = append(problems, "storage.ttl must be >= 0")
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q is not json or text", c.Log.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}
