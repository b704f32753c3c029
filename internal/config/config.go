package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Twitter  TwitterConfig  `yaml:"twitter"`
	Nitter   NitterConfig   `yaml:"nitter"`
	Collect  CollectConfig  `yaml:"collect"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig selects the relational backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	DSN    string `yaml:"dsn"`    // file path for sqlite
}

// TwitterConfig for the Twitter search API.
type TwitterConfig struct {
	Enabled  bool   `yaml:"enabled"`
	APIURL   string `yaml:"api_url"`
	TokenURL string `yaml:"token_url"`
	Key      string `yaml:"key"`
	Secret   string `yaml:"secret"`
}

// NitterConfig for the Nitter RSS searcher.
type NitterConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// CollectConfig lists what to harvest and how often.
type CollectConfig struct {
	Interval  string   `yaml:"interval"`
	Tags      []string `yaml:"tags"`
	Usernames []string `yaml:"usernames"`
}

// ParseInterval returns the collect interval as time.Duration.
func (c CollectConfig) ParseInterval() time.Duration {
	d, err := time.ParseDuration(c.Interval)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LogConfig configures zap.
type LogConfig struct {
	Development bool   `yaml:"development"`
	Level       string `yaml:"level"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: "sqlite", DSN: "./socialstore.db"},
		Twitter: TwitterConfig{
			APIURL:   "https://api.twitter.com/1.1",
			TokenURL: "https://api.twitter.com/oauth2/token",
		},
		Nitter: NitterConfig{
			Enabled: true,
			URL:     "https://nitter.net",
		},
		Collect: CollectConfig{Interval: "15m"},
		Server:  ServerConfig{Port: 8080},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SOCIALSTORE_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("SOCIALSTORE_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	key, secret := os.Getenv("TWITTER_API_KEY"), os.Getenv("TWITTER_API_SECRET")
	if key != "" && secret != "" {
		cfg.Twitter.Key = key
		cfg.Twitter.Secret = secret
		cfg.Twitter.Enabled = true
	}
	if v := os.Getenv("SOCIALSTORE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}
