package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads config.yaml from the default search path, then env overrides.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads the given config file (or searches the default locations
// when path is empty) and applies ORDERWATCH_* environment overrides.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/orderwatch/")
	}

	v.SetEnvPrefix("ORDERWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Defaults and env vars are enough to run.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the poller cannot run with.
func (c *Config) Validate() error {
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive")
	}
	if c.Poll.Timeout < c.Poll.Interval {
		return fmt.Errorf("poll.timeout (%s) must not be shorter than poll.interval (%s)", c.Poll.Timeout, c.Poll.Interval)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:3000/api")
	v.SetDefault("api.token", "")
	v.SetDefault("api.timeout", "15s")

	v.SetDefault("poll.interval", "3s")
	v.SetDefault("poll.timeout", "2m")

	v.SetDefault("http.addr", "0.0.0.0:8080")
	v.SetDefault("http.shutdown_timeout", "15s")
	v.SetDefault("http.rate_limit", 120)
	v.SetDefault("http.rate_window", "1m")
	v.SetDefault("http.cors_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.add_source", false)
	v.SetDefault("log.environment", "production")

	v.SetDefault("database.path", "data/orderwatch.db")

	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.issuer", "orderwatch")
	v.SetDefault("auth.audience", "orderwatch-client")
	v.SetDefault("auth.leeway", "30s")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "orderwatch")
	v.SetDefault("metrics.token", "")

	v.SetDefault("cache.settled_ttl", "1h")
	v.SetDefault("cache.failed_ttl", "30s")
	v.SetDefault("cache.cleanup_interval", "5m")

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.retention", "720h")
	v.SetDefault("history.cleanup_spec", "@every 1h")
}
