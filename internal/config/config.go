// Package config provides configuration loading for the Taskboard CLI.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level CLI configuration.
type Config struct {
	// API configures how the backend is reached.
	API APIConfig `yaml:"api" mapstructure:"api"`

	// Credentials configures where the token pair and cached profile live.
	Credentials CredentialsConfig `yaml:"credentials" mapstructure:"credentials"`

	// Log configures the logger.
	Log LogConfig `yaml:"log" mapstructure:"log"`

	// Metrics enables the Prometheus registry for the request pipeline.
	// Off by default; mostly useful in long-running scripted use.
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// APIConfig configures the backend endpoint.
type APIConfig struct {
	// URL is the API base URL, e.g. "https://taskboard.example.com/api".
	URL string `yaml:"url" mapstructure:"url" validate:"required,url"`

	// Timeout bounds each HTTP request, e.g. "30s".
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"min=0"`

	// ExpiredStatus is the status code the backend sends for an expired
	// access token. The paired backend uses 403.
	ExpiredStatus int `yaml:"expired_status" mapstructure:"expired_status" validate:"min=100,max=599"`
}

// CredentialsConfig selects and configures the credential store driver.
type CredentialsConfig struct {
	// Driver is one of "file", "memory", "redis".
	Driver string `yaml:"driver" mapstructure:"driver" validate:"oneof=file memory redis"`

	// Path is the credentials file location for the file driver.
	// Empty means $HOME/.taskboard/credentials.json.
	Path string `yaml:"path" mapstructure:"path"`

	// RedisAddr is the host:port for the redis driver.
	RedisAddr string `yaml:"redis_addr" mapstructure:"redis_addr" validate:"required_if=Driver redis"`

	// RedisProfile namespaces the credential hash in a shared Redis.
	RedisProfile string `yaml:"redis_profile" mapstructure:"redis_profile"`

	// RedisTTL expires abandoned credentials; zero disables expiry.
	RedisTTL time.Duration `yaml:"redis_ttl" mapstructure:"redis_ttl"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`

	// Format is "text" or "json".
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=text json"`
}

// MetricsConfig configures pipeline metrics.
type MetricsConfig struct {
	// Enabled turns the pipeline's Prometheus metrics on.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// SetDefaults registers the default values with viper. Call before Load.
func SetDefaults() {
	viper.SetDefault("api.url", "http://localhost:8080/api")
	viper.SetDefault("api.timeout", "30s")
	viper.SetDefault("api.expired_status", 403)
	viper.SetDefault("credentials.driver", "file")
	viper.SetDefault("credentials.redis_profile", "default")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("metrics.enabled", false)
}
