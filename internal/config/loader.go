package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment
// variables. If configFile is empty, it searches for taskboard.yaml/.yml in
// standard locations. The search requires an explicit YAML extension so the
// binary itself (same base name, no extension) is never matched.
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// No config file found in any standard location. Set name/type
		// without search paths so ReadInConfig returns
		// ConfigFileNotFoundError (handled gracefully by Load).
		viper.SetConfigName("taskboard")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: TASKBOARD_API_URL overrides api.url.
	viper.SetEnvPrefix("TASKBOARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// findConfigFile searches standard locations for a taskboard config file
// with an explicit YAML extension (.yaml or .yml).
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".taskboard"),
		"/etc/taskboard",
	}
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "taskboard"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds all config keys for environment variable support.
// Example: TASKBOARD_API_URL overrides api.url.
func bindNestedEnvKeys() {
	_ = viper.BindEnv("api.url")
	_ = viper.BindEnv("api.timeout")
	_ = viper.BindEnv("api.expired_status")

	_ = viper.BindEnv("credentials.driver")
	_ = viper.BindEnv("credentials.path")
	_ = viper.BindEnv("credentials.redis_addr")
	_ = viper.BindEnv("credentials.redis_profile")
	_ = viper.BindEnv("credentials.redis_ttl")

	_ = viper.BindEnv("log.level")
	_ = viper.BindEnv("log.format")

	_ = viper.BindEnv("metrics.enabled")
}

// Load reads the configuration file, applies environment overrides and
// defaults, validates, and returns the Config. A missing config file is not
// an error; the CLI runs on defaults plus environment.
func Load() (*Config, error) {
	SetDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
