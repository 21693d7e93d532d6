package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"

	sharedConfig "tasmofleet/internal/shared/config"
)

type Config struct {
	Server  sharedConfig.ServerConfig  `mapstructure:"server"`
	Logger  sharedConfig.LoggerConfig  `mapstructure:"logger"`
	Updater sharedConfig.UpdaterConfig `mapstructure:"updater"`
	Release sharedConfig.ReleaseConfig `mapstructure:"release"`
	History sharedConfig.HistoryConfig `mapstructure:"history"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load loads configuration from file and environment variables
func Load(env string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../configs")

	viper.SetEnvPrefix("TASMOFLEET")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// The defaults describe a fully working setup, so a missing config
		// file is not an error. Anything else (bad YAML, unreadable file) is.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if env != "" && env != "default" {
		viper.Set("server.mode", env)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	appConfigMu.Lock()
	appConfig = &config
	appConfigMu.Unlock()

	return &config, nil
}

// Get returns the loaded configuration
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 5001)
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.allowed_origins", []string{})

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("logger.output_path", "stdout")

	// Updater defaults
	viper.SetDefault("updater.devices_file", "devices.yaml")
	viper.SetDefault("updater.concurrency", 4)
	viper.SetDefault("updater.probe_timeout_seconds", 5)
	viper.SetDefault("updater.recovery_timeout_seconds", 60)
	viper.SetDefault("updater.poll_interval_seconds", 5)

	// Release source defaults
	viper.SetDefault("release.api_url", "https://api.github.com/repos/arendst/Tasmota/releases/latest")
	viper.SetDefault("release.release_page_url", "https://github.com/arendst/Tasmota/releases/")
	viper.SetDefault("release.asset_name", "tasmota.bin")
	viper.SetDefault("release.cache_ttl_minutes", 30)

	// History defaults
	viper.SetDefault("history.enabled", true)
	viper.SetDefault("history.path", "tasmofleet.db")
}
