package config

import "fmt"

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// UpdaterConfig controls how the fleet reconciliation engine probes devices
// and waits for them to come back after an OTA flash.
type UpdaterConfig struct {
	DevicesFile            string `mapstructure:"devices_file"`
	Concurrency            int    `mapstructure:"concurrency"`
	ProbeTimeoutSeconds    int    `mapstructure:"probe_timeout_seconds"`
	RecoveryTimeoutSeconds int    `mapstructure:"recovery_timeout_seconds"`
	PollIntervalSeconds    int    `mapstructure:"poll_interval_seconds"`
}

// ReleaseConfig points at the upstream firmware release source.
type ReleaseConfig struct {
	APIURL          string `mapstructure:"api_url"`
	ReleasePageURL  string `mapstructure:"release_page_url"`
	AssetName       string `mapstructure:"asset_name"`
	CacheTTLMinutes int    `mapstructure:"cache_ttl_minutes"`
}

type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}
