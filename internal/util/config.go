// Package util provides common utilities for meshwatch.
package util

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// DeviceEntry is one roster row in the config file.
type DeviceEntry struct {
	Label   string `mapstructure:"label"`
	Address string `mapstructure:"address"`
	Pole    string `mapstructure:"pole"`
}

// Config holds all application configuration.
type Config struct {
	DataDir  string `mapstructure:"data_dir"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
	// RunLogDir receives one log file per batch run.
	RunLogDir string `mapstructure:"run_log_dir"`

	// Reachability probe
	PingCount  int           `mapstructure:"ping_count"`
	PingBudget time.Duration `mapstructure:"ping_budget"`

	// CoAP probes
	CoapPort             int           `mapstructure:"coap_port"`
	SignalBudget         time.Duration `mapstructure:"signal_budget"`
	RankBudget           time.Duration `mapstructure:"rank_budget"`
	DisconnectionsBudget time.Duration `mapstructure:"disconnections_budget"`
	AvailabilityBudget   time.Duration `mapstructure:"availability_budget"`

	// Topology
	TopologyCommand string        `mapstructure:"topology_command"`
	TopologyBudget  time.Duration `mapstructure:"topology_budget"`
	TopologyTTL     time.Duration `mapstructure:"topology_ttl"`

	// Roster override; empty means the built-in field table.
	Devices []DeviceEntry `mapstructure:"devices"`

	// Report settings
	ReportOutputDir string `mapstructure:"report_output_dir"`

	// Web control plane
	WebPort int `mapstructure:"web_port"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".meshwatch")

	return &Config{
		DataDir:   dataDir,
		LogLevel:  "info",
		LogFile:   filepath.Join(dataDir, "meshwatch.log"),
		RunLogDir: filepath.Join(dataDir, "logs"),

		PingCount:  100,
		PingBudget: 120 * time.Second,

		CoapPort:             5683,
		SignalBudget:         100 * time.Second,
		RankBudget:           100 * time.Second,
		DisconnectionsBudget: 120 * time.Second,
		AvailabilityBudget:   120 * time.Second,

		TopologyCommand: "wsbrd_cli status",
		TopologyBudget:  30 * time.Second,
		TopologyTTL:     5 * time.Minute,

		ReportOutputDir: filepath.Join(dataDir, "reports"),
		WebPort:         8080,
	}
}

// LoadConfig loads configuration from file and environment.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	// Ensure config directory exists
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(cfg.DataDir)
	viper.AddConfigPath(".")

	viper.SetDefault("data_dir", cfg.DataDir)
	viper.SetDefault("log_level", cfg.LogLevel)
	viper.SetDefault("run_log_dir", cfg.RunLogDir)
	viper.SetDefault("ping_count", cfg.PingCount)
	viper.SetDefault("ping_budget", cfg.PingBudget)
	viper.SetDefault("coap_port", cfg.CoapPort)
	viper.SetDefault("signal_budget", cfg.SignalBudget)
	viper.SetDefault("rank_budget", cfg.RankBudget)
	viper.SetDefault("disconnections_budget", cfg.DisconnectionsBudget)
	viper.SetDefault("availability_budget", cfg.AvailabilityBudget)
	viper.SetDefault("topology_command", cfg.TopologyCommand)
	viper.SetDefault("topology_budget", cfg.TopologyBudget)
	viper.SetDefault("topology_ttl", cfg.TopologyTTL)
	viper.SetDefault("web_port", cfg.WebPort)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// EnsureDir ensures a directory exists.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return !info.IsDir()
}
