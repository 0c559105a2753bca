package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete vitals.yaml configuration file.
type Config struct {
	Version   int             `yaml:"version" mapstructure:"version"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	History   HistoryConfig   `yaml:"history" mapstructure:"history"`
	Sampler   SamplerConfig   `yaml:"sampler" mapstructure:"sampler"`
	SSH       SSHConfig       `yaml:"ssh" mapstructure:"ssh"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Dashboard DashboardConfig `yaml:"dashboard" mapstructure:"dashboard"`

	// Hosts are named connection profiles usable with `vitals watch <name>`.
	Hosts map[string]Host `yaml:"hosts" mapstructure:"hosts"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	// Addr is the listen address, ":3001" by default.
	Addr string `yaml:"addr" mapstructure:"addr"`

	// CORSOrigin is echoed in Access-Control-Allow-Origin.
	CORSOrigin string `yaml:"cors_origin" mapstructure:"cors_origin"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// HistoryConfig controls per-metric retention.
type HistoryConfig struct {
	// MaxPoints caps every series; the oldest point is evicted first.
	MaxPoints int `yaml:"max_points" mapstructure:"max_points"`

	// MinInterval is the minimum spacing between retained points.
	MinInterval time.Duration `yaml:"min_interval" mapstructure:"min_interval"`
}

// SamplerConfig controls a fetch cycle.
type SamplerConfig struct {
	// PollInterval is how often dashboards and streams ask for a snapshot.
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`

	// ProbeTimeout bounds the liveness probe run before each cycle.
	ProbeTimeout time.Duration `yaml:"probe_timeout" mapstructure:"probe_timeout"`

	// CategoryTimeout bounds each metric category's remote commands.
	CategoryTimeout time.Duration `yaml:"category_timeout" mapstructure:"category_timeout"`
}

// SSHConfig controls how sessions are dialled.
type SSHConfig struct {
	DialTimeout time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`

	// StrictHostKeyChecking rejects hosts missing from KnownHosts.
	// Off by default: dashboards are pointed at freshly provisioned machines.
	StrictHostKeyChecking bool `yaml:"strict_host_key_checking" mapstructure:"strict_host_key_checking"`

	KnownHosts string `yaml:"known_hosts" mapstructure:"known_hosts"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	Format     string `yaml:"format" mapstructure:"format"`
	File       string `yaml:"file" mapstructure:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
}

// DashboardConfig controls the terminal dashboard.
type DashboardConfig struct {
	Thresholds ThresholdConfig `yaml:"thresholds" mapstructure:"thresholds"`
}

// ThresholdConfig holds warning/critical levels per metric, in percent.
type ThresholdConfig struct {
	CPU     ThresholdValues `yaml:"cpu" mapstructure:"cpu"`
	Memory  ThresholdValues `yaml:"memory" mapstructure:"memory"`
	Storage ThresholdValues `yaml:"storage" mapstructure:"storage"`
	GPU     ThresholdValues `yaml:"gpu" mapstructure:"gpu"`
}

// ThresholdValues defines warning and critical percentages.
type ThresholdValues struct {
	Warning  int `yaml:"warning" mapstructure:"warning"`
	Critical int `yaml:"critical" mapstructure:"critical"`
}

// Host is a named connection profile.
type Host struct {
	// SSH is user@host[:port] or an ~/.ssh/config alias.
	SSH string `yaml:"ssh" mapstructure:"ssh"`

	// OS is "linux" (default) or "windows".
	OS string `yaml:"os" mapstructure:"os"`

	// KeyFile is a private key path. Supports ~.
	KeyFile string `yaml:"key_file" mapstructure:"key_file"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Server: ServerConfig{
			Addr:            ":3001",
			CORSOrigin:      "*",
			ShutdownTimeout: 10 * time.Second,
		},
		History: HistoryConfig{
			MaxPoints:   100,
			MinInterval: 4500 * time.Millisecond,
		},
		Sampler: SamplerConfig{
			PollInterval:    5 * time.Second,
			ProbeTimeout:    3 * time.Second,
			CategoryTimeout: 10 * time.Second,
		},
		SSH: SSHConfig{
			DialTimeout:           15 * time.Second,
			StrictHostKeyChecking: false,
			KnownHosts:            "~/.ssh/known_hosts",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Dashboard: DashboardConfig{
			Thresholds: ThresholdConfig{
				CPU:     ThresholdValues{Warning: 70, Critical: 90},
				Memory:  ThresholdValues{Warning: 70, Critical: 90},
				Storage: ThresholdValues{Warning: 80, Critical: 95},
				GPU:     ThresholdValues{Warning: 70, Critical: 90},
			},
		},
		Hosts: make(map[string]Host),
	}
}
