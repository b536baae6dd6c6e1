// Package config holds the runtime configuration: YAML file, environment
// overrides with the FPC_ prefix, and validation of the result.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	SSH     SSHConfig     `yaml:"ssh"`
	Probe   ProbeConfig   `yaml:"probe"`
	Alerts  AlertConfig   `yaml:"alerts"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

type SSHConfig struct {
	Port             int `yaml:"port" validate:"min=1,max=65535"`
	ConnectTimeoutMS int `yaml:"connect_timeout_ms" validate:"min=1"`
	CommandTimeoutMS int `yaml:"command_timeout_ms" validate:"min=1"`
	HopTimeoutMS     int `yaml:"hop_timeout_ms" validate:"min=1"`
	Retries          int `yaml:"retries" validate:"min=0"`
	RetryDelayMS     int `yaml:"retry_delay_ms" validate:"min=0"`
	KeepaliveSeconds int `yaml:"keepalive_seconds" validate:"min=0"`
}

// ProbeConfig controls the optional SNMP reachability probe issued before
// the SSH hop. Off by default. When enabled, a probe failure skips the SSH
// attempt and records the device as unreachable.
type ProbeConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port" validate:"min=1,max=65535"`
	Community string `yaml:"community"`
	TimeoutMS int    `yaml:"timeout_ms" validate:"min=1"`
}

type AlertConfig struct {
	// UtilizationThresholdPct marks a port alerting at or above this
	// utilization percentage.
	UtilizationThresholdPct float64 `yaml:"utilization_threshold_pct" validate:"gt=0,lte=100"`

	// Flap look-back buckets, most severe first.
	FlapCriticalWithin time.Duration `yaml:"flap_critical_within"`
	FlapWarningWithin  time.Duration `yaml:"flap_warning_within"`
	FlapInfoWithin     time.Duration `yaml:"flap_info_within"`

	TopN int `yaml:"top_n" validate:"min=1"`
}

type OutputConfig struct {
	Dir      string `yaml:"dir" validate:"required"`
	Debug    bool   `yaml:"debug"`
	DebugDir string `yaml:"debug_dir"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" validate:"oneof=debug info warn error"`
	FilePath string `yaml:"file_path"`
}

var validate = validator.New()

// Default returns the built-in configuration. The SSH port default matches
// the non-standard management port the TACACS endpoints listen on.
func Default() *Config {
	return &Config{
		SSH: SSHConfig{
			Port:             21112,
			ConnectTimeoutMS: 10000,
			CommandTimeoutMS: 60000,
			HopTimeoutMS:     15000,
			Retries:          3,
			RetryDelayMS:     5000,
			KeepaliveSeconds: 30,
		},
		Probe: ProbeConfig{
			Enabled:   false,
			Port:      161,
			Community: "public",
			TimeoutMS: 2000,
		},
		Alerts: AlertConfig{
			UtilizationThresholdPct: 75,
			FlapCriticalWithin:      5 * time.Minute,
			FlapWarningWithin:       30 * time.Minute,
			FlapInfoWithin:          2 * time.Hour,
			TopN:                    5,
		},
		Output: OutputConfig{
			Dir:   "reports",
			Debug: false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from file and applies environment variable
// overrides. An empty path yields the defaults (still env-overridable).
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate ensures all configuration values are sane.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Alerts.FlapCriticalWithin > c.Alerts.FlapWarningWithin ||
		c.Alerts.FlapWarningWithin > c.Alerts.FlapInfoWithin {
		return fmt.Errorf("flap look-back buckets must be ordered critical <= warning <= info")
	}
	if c.Output.Debug && c.Output.DebugDir == "" {
		c.Output.DebugDir = c.Output.Dir
	}
	return nil
}

// applyEnvOverrides checks for environment variables with FPC_ prefix
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FPC_SSH_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SSH.Port = n
		}
	}
	if v := os.Getenv("FPC_SSH_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SSH.Retries = n
		}
	}
	if v := os.Getenv("FPC_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("FPC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FPC_UTIL_THRESHOLD_PCT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Alerts.UtilizationThresholdPct = f
		}
	}
}

// GetConnectTimeout returns the SSH connect timeout as a duration
func (s *SSHConfig) GetConnectTimeout() time.Duration {
	return time.Duration(s.ConnectTimeoutMS) * time.Millisecond
}

// GetCommandTimeout returns the per-command timeout as a duration
func (s *SSHConfig) GetCommandTimeout() time.Duration {
	return time.Duration(s.CommandTimeoutMS) * time.Millisecond
}

// GetHopTimeout returns the nested-hop timeout as a duration
func (s *SSHConfig) GetHopTimeout() time.Duration {
	return time.Duration(s.HopTimeoutMS) * time.Millisecond
}

// GetRetryDelay returns the delay between connect retries
func (s *SSHConfig) GetRetryDelay() time.Duration {
	return time.Duration(s.RetryDelayMS) * time.Millisecond
}

// GetTimeout returns the SNMP probe timeout as a duration
func (p *ProbeConfig) GetTimeout() time.Duration {
	return time.Duration(p.TimeoutMS) * time.Millisecond
}
