package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/logger"
)

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.ErrConfig,
			"Config is nil",
			"This is unexpected - try reloading the configuration.")
	}

	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but vitals only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade vitals or lower the version field.")
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return errors.New(errors.ErrConfig,
			"server.addr is empty",
			"Set it to a listen address like ':3001'.")
	}

	if err := validateHistory(cfg.History); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'history' section in vitals.yaml.")
	}

	if err := validateSampler(cfg.Sampler); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'sampler' section in vitals.yaml.")
	}

	if cfg.SSH.DialTimeout <= 0 {
		return errors.New(errors.ErrConfig,
			"ssh.dial_timeout must be positive",
			"Try something like '15s'.")
	}

	if _, err := logger.ParseLevel(cfg.Log.Level); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("log.level '%s' isn't valid", cfg.Log.Level),
			"Use debug, info, warn, or error.")
	}
	if f := cfg.Log.Format; f != "" && f != "console" && f != "json" {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("log.format '%s' isn't valid", f),
			"Use 'console' or 'json'.")
	}

	th := cfg.Dashboard.Thresholds
	for name, values := range map[string]ThresholdValues{
		"cpu": th.CPU, "memory": th.Memory, "storage": th.Storage, "gpu": th.GPU,
	} {
		if err := validateThresholds(name, values); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'dashboard.thresholds' section in vitals.yaml.")
		}
	}

	for name, host := range cfg.Hosts {
		if err := validateHost(name, host); err != nil {
			return err
		}
	}

	return nil
}

func validateHistory(h HistoryConfig) error {
	if h.MaxPoints <= 0 {
		return fmt.Errorf("history.max_points must be positive (got %d)", h.MaxPoints)
	}
	if h.MinInterval < 0 {
		return fmt.Errorf("history.min_interval can't be negative")
	}
	return nil
}

func validateSampler(s SamplerConfig) error {
	checks := []struct {
		name string
		d    time.Duration
	}{
		{"sampler.poll_interval", s.PollInterval},
		{"sampler.probe_timeout", s.ProbeTimeout},
		{"sampler.category_timeout", s.CategoryTimeout},
	}
	for _, c := range checks {
		if c.d <= 0 {
			return fmt.Errorf("%s must be positive (got %v)", c.name, c.d)
		}
	}
	return nil
}

// validateThresholds checks a threshold configuration for a single metric type.
func validateThresholds(name string, thresh ThresholdValues) error {
	if thresh.Warning < 0 || thresh.Warning > 100 {
		return fmt.Errorf("dashboard.thresholds.%s.warning needs to be 0-100 (got %d)", name, thresh.Warning)
	}
	if thresh.Critical < 0 || thresh.Critical > 100 {
		return fmt.Errorf("dashboard.thresholds.%s.critical needs to be 0-100 (got %d)", name, thresh.Critical)
	}
	if thresh.Warning > 0 && thresh.Critical > 0 && thresh.Warning >= thresh.Critical {
		return fmt.Errorf("dashboard.thresholds.%s.warning (%d%%) is higher than critical (%d%%) - should be the other way around", name, thresh.Warning, thresh.Critical)
	}
	return nil
}

func validateHost(name string, host Host) error {
	if strings.TrimSpace(host.SSH) == "" {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Host '%s' has no ssh target", name),
			"Set ssh to user@host[:port] or an ~/.ssh/config alias.")
	}
	switch strings.ToLower(host.OS) {
	case "", "linux", "windows":
	default:
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Host '%s' has unsupported os '%s'", name, host.OS),
			"Use 'linux' or 'windows'.")
	}
	return nil
}
