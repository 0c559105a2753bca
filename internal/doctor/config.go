package doctor

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/rileyhilliard/vitals/internal/config"
	"github.com/rileyhilliard/vitals/internal/errors"
)

// ConfigCheck verifies the config file loads and validates.
type ConfigCheck struct {
	// Path is the --config value; empty searches the default locations.
	Path string
}

func (c *ConfigCheck) Name() string     { return "config" }
func (c *ConfigCheck) Category() string { return "CONFIG" }

func (c *ConfigCheck) Run(context.Context) CheckResult {
	path, err := config.Find(c.Path)
	if err != nil {
		return failed(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return failed(err)
	}
	if err := config.Validate(cfg); err != nil {
		return failed(err)
	}

	if path == "" {
		return CheckResult{Status: StatusPass, Message: "No config file, using defaults"}
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("Config valid: %s (%d host profile%s)", path, len(cfg.Hosts), pluralize(len(cfg.Hosts))),
	}
}

// failed converts a structured error into a failing result.
func failed(err error) CheckResult {
	r := CheckResult{Status: StatusFail, Message: errors.Message(err)}
	var e *errors.Error
	if stderrors.As(err, &e) {
		r.Suggestion = e.Suggestion
	}
	return r
}
