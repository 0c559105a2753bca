package doctor

import (
	"context"
	"fmt"
	"os"

	"github.com/rileyhilliard/vitals/pkg/sshutil"
)

// SSHAgentCheck reports whether an SSH agent with keys is reachable. A
// missing agent is only a warning: passwords and key files still work.
type SSHAgentCheck struct {
	// Keys counts agent keys. Defaults to sshutil.AgentKeys.
	Keys func() (int, error)
}

func (c *SSHAgentCheck) Name() string     { return "ssh_agent" }
func (c *SSHAgentCheck) Category() string { return "SSH" }

func (c *SSHAgentCheck) Run(context.Context) CheckResult {
	if os.Getenv("SSH_AUTH_SOCK") == "" {
		return CheckResult{
			Status:     StatusWarn,
			Message:    "SSH agent not running",
			Suggestion: "Start one with: eval $(ssh-agent) && ssh-add, or pass --password / --key",
		}
	}

	keys := c.Keys
	if keys == nil {
		keys = sshutil.AgentKeys
	}
	n, err := keys()
	if err != nil {
		return CheckResult{
			Status:     StatusWarn,
			Message:    fmt.Sprintf("SSH agent socket not accessible: %v", err),
			Suggestion: "Check SSH_AUTH_SOCK, or restart the agent",
		}
	}
	if n == 0 {
		return CheckResult{
			Status:     StatusWarn,
			Message:    "SSH agent running but no keys loaded",
			Suggestion: "Add a key with: ssh-add",
		}
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("SSH agent running with %d key%s loaded", n, pluralize(n)),
	}
}
