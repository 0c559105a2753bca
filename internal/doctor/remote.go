package doctor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rileyhilliard/vitals/internal/monitor"
)

// ConnectCheck opens the connection later remote checks use.
type ConnectCheck struct {
	Registry *monitor.Registry
	Config   monitor.ConnectionConfig
	Timeout  time.Duration
}

func (c *ConnectCheck) Name() string     { return "connect" }
func (c *ConnectCheck) Category() string { return "SSH" }

func (c *ConnectCheck) Run(ctx context.Context) CheckResult {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	start := time.Now()
	id, err := c.Registry.Open(ctx, c.Config)
	if err != nil {
		return failed(err)
	}
	rec, err := c.Registry.Get(id)
	if err != nil {
		return failed(err)
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("Connected to %s (%s) in %s", id, rec.Platform(), time.Since(start).Round(time.Millisecond)),
	}
}

// Tool is a remote command the sampler depends on.
type Tool struct {
	Name string
	// Metric is the category that degrades without it.
	Metric string
	// Missing is the status reported when the tool isn't installed.
	Missing CheckStatus
	Hint    string
}

var linuxTools = []Tool{
	{"hostname", "system", StatusFail, "Every fetch will report the connection as lost"},
	{"top", "cpu", StatusWarn, "CPU usage will read 0; install procps"},
	{"nproc", "cpu", StatusWarn, "Core count will read 0; install coreutils"},
	{"free", "memory", StatusWarn, "Memory will read 0; install procps"},
	{"df", "storage", StatusWarn, "Filesystems won't be listed; install coreutils"},
	{"iostat", "storage", StatusWarn, "Read/write rates will read 0; install sysstat"},
	{"nvidia-smi", "gpu", StatusPass, "No NVIDIA driver, so no GPU metrics"},
}

var windowsTools = []Tool{
	{"hostname", "system", StatusFail, "Every fetch will report the connection as lost"},
	{"wmic", "system", StatusFail, "Enable the WMIC optional feature; every metric depends on it"},
}

// Tools lists what the sampler runs on platform.
func Tools(platform monitor.Platform) []Tool {
	if platform == monitor.PlatformWindows {
		return windowsTools
	}
	return linuxTools
}

// ToolCheck verifies one tool is on the remote PATH.
type ToolCheck struct {
	Registry *monitor.Registry
	ID       string
	Tool     Tool
}

func (c *ToolCheck) Name() string     { return "tool_" + c.Tool.Name }
func (c *ToolCheck) Category() string { return "TOOLS" }

func (c *ToolCheck) Run(ctx context.Context) CheckResult {
	rec, err := c.Registry.Get(c.ID)
	if err != nil {
		return CheckResult{Status: StatusFail, Message: fmt.Sprintf("%s: no connection", c.Tool.Name)}
	}

	cmd := "command -v " + c.Tool.Name
	if rec.Platform() == monitor.PlatformWindows {
		cmd = "where " + c.Tool.Name
	}
	stdout, _, exitCode, err := rec.Executor().Exec(ctx, cmd)
	if err != nil {
		return CheckResult{
			Status:     StatusFail,
			Message:    fmt.Sprintf("Cannot check for %s: %v", c.Tool.Name, err),
			Suggestion: "Check the SSH connection",
		}
	}

	if exitCode != 0 {
		r := CheckResult{
			Status:  c.Tool.Missing,
			Message: fmt.Sprintf("%s not found (%s)", c.Tool.Name, c.Tool.Metric),
		}
		if c.Tool.Missing == StatusPass {
			r.Message += ": " + c.Tool.Hint
		} else {
			r.Suggestion = c.Tool.Hint
		}
		return r
	}

	path := strings.TrimSpace(strings.SplitN(string(stdout), "\n", 2)[0])
	if path == "" {
		path = c.Tool.Name
	}
	return CheckResult{Status: StatusPass, Message: fmt.Sprintf("%s: %s", c.Tool.Name, path)}
}

// SnapshotCheck runs one full fetch cycle.
type SnapshotCheck struct {
	Sampler *monitor.Sampler
	ID      string
}

func (c *SnapshotCheck) Name() string     { return "snapshot" }
func (c *SnapshotCheck) Category() string { return "SAMPLING" }

func (c *SnapshotCheck) Run(ctx context.Context) CheckResult {
	start := time.Now()
	snap, err := c.Sampler.FetchSnapshot(ctx, c.ID)
	if err != nil {
		return failed(err)
	}

	gpu := "no GPU"
	if snap.GPU != nil {
		gpu = snap.GPU.Name
	}
	return CheckResult{
		Status: StatusPass,
		Message: fmt.Sprintf("Snapshot of %s in %s: cpu %.0f%% on %d cores, memory %.0f%%, %d filesystem%s, %s",
			snap.System.Hostname, time.Since(start).Round(time.Millisecond),
			snap.CPU.UsagePercent, snap.CPU.Cores, snap.Memory.UsagePercent,
			len(snap.Storage), pluralize(len(snap.Storage)), gpu),
	}
}

// RemoteChecks builds the connect, tool, and snapshot checks for cc, in the
// order RunAll must execute them.
func RemoteChecks(reg *monitor.Registry, sampler *monitor.Sampler, cc monitor.ConnectionConfig, timeout time.Duration) []Check {
	platform, err := monitor.ParsePlatform(string(cc.OS))
	if err != nil {
		platform = monitor.PlatformLinux
	}
	id := cc.ID()

	checks := []Check{&ConnectCheck{Registry: reg, Config: cc, Timeout: timeout}}
	for _, t := range Tools(platform) {
		checks = append(checks, &ToolCheck{Registry: reg, ID: id, Tool: t})
	}
	return append(checks, &SnapshotCheck{Sampler: sampler, ID: id})
}
