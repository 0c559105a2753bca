package monitor

import (
	"context"
	"fmt"
	"strings"

	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/monitor/parsers"
	"github.com/rileyhilliard/vitals/pkg/sshutil"
)

// Platform is the declared operating system of a remote host.
type Platform string

const (
	// PlatformLinux hosts are sampled with procps/coreutils text output.
	PlatformLinux Platform = "linux"
	// PlatformWindows hosts are sampled with `wmic ... /value` output.
	PlatformWindows Platform = "windows"
)

// ParsePlatform converts a declared OS name to a Platform. Empty means Linux.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "linux":
		return PlatformLinux, nil
	case "windows", "win32":
		return PlatformWindows, nil
	default:
		return "", errors.New(errors.ErrInvalidInput,
			fmt.Sprintf("Unsupported OS '%s'", s),
			"Use 'linux' or 'windows'")
	}
}

// Linux commands.
const (
	cmdHostname     = "hostname"
	cmdProcUptime   = "cat /proc/uptime"
	cmdTopCPU       = "top -bn1 | grep 'Cpu(s)'"
	cmdNproc        = "nproc"
	cmdThermalZones = "cat /sys/class/thermal/thermal_zone*/temp 2>/dev/null"
	cmdFree         = "free -b"
	cmdDF           = "df -B1 -P"
	cmdIostat       = "iostat -dk 1 2"
	cmdNvidiaSMI    = "nvidia-smi --query-gpu=name,utilization.gpu,memory.used,memory.total,temperature.gpu --format=csv,noheader,nounits"
)

// Windows commands.
const (
	cmdWinUptime = "wmic os get LastBootUpTime,LocalDateTime /value"
	cmdWinCPU    = "wmic cpu get LoadPercentage,NumberOfCores /value"
	cmdWinMemory = "wmic OS get FreePhysicalMemory,TotalVisibleMemorySize /value"
	cmdWinDisks  = "wmic logicaldisk get Caption,FreeSpace,Size /value"
	cmdWinGPU    = "wmic path win32_VideoController get Name,AdapterRAM /value"
)

// platformSource acquires raw readings for one OS family. Each method is one
// metric category; the sampler runs them concurrently.
type platformSource interface {
	System(ctx context.Context, exec sshutil.Executor) (*parsers.System, error)
	CPU(ctx context.Context, exec sshutil.Executor) (*parsers.CPU, error)
	Memory(ctx context.Context, exec sshutil.Executor) (*parsers.Memory, error)
	// Storage returns the free-space table and, when available, the I/O-rate
	// table. A nil rate table means rates are unknown.
	Storage(ctx context.Context, exec sshutil.Executor) ([]parsers.Filesystem, []parsers.DiskIO, error)
	// GPU returns nil, nil when the host has no GPU or no GPU tooling.
	GPU(ctx context.Context, exec sshutil.Executor) (*parsers.GPU, error)
}

func sourceFor(p Platform) platformSource {
	if p == PlatformWindows {
		return windowsSource{}
	}
	return linuxSource{}
}

// run executes cmd and returns stdout. A non-zero exit is an error.
func run(ctx context.Context, exec sshutil.Executor, cmd string) (string, error) {
	stdout, stderr, code, err := exec.Exec(ctx, cmd)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrExec,
			fmt.Sprintf("'%s' failed", cmd), "")
	}
	if code != 0 {
		detail := strings.TrimSpace(string(stderr))
		if detail == "" {
			detail = "no output on stderr"
		}
		return "", errors.New(errors.ErrExec,
			fmt.Sprintf("'%s' exited with code %d: %s", cmd, code, detail), "")
	}
	return string(stdout), nil
}

type linuxSource struct{}

func (linuxSource) System(ctx context.Context, exec sshutil.Executor) (*parsers.System, error) {
	out, err := run(ctx, exec, cmdHostname)
	if err != nil {
		return nil, err
	}
	name, err := parsers.ParseHostname(out)
	if err != nil {
		return nil, err
	}

	out, err = run(ctx, exec, cmdProcUptime)
	if err != nil {
		return nil, err
	}
	uptime, err := parsers.ParseProcUptime(out)
	if err != nil {
		return nil, err
	}
	return &parsers.System{Hostname: name, UptimeSeconds: uptime}, nil
}

func (linuxSource) CPU(ctx context.Context, exec sshutil.Executor) (*parsers.CPU, error) {
	out, err := run(ctx, exec, cmdTopCPU)
	if err != nil {
		return nil, err
	}
	usage, err := parsers.ParseTopCPU(out)
	if err != nil {
		return nil, err
	}
	cpu := &parsers.CPU{UsagePercent: usage}

	// Core count and temperature are extras; the usage reading stands alone.
	if out, err := run(ctx, exec, cmdNproc); err == nil {
		if n, err := parsers.ParseNproc(out); err == nil {
			cpu.Cores = n
		}
	}
	if out, err := run(ctx, exec, cmdThermalZones); err == nil {
		cpu.TemperatureC = parsers.ParseThermalZones(out)
	}
	return cpu, nil
}

func (linuxSource) Memory(ctx context.Context, exec sshutil.Executor) (*parsers.Memory, error) {
	out, err := run(ctx, exec, cmdFree)
	if err != nil {
		return nil, err
	}
	return parsers.ParseFree(out)
}

func (linuxSource) Storage(ctx context.Context, exec sshutil.Executor) ([]parsers.Filesystem, []parsers.DiskIO, error) {
	out, err := run(ctx, exec, cmdDF)
	if err != nil {
		return nil, nil, err
	}
	fs, err := parsers.ParseDF(out)
	if err != nil {
		return nil, nil, err
	}

	// iostat ships with sysstat, which is often not installed.
	var rates []parsers.DiskIO
	if out, err := run(ctx, exec, cmdIostat); err == nil {
		if rows, err := parsers.ParseIostat(out); err == nil {
			rates = rows
		}
	}
	return fs, rates, nil
}

func (linuxSource) GPU(ctx context.Context, exec sshutil.Executor) (*parsers.GPU, error) {
	stdout, _, code, err := exec.Exec(ctx, cmdNvidiaSMI)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrExec,
			fmt.Sprintf("'%s' failed", cmdNvidiaSMI), "")
	}
	if code != 0 {
		// 127: not installed. Other codes: driver missing or no device.
		return nil, nil
	}
	return parsers.ParseNvidiaSMI(string(stdout))
}

type windowsSource struct{}

func (windowsSource) System(ctx context.Context, exec sshutil.Executor) (*parsers.System, error) {
	out, err := run(ctx, exec, cmdHostname)
	if err != nil {
		return nil, err
	}
	name, err := parsers.ParseHostname(out)
	if err != nil {
		return nil, err
	}

	out, err = run(ctx, exec, cmdWinUptime)
	if err != nil {
		return nil, err
	}
	uptime, err := parsers.ParseWMIUptime(out)
	if err != nil {
		return nil, err
	}
	return &parsers.System{Hostname: name, UptimeSeconds: uptime}, nil
}

func (windowsSource) CPU(ctx context.Context, exec sshutil.Executor) (*parsers.CPU, error) {
	out, err := run(ctx, exec, cmdWinCPU)
	if err != nil {
		return nil, err
	}
	return parsers.ParseWMICPU(out)
}

func (windowsSource) Memory(ctx context.Context, exec sshutil.Executor) (*parsers.Memory, error) {
	out, err := run(ctx, exec, cmdWinMemory)
	if err != nil {
		return nil, err
	}
	return parsers.ParseWMIMemory(out)
}

func (windowsSource) Storage(ctx context.Context, exec sshutil.Executor) ([]parsers.Filesystem, []parsers.DiskIO, error) {
	out, err := run(ctx, exec, cmdWinDisks)
	if err != nil {
		return nil, nil, err
	}
	fs, err := parsers.ParseWMIDisks(out)
	return fs, nil, err
}

// GPU reports the first adapter. WMI exposes no utilisation counter, so
// usage is always zero.
func (windowsSource) GPU(ctx context.Context, exec sshutil.Executor) (*parsers.GPU, error) {
	stdout, _, code, err := exec.Exec(ctx, cmdWinGPU)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrExec,
			fmt.Sprintf("'%s' failed", cmdWinGPU), "")
	}
	if code != 0 {
		return nil, nil
	}
	return parsers.ParseWMIGPU(string(stdout))
}
