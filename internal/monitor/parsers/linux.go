package parsers

import (
	"bufio"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ParseHostname returns the first non-empty line of `hostname`.
func ParseHostname(output string) (string, error) {
	for _, line := range strings.Split(output, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			return name, nil
		}
	}
	return "", fmt.Errorf("empty hostname output")
}

// ParseProcUptime parses /proc/uptime ("12345.67 54321.00") into whole seconds.
func ParseProcUptime(output string) (int64, error) {
	fields := strings.Fields(output)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty /proc/uptime output")
	}
	secs, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse uptime '%s': %w", fields[0], err)
	}
	return int64(math.Floor(secs)), nil
}

// idleRe matches the idle share in both procps formats:
// "%Cpu(s):  3.1 us, ... 95.4 id," and "Cpu(s):  3.1%us, ... 95.4%id,".
var idleRe = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*%?\s*id\b`)

// ParseTopCPU derives CPU usage from the Cpu(s) summary line of `top -bn1`
// as 100 minus the idle share.
func ParseTopCPU(output string) (float64, error) {
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "Cpu(s)") {
			continue
		}
		m := idleRe.FindStringSubmatch(line)
		if m == nil {
			return 0, fmt.Errorf("no idle value in top line: %s", strings.TrimSpace(line))
		}
		idle, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse idle '%s': %w", m[1], err)
		}
		return clampPercent(100 - idle), nil
	}
	return 0, fmt.Errorf("no Cpu(s) line in top output")
}

// ParseNproc parses the output of `nproc`.
func ParseNproc(output string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(output))
	if err != nil {
		return 0, fmt.Errorf("failed to parse nproc '%s': %w", strings.TrimSpace(output), err)
	}
	return n, nil
}

// ParseThermalZones reads the first sensor from
// `cat /sys/class/thermal/thermal_zone*/temp`, reported in millidegrees.
// Returns nil when no sensor produced a reading.
func ParseThermalZones(output string) *float64 {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		milli, err := strconv.ParseFloat(line, 64)
		if err != nil {
			continue
		}
		c := milli / 1000
		return &c
	}
	return nil
}

// ParseFree parses `free -b`. Used and free come straight from the Mem row.
func ParseFree(output string) (*Memory, error) {
	mem := &Memory{}
	foundMem := false

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}

		switch fields[0] {
		case "Mem:":
			vals, err := parseUints(fields[1:4])
			if err != nil {
				return nil, fmt.Errorf("invalid Mem row: %w", err)
			}
			mem.TotalBytes, mem.UsedBytes, mem.FreeBytes = vals[0], vals[1], vals[2]
			foundMem = true
		case "Swap:":
			vals, err := parseUints(fields[1:3])
			if err != nil {
				return nil, fmt.Errorf("invalid Swap row: %w", err)
			}
			mem.SwapTotalBytes, mem.SwapUsedBytes = vals[0], vals[1]
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning free output: %w", err)
	}
	if !foundMem {
		return nil, fmt.Errorf("no Mem row in free output")
	}
	return mem, nil
}

// ParseDF parses `df -B1 -P` (or plain `df -B1`). Only block-device and
// network filesystems are kept; tmpfs, overlay, and loop mounts are skipped.
func ParseDF(output string) ([]Filesystem, error) {
	var out []Filesystem
	seen := make(map[string]bool)

	lines := strings.Split(output, "\n")
	for i, line := range lines {
		fields := strings.Fields(line)
		if i == 0 && len(fields) > 0 && fields[0] == "Filesystem" {
			continue
		}
		if len(fields) < 5 {
			continue
		}

		device := fields[0]
		if !isRealDevice(device) {
			continue
		}

		vals, err := parseUints(fields[1:4])
		if err != nil {
			return nil, fmt.Errorf("invalid df row %q: %w", line, err)
		}
		if vals[0] == 0 {
			continue
		}

		// With -P a capacity column precedes the mount point; without it
		// the fifth field is already the mount point.
		mount := fields[4]
		if strings.HasSuffix(fields[4], "%") && len(fields) > 5 {
			mount = strings.Join(fields[5:], " ")
		}
		if seen[mount] {
			continue
		}
		seen[mount] = true

		out = append(out, Filesystem{
			Device:     device,
			MountPoint: mount,
			TotalBytes: vals[0],
			UsedBytes:  vals[1],
			FreeBytes:  vals[2],
		})
	}
	return out, nil
}

func isRealDevice(device string) bool {
	if strings.HasPrefix(device, "/dev/loop") {
		return false
	}
	return strings.HasPrefix(device, "/") || strings.Contains(device, ":/")
}

func parseUints(fields []string) ([]uint64, error) {
	out := make([]uint64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
