package parsers

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseWMIValues splits `wmic ... /value` output into one map per instance.
// Instances are separated by blank lines; CRLF line endings are tolerated.
func ParseWMIValues(output string) []map[string]string {
	output = strings.ReplaceAll(output, "\r", "")

	var blocks []map[string]string
	current := map[string]string{}

	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, current)
			current = map[string]string{}
		}
	}

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if _, dup := current[key]; dup {
			// wmic sometimes omits the blank line between instances.
			flush()
		}
		current[key] = strings.TrimSpace(value)
	}
	flush()

	return blocks
}

// ParseWMIUptime computes uptime from
// `wmic os get LastBootUpTime,LocalDateTime /value`. Both stamps come from the
// remote clock, so local clock skew does not matter.
func ParseWMIUptime(output string) (int64, error) {
	for _, b := range ParseWMIValues(output) {
		bootStr, ok1 := b["LastBootUpTime"]
		nowStr, ok2 := b["LocalDateTime"]
		if !ok1 || !ok2 {
			continue
		}
		boot, err := ParseCIMDatetime(bootStr)
		if err != nil {
			return 0, err
		}
		now, err := ParseCIMDatetime(nowStr)
		if err != nil {
			return 0, err
		}
		secs := int64(now.Sub(boot) / time.Second)
		if secs < 0 {
			secs = 0
		}
		return secs, nil
	}
	return 0, fmt.Errorf("no LastBootUpTime in wmic output")
}

// ParseCIMDatetime parses a CIM_DATETIME value such as
// "20261019083015.500000+060" (offset in minutes).
func ParseCIMDatetime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) < 21 {
		return time.Time{}, fmt.Errorf("invalid CIM datetime %q", s)
	}

	t, err := time.Parse("20060102150405.000000", s[:21])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid CIM datetime %q: %w", s, err)
	}

	if len(s) >= 25 {
		sign := s[21]
		mins, err := strconv.Atoi(s[22:25])
		if err != nil || (sign != '+' && sign != '-') {
			return time.Time{}, fmt.Errorf("invalid CIM datetime offset %q", s[21:])
		}
		offset := mins * 60
		if sign == '-' {
			offset = -offset
		}
		t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(),
			time.FixedZone("", offset))
	}
	return t, nil
}

// ParseWMICPU parses `wmic cpu get LoadPercentage,NumberOfCores /value`.
// Multi-socket hosts report one instance per socket: load is averaged and
// cores are summed. Windows exposes no temperature here.
func ParseWMICPU(output string) (*CPU, error) {
	var loadSum float64
	var loads, cores int

	for _, b := range ParseWMIValues(output) {
		if v, ok := b["LoadPercentage"]; ok && v != "" {
			load, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse LoadPercentage '%s': %w", v, err)
			}
			loadSum += load
			loads++
		}
		if v, ok := b["NumberOfCores"]; ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("failed to parse NumberOfCores '%s': %w", v, err)
			}
			cores += n
		}
	}

	if loads == 0 && cores == 0 {
		return nil, fmt.Errorf("no CPU instances in wmic output")
	}

	cpu := &CPU{Cores: cores}
	if loads > 0 {
		cpu.UsagePercent = clampPercent(loadSum / float64(loads))
	}
	return cpu, nil
}

// ParseWMIMemory parses
// `wmic OS get FreePhysicalMemory,TotalVisibleMemorySize /value` (KiB).
// Swap is reported as zero.
func ParseWMIMemory(output string) (*Memory, error) {
	for _, b := range ParseWMIValues(output) {
		totalStr, ok1 := b["TotalVisibleMemorySize"]
		freeStr, ok2 := b["FreePhysicalMemory"]
		if !ok1 || !ok2 {
			continue
		}
		total, err := strconv.ParseUint(totalStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse TotalVisibleMemorySize '%s': %w", totalStr, err)
		}
		free, err := strconv.ParseUint(freeStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse FreePhysicalMemory '%s': %w", freeStr, err)
		}
		if free > total {
			free = total
		}
		return &Memory{
			TotalBytes: total * 1024,
			UsedBytes:  (total - free) * 1024,
			FreeBytes:  free * 1024,
		}, nil
	}
	return nil, fmt.Errorf("no memory totals in wmic output")
}

// ParseWMIDisks parses `wmic logicaldisk get Caption,FreeSpace,Size /value`.
// Drives without a size (empty card readers, optical drives) are skipped.
func ParseWMIDisks(output string) ([]Filesystem, error) {
	var out []Filesystem
	for _, b := range ParseWMIValues(output) {
		caption := b["Caption"]
		sizeStr := b["Size"]
		if caption == "" || sizeStr == "" {
			continue
		}
		size, err := strconv.ParseUint(sizeStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Size for %s: %w", caption, err)
		}
		var free uint64
		if v := b["FreeSpace"]; v != "" {
			free, err = strconv.ParseUint(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse FreeSpace for %s: %w", caption, err)
			}
		}
		if free > size {
			free = size
		}
		out = append(out, Filesystem{
			Device:     caption,
			MountPoint: caption,
			TotalBytes: size,
			UsedBytes:  size - free,
			FreeBytes:  free,
		})
	}
	return out, nil
}

// ParseWMIGPU parses `wmic path win32_VideoController get Name,AdapterRAM /value`.
// WMI has no utilisation counter, so usage and used memory are always zero.
// Returns nil, nil when no adapter is listed.
func ParseWMIGPU(output string) (*GPU, error) {
	for _, b := range ParseWMIValues(output) {
		name := b["Name"]
		if name == "" {
			continue
		}
		gpu := &GPU{Name: name}
		if v := b["AdapterRAM"]; v != "" {
			ram, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse AdapterRAM '%s': %w", v, err)
			}
			gpu.MemoryTotalBytes = ram
		}
		return gpu, nil
	}
	return nil, nil
}
