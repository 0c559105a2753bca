package parsers

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseNvidiaSMI parses GPU metrics from nvidia-smi CSV output.
// Expected input is from: nvidia-smi --query-gpu=name,utilization.gpu,memory.used,memory.total,temperature.gpu --format=csv,noheader,nounits
//
// Only the first GPU is reported. Returns nil, nil if no GPU is available.
func ParseNvidiaSMI(output string) (*GPU, error) {
	output = strings.TrimSpace(output)
	if output == "" {
		return nil, nil
	}

	lowerOutput := strings.ToLower(output)
	if strings.Contains(lowerOutput, "no devices") ||
		strings.Contains(lowerOutput, "not found") ||
		strings.Contains(lowerOutput, "failed") ||
		strings.Contains(lowerOutput, "error") {
		return nil, nil
	}

	first := strings.SplitN(output, "\n", 2)[0]
	fields := strings.Split(first, ",")
	if len(fields) < 5 {
		return nil, fmt.Errorf("nvidia-smi output has insufficient fields: expected 5, got %d", len(fields))
	}

	gpu := &GPU{Name: strings.TrimSpace(fields[0])}

	if s, ok := present(fields[1]); ok {
		util, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse GPU utilization '%s': %w", s, err)
		}
		gpu.UsagePercent = util
	}

	if s, ok := present(fields[2]); ok {
		used, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse GPU memory used '%s': %w", s, err)
		}
		gpu.MemoryUsedBytes = used * 1024 * 1024
	}

	if s, ok := present(fields[3]); ok {
		total, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse GPU memory total '%s': %w", s, err)
		}
		gpu.MemoryTotalBytes = total * 1024 * 1024
	}

	if s, ok := present(fields[4]); ok {
		temp, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse GPU temperature '%s': %w", s, err)
		}
		gpu.TemperatureC = &temp
	}

	return gpu, nil
}

// present trims a CSV field and reports false for empty or [N/A] values.
func present(field string) (string, bool) {
	s := strings.TrimSpace(field)
	if s == "" || s == "[N/A]" || s == "N/A" {
		return "", false
	}
	return s, true
}
