package parsers

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// ParseIostat parses `iostat -dk 1 2` and returns per-device rates from the
// last report. The first report is averaged since boot, so it is skipped
// whenever a second one exists.
func ParseIostat(output string) ([]DiskIO, error) {
	var header []string
	var rows [][]string

	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if strings.HasPrefix(fields[0], "Device") {
			header = fields
			rows = rows[:0]
			continue
		}
		if header != nil {
			rows = append(rows, fields)
		}
	}

	if header == nil {
		return nil, fmt.Errorf("no Device header in iostat output")
	}

	readCol := columnIndex(header, "kB_read/s", "rkB/s")
	writeCol := columnIndex(header, "kB_wrtn/s", "wkB/s")
	if readCol < 0 || writeCol < 0 {
		return nil, fmt.Errorf("iostat output lacks read/write rate columns")
	}

	out := make([]DiskIO, 0, len(rows))
	for _, row := range rows {
		if len(row) <= readCol || len(row) <= writeCol {
			continue
		}
		r, err := parseRate(row[readCol])
		if err != nil {
			return nil, fmt.Errorf("invalid read rate for %s: %w", row[0], err)
		}
		w, err := parseRate(row[writeCol])
		if err != nil {
			return nil, fmt.Errorf("invalid write rate for %s: %w", row[0], err)
		}
		out = append(out, DiskIO{
			Device:   row[0],
			ReadBps:  r * 1024,
			WriteBps: w * 1024,
		})
	}
	return out, nil
}

func columnIndex(header []string, names ...string) int {
	for i, h := range header {
		for _, n := range names {
			if h == n {
				return i
			}
		}
	}
	return -1
}

func parseRate(s string) (float64, error) {
	return strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
}

// MatchDevice finds the I/O row for a filesystem device such as /dev/sda1.
// It compares the trailing path segment exactly, then falls back to the
// longest I/O device name that prefixes it (sda1 -> sda, nvme0n1p2 -> nvme0n1).
// Device-mapper and LVM volumes usually find no match.
func MatchDevice(device string, table []DiskIO) (DiskIO, bool) {
	seg := path.Base(device)
	if seg == "" || seg == "." || seg == "/" {
		return DiskIO{}, false
	}

	for _, io := range table {
		if io.Device == seg {
			return io, true
		}
	}

	best := -1
	for i, io := range table {
		if io.Device != "" && strings.HasPrefix(seg, io.Device) {
			if best < 0 || len(io.Device) > len(table[best].Device) {
				best = i
			}
		}
	}
	if best < 0 {
		return DiskIO{}, false
	}
	return table[best], true
}
