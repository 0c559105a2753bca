// Package parsers turns remote command output into raw metric readings.
//
// Every parser normalizes source units once (KiB/s to B/s, MiB to bytes,
// millidegrees to degrees) so callers only ever see raw bytes, bytes per
// second, percentages, and degrees Celsius.
package parsers

// System holds host identity.
type System struct {
	Hostname      string
	UptimeSeconds int64
}

// CPU holds processor usage.
type CPU struct {
	UsagePercent float64
	Cores        int
	// TemperatureC is nil when the host exposes no sensor.
	TemperatureC *float64
}

// Memory holds RAM and swap totals in bytes.
type Memory struct {
	TotalBytes     uint64
	UsedBytes      uint64
	FreeBytes      uint64
	SwapTotalBytes uint64
	SwapUsedBytes  uint64
}

// Filesystem is one row of the free-space table.
type Filesystem struct {
	Device     string
	MountPoint string
	TotalBytes uint64
	UsedBytes  uint64
	FreeBytes  uint64
}

// DiskIO is one row of the device I/O-rate table.
type DiskIO struct {
	Device   string
	ReadBps  float64
	WriteBps float64
}

// GPU holds the first GPU reported by the host.
type GPU struct {
	Name             string
	UsagePercent     float64
	MemoryUsedBytes  uint64
	MemoryTotalBytes uint64
	TemperatureC     *float64
}
