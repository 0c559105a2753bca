package monitor

// Snapshot is one fetch cycle's current readings plus retained history.
type Snapshot struct {
	ConnectionID    string        `json:"connectionId" yaml:"connectionId"`
	TimestampMillis int64         `json:"timestampMillis" yaml:"timestampMillis"`
	System          SystemInfo    `json:"system" yaml:"system"`
	CPU             CPUInfo       `json:"cpu" yaml:"cpu"`
	Memory          MemoryInfo    `json:"memory" yaml:"memory"`
	Storage         []StorageInfo `json:"storage" yaml:"storage"`
	GPU             *GPUInfo      `json:"gpu,omitempty" yaml:"gpu,omitempty"`
}

// SystemInfo identifies the host.
type SystemInfo struct {
	Hostname      string `json:"hostname" yaml:"hostname"`
	OS            string `json:"os" yaml:"os"`
	UptimeSeconds int64  `json:"uptimeSeconds" yaml:"uptimeSeconds"`
}

// CPUInfo contains CPU usage information.
type CPUInfo struct {
	UsagePercent float64    `json:"usagePercent" yaml:"usagePercent"`
	Cores        int        `json:"cores" yaml:"cores"`
	TemperatureC *float64   `json:"temperatureC,omitempty" yaml:"temperatureC,omitempty"`
	History      CPUHistory `json:"history" yaml:"history"`
}

type CPUHistory struct {
	Usage       []Point `json:"usage" yaml:"usage"`
	Temperature []Point `json:"temperature,omitempty" yaml:"temperature,omitempty"`
}

// MemoryInfo contains RAM and swap figures in bytes.
type MemoryInfo struct {
	TotalBytes       uint64        `json:"totalBytes" yaml:"totalBytes"`
	UsedBytes        uint64        `json:"usedBytes" yaml:"usedBytes"`
	FreeBytes        uint64        `json:"freeBytes" yaml:"freeBytes"`
	SwapTotalBytes   uint64        `json:"swapTotalBytes" yaml:"swapTotalBytes"`
	SwapUsedBytes    uint64        `json:"swapUsedBytes" yaml:"swapUsedBytes"`
	UsagePercent     float64       `json:"usagePercent" yaml:"usagePercent"`
	SwapUsagePercent float64       `json:"swapUsagePercent" yaml:"swapUsagePercent"`
	History          MemoryHistory `json:"history" yaml:"history"`
}

type MemoryHistory struct {
	Usage     []Point `json:"usage" yaml:"usage"`
	SwapUsage []Point `json:"swapUsage" yaml:"swapUsage"`
}

// StorageInfo is one mounted filesystem.
type StorageInfo struct {
	MountPoint   string         `json:"mountPoint" yaml:"mountPoint"`
	Device       string         `json:"device" yaml:"device"`
	TotalBytes   uint64         `json:"totalBytes" yaml:"totalBytes"`
	UsedBytes    uint64         `json:"usedBytes" yaml:"usedBytes"`
	FreeBytes    uint64         `json:"freeBytes" yaml:"freeBytes"`
	UsagePercent float64        `json:"usagePercent" yaml:"usagePercent"`
	ReadBps      float64        `json:"readBps" yaml:"readBps"`
	WriteBps     float64        `json:"writeBps" yaml:"writeBps"`
	History      StorageHistory `json:"history" yaml:"history"`
}

type StorageHistory struct {
	Usage    []Point `json:"usage" yaml:"usage"`
	ReadBps  []Point `json:"readBps" yaml:"readBps"`
	WriteBps []Point `json:"writeBps" yaml:"writeBps"`
}

// GPUInfo describes the first GPU. Absent from a Snapshot when the host has none.
type GPUInfo struct {
	Name             string     `json:"name" yaml:"name"`
	UsagePercent     float64    `json:"usagePercent" yaml:"usagePercent"`
	MemoryUsedBytes  uint64     `json:"memoryUsedBytes" yaml:"memoryUsedBytes"`
	MemoryTotalBytes uint64     `json:"memoryTotalBytes" yaml:"memoryTotalBytes"`
	MemoryPercent    float64    `json:"memoryUsagePercent" yaml:"memoryUsagePercent"`
	TemperatureC     *float64   `json:"temperatureC,omitempty" yaml:"temperatureC,omitempty"`
	History          GPUHistory `json:"history" yaml:"history"`
}

type GPUHistory struct {
	Usage       []Point `json:"usage" yaml:"usage"`
	MemoryUsage []Point `json:"memoryUsage" yaml:"memoryUsage"`
	Temperature []Point `json:"temperature,omitempty" yaml:"temperature,omitempty"`
}

// Metric keys used in each connection's HistoryStore.
const (
	KeyCPUUsage       = "cpu.usage"
	KeyCPUTemperature = "cpu.temperature"
	KeyMemoryUsage    = "memory.usage"
	KeySwapUsage      = "memory.swapUsage"
	KeyGPUUsage       = "gpu.usage"
	KeyGPUMemoryUsage = "gpu.memoryUsage"
	KeyGPUTemperature = "gpu.temperature"
)

// StorageUsageKey returns the usage series key for a mount point.
func StorageUsageKey(mount string) string { return "storage." + mount + ".usage" }

// StorageReadKey returns the read-rate series key for a mount point.
func StorageReadKey(mount string) string { return "storage." + mount + ".readSpeed" }

// StorageWriteKey returns the write-rate series key for a mount point.
func StorageWriteKey(mount string) string { return "storage." + mount + ".writeSpeed" }

// percent returns used/total*100, or 0 when total is 0.
func percent(used, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(used) / float64(total) * 100
}
