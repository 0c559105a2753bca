package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rileyhilliard/vitals/internal/monitor"
)

func TestView_Connecting(t *testing.T) {
	m := newTestModel(&fakeFetcher{})
	out := m.View()
	assert.Contains(t, out, "vitals")
	assert.Contains(t, out, "sampling ops@web1:22")
}

func TestView_Snapshot(t *testing.T) {
	for _, width := range []int{0, 60, 160} {
		m := newTestModel(&fakeFetcher{})
		m.width = width
		m, _ = update(t, m, snapshotMsg{snapshot: sampleSnapshot(), at: time.Now()})

		out := m.View()
		assert.Contains(t, out, "web1")
		assert.Contains(t, out, "up 1d 1h")
		assert.Contains(t, out, "42.5%")
		assert.Contains(t, out, "8 cores")
		assert.Contains(t, out, "51°C")
		assert.Contains(t, out, "4.0 GB / 8.0 GB")
		assert.Contains(t, out, "no swap")
		assert.Contains(t, out, "Storage")
		assert.NotContains(t, out, "GPU", "no GPU card without a GPU")
	}
}

func TestView_StorageRow(t *testing.T) {
	m := newTestModel(&fakeFetcher{})
	m.width = 160
	m, _ = update(t, m, snapshotMsg{snapshot: sampleSnapshot(), at: time.Now()})

	out := m.View()
	assert.Contains(t, out, "25.0%")
	assert.Contains(t, out, "25.0 GB / 100.0 GB")
	assert.Contains(t, out, "r 64.0 KB/s  w 0 B/s")
}

func TestView_GPUCard(t *testing.T) {
	snap := sampleSnapshot()
	snap.GPU = &monitor.GPUInfo{
		Name:             "NVIDIA GeForce RTX 3080",
		UsagePercent:     45,
		MemoryUsedBytes:  2560 << 20,
		MemoryTotalBytes: 10240 << 20,
		MemoryPercent:    25,
	}
	m := newTestModel(&fakeFetcher{})
	m.width = 160
	m, _ = update(t, m, snapshotMsg{snapshot: snap, at: time.Now()})

	out := m.View()
	assert.Contains(t, out, "GPU")
	assert.Contains(t, out, "RTX 3080")
	assert.Contains(t, out, "vram 2.5 GB / 10.0 GB")
}

func TestView_EmptyStorage(t *testing.T) {
	snap := sampleSnapshot()
	snap.Storage = nil
	m := newTestModel(&fakeFetcher{})
	m, _ = update(t, m, snapshotMsg{snapshot: snap, at: time.Now()})

	assert.Contains(t, m.View(), "no filesystems reported")
}
