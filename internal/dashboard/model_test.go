package dashboard

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/vitals/internal/config"
	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/monitor"
)

type fakeFetcher struct {
	mu    sync.Mutex
	snap  *monitor.Snapshot
	err   error
	calls []string
}

func (f *fakeFetcher) FetchSnapshot(_ context.Context, id string) (*monitor.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	return f.snap, f.err
}

func temp(v float64) *float64 { return &v }

func sampleSnapshot() *monitor.Snapshot {
	ts := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC).UnixMilli()
	series := func(vals ...float64) []monitor.Point {
		out := make([]monitor.Point, len(vals))
		for i, v := range vals {
			out[i] = monitor.Point{TimestampMillis: ts + int64(i)*5000, Value: v}
		}
		return out
	}

	return &monitor.Snapshot{
		ConnectionID:    "ops@web1:22",
		TimestampMillis: ts,
		System:          monitor.SystemInfo{Hostname: "web1", OS: "linux", UptimeSeconds: 90061},
		CPU: monitor.CPUInfo{
			UsagePercent: 42.5,
			Cores:        8,
			TemperatureC: temp(51),
			History:      monitor.CPUHistory{Usage: series(10, 20, 42.5)},
		},
		Memory: monitor.MemoryInfo{
			TotalBytes:     8589934592,
			UsedBytes:      4294967296,
			SwapTotalBytes: 0,
			UsagePercent:   50,
			History:        monitor.MemoryHistory{Usage: series(50), SwapUsage: series(0)},
		},
		Storage: []monitor.StorageInfo{{
			MountPoint:   "/",
			Device:       "/dev/sda1",
			TotalBytes:   100 << 30,
			UsedBytes:    25 << 30,
			UsagePercent: 25,
			ReadBps:      65536,
			History:      monitor.StorageHistory{Usage: series(25)},
		}},
	}
}

func newTestModel(f Fetcher) Model {
	return NewModel(f, Options{
		ConnectionID: "ops@web1:22",
		Interval:     5 * time.Second,
		Thresholds:   config.DefaultConfig().Dashboard.Thresholds,
	})
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func TestNewModel_Defaults(t *testing.T) {
	m := NewModel(&fakeFetcher{}, Options{ConnectionID: "a@b:22"})

	assert.Equal(t, 5*time.Second, m.interval)
	assert.Equal(t, 30*time.Second, m.timeout)
	assert.Equal(t, StateConnecting, m.State())
	assert.True(t, m.fetching)
	assert.Nil(t, m.Snapshot())
	assert.NotNil(t, m.Init())
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateConnecting, "connecting"},
		{StateLive, "live"},
		{StateRetrying, "retrying"},
		{StateStopped, "disconnected"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

func TestFetchCmd_UsesConnectionID(t *testing.T) {
	f := &fakeFetcher{snap: sampleSnapshot()}
	m := newTestModel(f)

	msg := m.fetchCmd()()
	res, ok := msg.(snapshotMsg)
	require.True(t, ok)
	assert.NoError(t, res.err)
	assert.Same(t, f.snap, res.snapshot)
	assert.Equal(t, []string{"ops@web1:22"}, f.calls)
}

func TestUpdate_SnapshotSchedulesNextPoll(t *testing.T) {
	m := newTestModel(&fakeFetcher{})
	snap := sampleSnapshot()

	m, cmd := update(t, m, snapshotMsg{snapshot: snap, at: time.Now()})

	assert.Equal(t, StateLive, m.State())
	assert.Same(t, snap, m.Snapshot())
	assert.False(t, m.fetching)
	assert.NoError(t, m.Err())
	assert.NotNil(t, cmd, "next tick is scheduled")
}

func TestUpdate_TickStartsFetch(t *testing.T) {
	f := &fakeFetcher{snap: sampleSnapshot()}
	m := newTestModel(f)
	m.fetching = false

	m, cmd := update(t, m, tickMsg{at: time.Now(), gen: m.tickGen})
	require.NotNil(t, cmd)
	assert.True(t, m.fetching)

	_, ok := cmd().(snapshotMsg)
	assert.True(t, ok)

	// A tick while a fetch is in flight is ignored.
	_, cmd = update(t, m, tickMsg{at: time.Now(), gen: m.tickGen})
	assert.Nil(t, cmd)
}

func TestUpdate_RefreshSupersedesScheduledTick(t *testing.T) {
	f := &fakeFetcher{snap: sampleSnapshot()}
	m := newTestModel(f)

	m, _ = update(t, m, snapshotMsg{snapshot: sampleSnapshot(), at: time.Now()})
	scheduled := tickMsg{at: time.Now(), gen: m.tickGen}

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	require.NotNil(t, cmd)
	m, _ = update(t, m, snapshotMsg{snapshot: sampleSnapshot(), at: time.Now()})
	current := tickMsg{at: time.Now(), gen: m.tickGen}

	m, cmd = update(t, m, scheduled)
	assert.Nil(t, cmd, "tick scheduled before the refresh is dropped")
	assert.False(t, m.fetching)

	m, cmd = update(t, m, current)
	require.NotNil(t, cmd)
	assert.True(t, m.fetching)
	m, _ = update(t, m, snapshotMsg{snapshot: sampleSnapshot(), at: time.Now()})

	_, cmd = update(t, m, current)
	assert.Nil(t, cmd, "a tick is only honoured once")
}

func TestUpdate_StopsOnTerminalErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"not found", errors.NotFound("ops@web1:22")},
		{"connection lost", errors.ConnectionLost("ops@web1:22", stderrors.New("EOF"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(&fakeFetcher{})
			m, _ = update(t, m, snapshotMsg{snapshot: sampleSnapshot(), at: time.Now()})

			m, cmd := update(t, m, snapshotMsg{err: tt.err, at: time.Now()})
			assert.Nil(t, cmd, "polling stops")
			assert.Equal(t, StateStopped, m.State())
			assert.NotNil(t, m.Snapshot(), "last snapshot stays on screen")

			_, cmd = update(t, m, tickMsg{at: time.Now(), gen: m.tickGen})
			assert.Nil(t, cmd)
			_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
			assert.Nil(t, cmd, "refresh does nothing once stopped")

			assert.Contains(t, m.View(), "Reconnect")
		})
	}
}

func TestUpdate_RetriesTransientErrorsWithBackoff(t *testing.T) {
	m := newTestModel(&fakeFetcher{})
	boom := errors.Wrap(stderrors.New("boom"), "Sampling failed")

	m, cmd := update(t, m, snapshotMsg{err: boom, at: time.Now()})
	require.NotNil(t, cmd)
	assert.Equal(t, StateRetrying, m.State())
	first := m.retryIn
	assert.Equal(t, 5*time.Second, first)

	m, _ = update(t, m, snapshotMsg{err: boom, at: time.Now()})
	assert.Greater(t, m.retryIn, first)
	assert.Contains(t, m.View(), "retrying")

	m, _ = update(t, m, snapshotMsg{snapshot: sampleSnapshot(), at: time.Now()})
	assert.Equal(t, StateLive, m.State())
	assert.Zero(t, m.retryIn)
	assert.Equal(t, 5*time.Second, m.backoff.Duration(), "back-off resets after a success")
}

func TestUpdate_Keys(t *testing.T) {
	m := newTestModel(&fakeFetcher{snap: sampleSnapshot()})
	m.fetching = false

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	assert.Nil(t, cmd)
	assert.True(t, m.showHelp)

	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	require.NotNil(t, cmd)
	assert.True(t, m.fetching)

	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Empty(t, m.View())
}

func TestUpdate_WindowSize(t *testing.T) {
	m := newTestModel(&fakeFetcher{})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 150, Height: 40})
	assert.Equal(t, 150, m.width)
	assert.Equal(t, 40, m.height)
}
