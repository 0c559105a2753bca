package dashboard

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jpillora/backoff"

	"github.com/rileyhilliard/vitals/internal/config"
	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/monitor"
)

// Fetcher produces snapshots for a connection id. *monitor.Sampler satisfies it.
type Fetcher interface {
	FetchSnapshot(ctx context.Context, id string) (*monitor.Snapshot, error)
}

// Options configures a Model.
type Options struct {
	ConnectionID string

	// Interval is the poll cadence. Defaults to 5s.
	Interval time.Duration

	// Timeout bounds one fetch. Defaults to 30s.
	Timeout time.Duration

	// MaxBackoff caps the retry delay after transient errors. Defaults to 1m.
	MaxBackoff time.Duration

	Thresholds config.ThresholdConfig
}

// State is where the poll loop stands.
type State int

const (
	StateConnecting State = iota
	StateLive
	StateRetrying
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateLive:
		return "live"
	case StateRetrying:
		return "retrying"
	case StateStopped:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Model is the Bubble Tea model for one connection's dashboard.
type Model struct {
	fetcher    Fetcher
	id         string
	interval   time.Duration
	timeout    time.Duration
	thresholds config.ThresholdConfig

	snapshot   *monitor.Snapshot
	lastUpdate time.Time
	lastErr    error
	state      State
	fetching   bool
	tickGen    int
	retryIn    time.Duration
	backoff    *backoff.Backoff

	spinner  spinner.Model
	keys     keyMap
	help     help.Model
	showHelp bool

	width    int
	height   int
	quitting bool
}

// tickMsg starts the next fetch. Ticks from a superseded schedule carry an
// old gen and are dropped.
type tickMsg struct {
	at  time.Time
	gen int
}

// snapshotMsg carries one fetch result.
type snapshotMsg struct {
	snapshot *monitor.Snapshot
	err      error
	at       time.Time
}

// NewModel creates a dashboard for opts.ConnectionID.
func NewModel(fetcher Fetcher, opts Options) Model {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = time.Minute
	}

	sp := spinner.New(
		spinner.WithSpinner(spinner.MiniDot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(ColorAccent)),
	)

	return Model{
		fetcher:    fetcher,
		id:         opts.ConnectionID,
		interval:   opts.Interval,
		timeout:    opts.Timeout,
		thresholds: opts.Thresholds,
		state:      StateConnecting,
		fetching:   true, // Init issues the first fetch
		backoff: &backoff.Backoff{
			Min:    opts.Interval,
			Max:    opts.MaxBackoff,
			Factor: 2,
		},
		spinner: sp,
		keys:    defaultKeyMap(),
		help:    help.New(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchCmd(), m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			m.help.ShowAll = m.showHelp
			return m, nil
		case key.Matches(msg, m.keys.Refresh):
			if m.fetching || m.state == StateStopped {
				return m, nil
			}
			m.fetching = true
			m.tickGen++
			return m, m.fetchCmd()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		if msg.gen != m.tickGen || m.fetching || m.state == StateStopped {
			return m, nil
		}
		m.fetching = true
		return m, m.fetchCmd()

	case snapshotMsg:
		m.fetching = false
		return m.handleResult(msg)
	}

	return m, nil
}

// handleResult applies a fetch result and schedules the next poll.
func (m Model) handleResult(msg snapshotMsg) (Model, tea.Cmd) {
	if msg.err == nil {
		m.snapshot = msg.snapshot
		m.lastUpdate = msg.at
		m.lastErr = nil
		m.state = StateLive
		m.retryIn = 0
		m.backoff.Reset()
		m.tickGen++
		return m, m.tickAfter(m.interval)
	}

	m.lastErr = msg.err
	switch errors.CodeOf(msg.err) {
	case errors.ErrNotFound, errors.ErrConnectionLost:
		// The connection is gone; polling again cannot bring it back.
		m.state = StateStopped
		return m, nil
	}

	m.state = StateRetrying
	m.retryIn = m.backoff.Duration()
	m.tickGen++
	return m, m.tickAfter(m.retryIn)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.render()
}

func (m Model) fetchCmd() tea.Cmd {
	fetcher, id, timeout := m.fetcher, m.id, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		snap, err := fetcher.FetchSnapshot(ctx, id)
		return snapshotMsg{snapshot: snap, err: err, at: time.Now()}
	}
}

func (m Model) tickAfter(d time.Duration) tea.Cmd {
	gen := m.tickGen
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg{at: t, gen: gen}
	})
}

// State returns the poll loop state.
func (m Model) State() State { return m.state }

// Snapshot returns the most recent snapshot, or nil before the first success.
func (m Model) Snapshot() *monitor.Snapshot { return m.snapshot }

// Err returns the last fetch error, cleared by the next success.
func (m Model) Err() error { return m.lastErr }

// SecondsSinceUpdate returns the age of the current snapshot.
func (m Model) SecondsSinceUpdate() int {
	if m.lastUpdate.IsZero() {
		return 0
	}
	return int(time.Since(m.lastUpdate).Seconds())
}
