package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/monitor"
)

const (
	defaultWidth = 80
	minCardWidth = 30
	graphHeight  = 2
)

func (m Model) render() string {
	var sections []string
	sections = append(sections, m.renderHeader())

	switch {
	case m.snapshot != nil:
		sections = append(sections, m.renderCards())
	case m.state == StateConnecting:
		sections = append(sections, "\n  "+m.spinner.View()+" "+LabelStyle.Render("sampling "+m.id+"..."))
	}

	if m.lastErr != nil {
		sections = append(sections, m.renderError())
	}

	sections = append(sections, m.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) contentWidth() int {
	if m.width <= 0 {
		return defaultWidth
	}
	return m.width
}

func (m Model) renderHeader() string {
	var glyph string
	switch m.state {
	case StateLive:
		glyph = lipgloss.NewStyle().Foreground(ColorHealthy).Render(StatusLive)
	case StateRetrying:
		glyph = lipgloss.NewStyle().Foreground(ColorWarning).Render(StatusRetry)
	case StateStopped:
		glyph = lipgloss.NewStyle().Foreground(ColorCritical).Render(StatusStopped)
	default:
		glyph = m.spinner.View()
	}

	parts := []string{glyph, TitleStyle.Render("vitals"), ValueStyle.Render(m.id)}
	if s := m.snapshot; s != nil {
		parts = append(parts,
			LabelStyle.Render(s.System.Hostname),
			MutedStyle.Render(s.System.OS),
			MutedStyle.Render("up "+formatUptime(s.System.UptimeSeconds)),
		)
	}
	return HeaderStyle.Render(strings.Join(parts, "  "))
}

// renderCards lays metric cards out two per row when the terminal is wide
// enough, one per row otherwise.
func (m Model) renderCards() string {
	s := m.snapshot
	width := m.contentWidth()

	cols := 1
	if width >= 2*(minCardWidth+4)+1 {
		cols = 2
	}
	cardWidth := width/cols - 4
	if cardWidth < minCardWidth {
		cardWidth = minCardWidth
	}

	cards := []string{
		m.renderCPUCard(s.CPU, cardWidth),
		m.renderMemoryCard(s.Memory, cardWidth),
	}
	if s.GPU != nil {
		cards = append(cards, m.renderGPUCard(s.GPU, cardWidth))
	}

	var rows []string
	for i := 0; i < len(cards); i += cols {
		end := i + cols
		if end > len(cards) {
			end = len(cards)
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i:end]...))
	}

	storageWidth := width - 4
	if storageWidth < minCardWidth {
		storageWidth = minCardWidth
	}
	rows = append(rows, m.renderStorageCard(s.Storage, storageWidth))

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) renderCPUCard(cpu monitor.CPUInfo, width int) string {
	t := m.thresholds.CPU
	title := fmt.Sprintf("CPU  %5.1f%%", cpu.UsagePercent)

	lines := []string{
		TitleStyle.Render(title),
		ProgressBar(width, cpu.UsagePercent, t),
		BrailleGraph(values(cpu.History.Usage), width, graphHeight, true, MetricColor(cpu.UsagePercent, t)),
	}

	detail := fmt.Sprintf("%d cores", cpu.Cores)
	if cpu.TemperatureC != nil {
		detail += fmt.Sprintf("  %.0f°C", *cpu.TemperatureC)
	}
	lines = append(lines, LabelStyle.Render(detail))

	return CardStyle.Width(width + 2).Render(strings.Join(lines, "\n"))
}

func (m Model) renderMemoryCard(mem monitor.MemoryInfo, width int) string {
	t := m.thresholds.Memory
	title := fmt.Sprintf("Memory  %5.1f%%", mem.UsagePercent)

	lines := []string{
		TitleStyle.Render(title),
		ProgressBar(width, mem.UsagePercent, t),
		BrailleGraph(values(mem.History.Usage), width, graphHeight, true, MetricColor(mem.UsagePercent, t)),
		LabelStyle.Render(fmt.Sprintf("%s / %s", formatBytes(mem.UsedBytes), formatBytes(mem.TotalBytes))),
	}
	if mem.SwapTotalBytes > 0 {
		lines = append(lines, MutedStyle.Render(fmt.Sprintf("swap %.1f%%  %s / %s",
			mem.SwapUsagePercent, formatBytes(mem.SwapUsedBytes), formatBytes(mem.SwapTotalBytes))))
	} else {
		lines = append(lines, MutedStyle.Render("no swap"))
	}

	return CardStyle.Width(width + 2).Render(strings.Join(lines, "\n"))
}

func (m Model) renderGPUCard(gpu *monitor.GPUInfo, width int) string {
	t := m.thresholds.GPU
	title := fmt.Sprintf("GPU  %5.1f%%", gpu.UsagePercent)

	lines := []string{
		TitleStyle.Render(title) + "  " + MutedStyle.Render(truncate(gpu.Name, width-14)),
		ProgressBar(width, gpu.UsagePercent, t),
		BrailleGraph(values(gpu.History.Usage), width, graphHeight, true, MetricColor(gpu.UsagePercent, t)),
	}

	detail := fmt.Sprintf("vram %s / %s", formatBytes(gpu.MemoryUsedBytes), formatBytes(gpu.MemoryTotalBytes))
	if gpu.TemperatureC != nil {
		detail += fmt.Sprintf("  %.0f°C", *gpu.TemperatureC)
	}
	lines = append(lines, LabelStyle.Render(detail))

	return CardStyle.Width(width + 2).Render(strings.Join(lines, "\n"))
}

// renderStorageCard renders one line per mount: usage bar, usage trend, and
// current read/write rates.
func (m Model) renderStorageCard(storage []monitor.StorageInfo, width int) string {
	t := m.thresholds.Storage
	lines := []string{TitleStyle.Render("Storage")}

	if len(storage) == 0 {
		lines = append(lines, MutedStyle.Render("no filesystems reported"))
		return CardStyle.Width(width + 2).Render(strings.Join(lines, "\n"))
	}

	const (
		mountWidth = 16
		barWidth   = 12
		sparkWidth = 12
	)
	for _, st := range storage {
		mount := fmt.Sprintf("%-*s", mountWidth, truncate(st.MountPoint, mountWidth))
		line := strings.Join([]string{
			ValueStyle.Render(mount),
			ProgressBar(barWidth, st.UsagePercent, t),
			fmt.Sprintf("%5.1f%%", st.UsagePercent),
			Sparkline(values(st.History.Usage), sparkWidth, true, ColorGraph),
			LabelStyle.Render(fmt.Sprintf("%s / %s", formatBytes(st.UsedBytes), formatBytes(st.TotalBytes))),
			MutedStyle.Render(fmt.Sprintf("r %s  w %s", formatRate(st.ReadBps), formatRate(st.WriteBps))),
		}, " ")
		lines = append(lines, line)
	}

	return CardStyle.Width(width + 2).Render(strings.Join(lines, "\n"))
}

func (m Model) renderError() string {
	msg := errors.Message(m.lastErr)
	switch m.state {
	case StateStopped:
		return ErrorStyle.Render("  ✗ "+msg) + "\n" +
			LabelStyle.Render("    Reconnect to resume monitoring. Press q to quit.")
	case StateRetrying:
		return lipgloss.NewStyle().Foreground(ColorWarning).Render(
			fmt.Sprintf("  ! %s (retrying in %s)", msg, m.retryIn))
	}
	return ""
}

func (m Model) renderFooter() string {
	var status string
	if !m.lastUpdate.IsZero() {
		status = fmt.Sprintf("updated %ds ago  ", m.SecondsSinceUpdate())
	}
	return FooterStyle.Render(status + m.help.View(m.keys))
}
