package dashboard

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"

	"github.com/rileyhilliard/vitals/internal/config"
)

func TestMetricColor(t *testing.T) {
	th := config.ThresholdValues{Warning: 70, Critical: 90}

	tests := []struct {
		percent float64
		want    lipgloss.Color
	}{
		{0, ColorHealthy},
		{69.9, ColorHealthy},
		{70, ColorWarning},
		{89.9, ColorWarning},
		{90, ColorCritical},
		{100, ColorCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MetricColor(tt.percent, th), "percent %.1f", tt.percent)
	}
}

func TestProgressBar(t *testing.T) {
	th := config.ThresholdValues{Warning: 70, Critical: 90}

	assert.Equal(t, "━━━━━─────", ProgressBar(10, 50, th))
	assert.Equal(t, "──────────", ProgressBar(10, -5, th))
	assert.Equal(t, "━━━━━━━━━━", ProgressBar(10, 250, th))
	assert.Equal(t, "─", ProgressBar(0, 10, th))
}

func TestConfigureColor(t *testing.T) {
	prev := lipgloss.ColorProfile()
	t.Cleanup(func() { lipgloss.SetColorProfile(prev) })

	lipgloss.SetColorProfile(termenv.TrueColor)
	t.Setenv("NO_COLOR", "")
	t.Setenv("CLICOLOR", "")
	ConfigureColor(false)
	assert.Equal(t, termenv.TrueColor, lipgloss.ColorProfile())

	ConfigureColor(true)
	assert.Equal(t, termenv.Ascii, lipgloss.ColorProfile())

	lipgloss.SetColorProfile(termenv.TrueColor)
	t.Setenv("NO_COLOR", "1")
	ConfigureColor(false)
	assert.Equal(t, termenv.Ascii, lipgloss.ColorProfile())
}
