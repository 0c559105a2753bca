package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/vitals/internal/doctor"
)

func TestRenderDoctorText(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)

	var buf bytes.Buffer
	renderDoctorText(&buf, []doctor.CheckResult{
		{Name: "config", Category: "CONFIG", Status: doctor.StatusPass, Message: "No config file, using defaults"},
		{Name: "tool_iostat", Category: "TOOLS", Status: doctor.StatusWarn, Message: "iostat not found (storage)", Suggestion: "install sysstat"},
		{Name: "tool_nvidia-smi", Category: "TOOLS", Status: doctor.StatusPass, Message: "nvidia-smi not found (gpu)", Suggestion: "ignored"},
	})

	out := buf.String()
	assert.Contains(t, out, "CONFIG\n  ✓ No config file, using defaults\n")
	assert.Contains(t, out, "TOOLS\n  ! iostat not found (storage)\n    install sysstat\n  ✓ nvidia-smi not found (gpu)\n")
	assert.NotContains(t, out, "ignored")
	assert.NotContains(t, out, "SAMPLING")
	assert.Contains(t, out, "✗ 1 issue found")
}

func TestDoctorCommand_JSONWithoutTarget(t *testing.T) {
	withGlobals(t)
	oldOutput := doctorOutput
	t.Cleanup(func() { doctorOutput = oldOutput })

	path := filepath.Join(t.TempDir(), "vitals.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0o644))
	cfgFile = path
	doctorOutput = "json"
	t.Setenv("SSH_AUTH_SOCK", "")

	var buf bytes.Buffer
	require.NoError(t, doctorCommand(context.Background(), &buf, nil))

	var report struct {
		Results []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"results"`
		Summary DoctorSummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	require.Len(t, report.Results, 2)
	assert.Equal(t, "config", report.Results[0].Name)
	assert.Equal(t, "pass", report.Results[0].Status)
	assert.Equal(t, "ssh_agent", report.Results[1].Name)
	assert.Equal(t, "warn", report.Results[1].Status)
	assert.Equal(t, DoctorSummary{Pass: 1, Warn: 1}, report.Summary)
}
