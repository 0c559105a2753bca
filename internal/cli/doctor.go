package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/vitals/internal/dashboard"
	"github.com/rileyhilliard/vitals/internal/doctor"
	"github.com/rileyhilliard/vitals/pkg/sshutil"
)

var (
	doctorFlags  connectFlags
	doctorOutput string
)

var doctorCmd = &cobra.Command{
	Use:   "doctor [target]",
	Short: "Diagnose config, SSH, and remote tooling problems",
	Long: `Check the config file and SSH agent. Given a target, also connect to it,
check every remote tool the sampler runs, and take one snapshot.

A missing tool explains metrics that read zero: without iostat, for example,
storage read/write rates stay at 0.

Examples:
  vitals doctor
  vitals doctor ops@web1
  vitals doctor winbox --output json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return doctorCommand(cmd.Context(), cmd.OutOrStdout(), args)
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	addConnectFlags(doctorCmd, &doctorFlags)
	doctorCmd.Flags().StringVarP(&doctorOutput, "output", "o", "text", "output format: text, json, or yaml")
}

// DoctorReport is the machine-readable doctor output.
type DoctorReport struct {
	Results []doctor.CheckResult `json:"results" yaml:"results"`
	Summary DoctorSummary        `json:"summary" yaml:"summary"`
}

// DoctorSummary counts results by status.
type DoctorSummary struct {
	Pass     int  `json:"pass" yaml:"pass"`
	Warn     int  `json:"warn" yaml:"warn"`
	Fail     int  `json:"fail" yaml:"fail"`
	AllClear bool `json:"all_clear" yaml:"all_clear"`
}

func doctorCommand(ctx context.Context, w io.Writer, args []string) error {
	results := doctor.RunAllParallel(ctx, []doctor.Check{
		&doctor.ConfigCheck{Path: cfgFile},
		&doctor.SSHAgentCheck{},
	})

	if len(args) == 1 {
		cc, err := resolveConnection(args[0], doctorFlags, appConfig, sshutil.ResolveTarget)
		if err != nil {
			return err
		}
		if needsPassword(cc) {
			if cc.Password, err = promptPassword(cc.ID()); err != nil {
				return err
			}
		}

		reg := newRegistry(appConfig, appLog)
		defer reg.CloseAll()
		checks := doctor.RemoteChecks(reg, newSampler(reg, appConfig, appLog), cc,
			appConfig.SSH.DialTimeout+appConfig.Sampler.ProbeTimeout)
		results = append(results, doctor.RunAll(ctx, checks)...)
	}

	if doctorOutput == "text" || doctorOutput == "" {
		renderDoctorText(w, results)
		return nil
	}

	enc, err := newEncoder(w, doctorOutput)
	if err != nil {
		return err
	}
	defer enc.Close()

	counts := doctor.CountByStatus(results)
	return enc.Encode(DoctorReport{
		Results: results,
		Summary: DoctorSummary{
			Pass:     counts[doctor.StatusPass],
			Warn:     counts[doctor.StatusWarn],
			Fail:     counts[doctor.StatusFail],
			AllClear: !doctor.HasIssues(results),
		},
	})
}

var doctorCategories = []string{"CONFIG", "SSH", "TOOLS", "SAMPLING"}

// renderDoctorText prints results grouped by category, then a summary.
func renderDoctorText(w io.Writer, results []doctor.CheckResult) {
	pass := lipgloss.NewStyle().Foreground(dashboard.ColorHealthy)
	warn := lipgloss.NewStyle().Foreground(dashboard.ColorWarning)
	fail := lipgloss.NewStyle().Foreground(dashboard.ColorCritical)
	header := lipgloss.NewStyle().Bold(true)

	fmt.Fprintln(w)
	fmt.Fprintln(w, header.Render("vitals diagnostic report"))
	fmt.Fprintln(w)

	for _, category := range doctorCategories {
		var rows []doctor.CheckResult
		for _, r := range results {
			if r.Category == category {
				rows = append(rows, r)
			}
		}
		if len(rows) == 0 {
			continue
		}

		fmt.Fprintln(w, header.Render(category))
		for _, r := range rows {
			symbol, style := "✓", pass
			switch r.Status {
			case doctor.StatusWarn:
				symbol, style = "!", warn
			case doctor.StatusFail:
				symbol, style = "✗", fail
			}
			fmt.Fprintf(w, "  %s %s\n", style.Render(symbol), r.Message)
			if r.Suggestion != "" && r.Status != doctor.StatusPass {
				for _, line := range strings.Split(r.Suggestion, "\n") {
					fmt.Fprintf(w, "    %s\n", dashboard.MutedStyle.Render(line))
				}
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, strings.Repeat("━", 60))
	if doctor.HasIssues(results) {
		fmt.Fprintf(w, "%s %s\n", fail.Render("✗"), doctor.Summary(results))
	} else {
		fmt.Fprintf(w, "%s %s\n", pass.Render("✓"), doctor.Summary(results))
	}
}
