package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rileyhilliard/vitals/internal/config"
	"github.com/rileyhilliard/vitals/internal/dashboard"
	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/logger"
	"github.com/rileyhilliard/vitals/pkg/sshutil"
)

var (
	watchFlags        connectFlags
	watchIntervalFlag string
)

var watchCmd = &cobra.Command{
	Use:   "watch [target]",
	Short: "Live terminal dashboard for one host",
	Long: `Connect to a host and show a live dashboard of its CPU, memory,
storage, and GPU usage.

The target is user@host[:port], an ~/.ssh/config alias, or a host name from
the 'hosts' section of vitals.yaml. Without a password, key, or SSH agent
you are prompted for a password. Without a target, pick one from vitals.yaml
and ~/.ssh/config.

Keyboard shortcuts:
  r           Refresh now
  ?           Toggle help
  q / Ctrl+C  Quit

Examples:
  vitals watch
  vitals watch ops@web1
  vitals watch admin@10.0.0.5:2222 --os windows
  vitals watch gpu-box --interval 10s`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, err := parseInterval(watchIntervalFlag, appConfig.Sampler.PollInterval)
		if err != nil {
			return err
		}

		var target string
		if len(args) == 1 {
			target = args[0]
		} else {
			choices, err := hostChoices(appConfig, sshutil.ConfigHosts)
			if err != nil {
				return err
			}
			picked, err := dashboard.PickHost(choices, os.Stdin, os.Stdout)
			if err != nil || picked == nil {
				return err
			}
			target = picked.Target
		}
		return watchCommand(cmd.Context(), target, interval)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addConnectFlags(watchCmd, &watchFlags)
	watchCmd.Flags().StringVar(&watchIntervalFlag, "interval", "", "refresh interval (default from sampler.poll_interval, 5s)")
}

func watchCommand(ctx context.Context, target string, interval time.Duration) error {
	cfg := appConfig

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New(errors.ErrInvalidInput,
			"watch needs an interactive terminal",
			"Use 'vitals snapshot' for scripted output.")
	}

	cc, err := resolveConnection(target, watchFlags, cfg, sshutil.ResolveTarget)
	if err != nil {
		return err
	}
	if needsPassword(cc) {
		if cc.Password, err = promptPassword(cc.ID()); err != nil {
			return err
		}
	}

	// Log lines would tear the alternate screen; only a log file gets them.
	log := logger.Noop()
	if cfg.Log.File != "" {
		log = appLog
	}

	reg := newRegistry(cfg, log)
	defer reg.CloseAll()

	fmt.Fprintf(os.Stderr, "Connecting to %s...\n", cc.ID())
	dialCtx, cancel := context.WithTimeout(ctx, cfg.SSH.DialTimeout+cfg.Sampler.ProbeTimeout)
	id, err := reg.Open(dialCtx, cc)
	cancel()
	if err != nil {
		return err
	}

	model := dashboard.NewModel(newSampler(reg, cfg, log), dashboard.Options{
		ConnectionID: id,
		Interval:     interval,
		Thresholds:   cfg.Dashboard.Thresholds,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return errors.Wrap(err, "Dashboard exited with an error")
	}

	// Surface why monitoring stopped once the screen is restored.
	if m, ok := final.(dashboard.Model); ok && m.State() == dashboard.StateStopped {
		return m.Err()
	}
	return nil
}

// hostChoices lists vitals.yaml profiles, then ~/.ssh/config aliases not
// shadowed by a profile.
func hostChoices(cfg *config.Config, sshHosts func() ([]sshutil.ConfigHost, error)) ([]dashboard.HostChoice, error) {
	var choices []dashboard.HostChoice

	names := make([]string, 0, len(cfg.Hosts))
	for name := range cfg.Hosts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		h := cfg.Hosts[name]
		detail := h.SSH
		if h.OS != "" {
			detail += " (" + h.OS + ")"
		}
		choices = append(choices, dashboard.HostChoice{Target: name, Detail: detail, Source: "vitals.yaml"})
	}

	hosts, err := sshHosts()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't read ~/.ssh/config", "Fix the file, or pass a target like ops@web1.")
	}
	for _, h := range hosts {
		if _, ok := cfg.Hosts[h.Alias]; ok {
			continue
		}
		choices = append(choices, dashboard.HostChoice{Target: h.Alias, Detail: h.Description(), Source: "ssh config"})
	}
	return choices, nil
}

// parseInterval parses a poll interval flag, falling back to def.
func parseInterval(flag string, def time.Duration) (time.Duration, error) {
	if flag == "" {
		return def, nil
	}
	d, err := time.ParseDuration(flag)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrInvalidInput,
			fmt.Sprintf("'%s' doesn't look like a valid interval", flag),
			"Try something like 5s, 30s, or 1m.")
	}
	if d < time.Second {
		return 0, errors.New(errors.ErrInvalidInput,
			"Interval too short",
			"Minimum interval is 1s to avoid overwhelming hosts.")
	}
	return d, nil
}
