package cli

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/monitor"
	"github.com/rileyhilliard/vitals/pkg/sshutil"
)

var (
	snapshotFlags        connectFlags
	snapshotCountFlag    int
	snapshotIntervalFlag string
	snapshotOutputFlag   string
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <target>",
	Short: "Print one or more snapshots of a host",
	Long: `Connect to a host, take one or more snapshots, and print them as
JSON or YAML. Each snapshot is wrapped as {success, data} or {success, error}.

History only gains a point every 4.5s, so use --interval 5s or more with
--count to build up a trend.

Examples:
  vitals snapshot ops@web1
  vitals snapshot ops@web1 --count 6 --interval 5s --output yaml
  vitals snapshot admin@win-build --os windows --key ~/.ssh/win_ed25519`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return snapshotCommand(cmd.Context(), cmd.OutOrStdout(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	addConnectFlags(snapshotCmd, &snapshotFlags)
	snapshotCmd.Flags().IntVarP(&snapshotCountFlag, "count", "n", 1, "number of snapshots to take")
	snapshotCmd.Flags().StringVar(&snapshotIntervalFlag, "interval", "", "time between snapshots (default from sampler.poll_interval, 5s)")
	snapshotCmd.Flags().StringVarP(&snapshotOutputFlag, "output", "o", formatJSON, "output format: json or yaml")
}

type snapshotOptions struct {
	Count       int
	Interval    time.Duration
	Format      string
	DialTimeout time.Duration
}

func snapshotCommand(ctx context.Context, w io.Writer, target string) error {
	cfg := appConfig

	if snapshotCountFlag < 1 {
		return errors.New(errors.ErrInvalidInput, "--count must be at least 1", "")
	}
	interval, err := parseInterval(snapshotIntervalFlag, cfg.Sampler.PollInterval)
	if err != nil {
		return err
	}

	cc, err := resolveConnection(target, snapshotFlags, cfg, sshutil.ResolveTarget)
	if err != nil {
		return err
	}
	if needsPassword(cc) {
		if cc.Password, err = promptPassword(cc.ID()); err != nil {
			return err
		}
	}

	reg := newRegistry(cfg, appLog)
	defer reg.CloseAll()

	return runSnapshots(ctx, w, reg, newSampler(reg, cfg, appLog), cc, snapshotOptions{
		Count:       snapshotCountFlag,
		Interval:    interval,
		Format:      snapshotOutputFlag,
		DialTimeout: cfg.SSH.DialTimeout + cfg.Sampler.ProbeTimeout,
	})
}

// runSnapshots connects, writes opts.Count envelopes to w, and stops at the
// first error after writing it as an error envelope.
func runSnapshots(ctx context.Context, w io.Writer, reg *monitor.Registry, sampler *monitor.Sampler, cc monitor.ConnectionConfig, opts snapshotOptions) error {
	enc, err := newEncoder(w, opts.Format)
	if err != nil {
		return err
	}
	defer enc.Close()

	fail := func(err error) error {
		_ = enc.Encode(Envelope{Success: false, Error: ErrorToBody(err)})
		return err
	}

	dialCtx := ctx
	if opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, opts.DialTimeout)
		defer cancel()
	}
	id, err := reg.Open(dialCtx, cc)
	if err != nil {
		return fail(err)
	}

	for i := 0; i < opts.Count; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return fail(errors.Wrap(ctx.Err(), "Snapshot cancelled"))
			case <-time.After(opts.Interval):
			}
		}

		snap, err := sampler.FetchSnapshot(ctx, id)
		if err != nil {
			return fail(err)
		}
		if err := enc.Encode(Envelope{Success: true, Data: snap}); err != nil {
			return errors.Wrap(err, "Couldn't write snapshot")
		}
	}
	return nil
}
