package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/vitals/internal/config"
	"github.com/rileyhilliard/vitals/internal/dashboard"
	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/logger"
	"github.com/rileyhilliard/vitals/pkg/sshutil"
)

// Global flags
var (
	cfgFile      string
	logLevelFlag string
	noColorFlag  bool
)

// Loaded once per invocation by setupGlobals.
var (
	appConfig = config.DefaultConfig()
	appLog    = logger.Noop()
	closeLog  = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "vitals",
	Short: "Live resource monitoring for remote hosts over SSH",
	Long: `vitals connects to Linux and Windows hosts over SSH and samples CPU,
memory, storage, and GPU usage, keeping a short rolling history of each.

Use 'vitals serve' to expose the HTTP API, 'vitals watch' for a terminal
dashboard, 'vitals snapshot' for one-off readings, or 'vitals doctor' when
something reads zero.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd {
		case versionCmd:
			return nil
		case doctorCmd:
			// Config errors are reported as a failed check instead.
			_ = setupGlobals()
			return nil
		}
		return setupGlobals()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./vitals.yaml, then ~/.config/vitals/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable colored output")
}

// setupGlobals loads the config, applies flag overrides, and builds the
// process logger.
func setupGlobals() error {
	cfg, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return err
	}
	if logLevelFlag != "" {
		cfg.Log.Level = logLevelFlag
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	log, closer, err := logger.New(logger.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Couldn't set up logging", "Check the 'log' section in vitals.yaml.")
	}

	appConfig = cfg
	appLog = log
	closeLog = closer
	logger.SetDefault(log)
	dashboard.ConfigureColor(noColorFlag)
	return nil
}

// Execute runs the root command and exits non-zero on failure. SIGINT and
// SIGTERM cancel the command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = closeLog()
	sshutil.CloseAgent()
	if err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// printError prints structured errors with their suggestion, and anything
// else (cobra usage errors) on one line.
func printError(w io.Writer, err error) {
	var e *errors.Error
	if stderrors.As(err, &e) {
		fmt.Fprint(w, e.Error())
		return
	}
	fmt.Fprintf(w, "Error: %v\nRun 'vitals --help' for usage.\n", err)
}
