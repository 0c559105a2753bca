package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rileyhilliard/vitals/internal/config"
	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/logger"
	"github.com/rileyhilliard/vitals/internal/monitor"
	"github.com/rileyhilliard/vitals/pkg/sshutil"
)

// passwordEnv supplies a password without putting it in shell history.
const passwordEnv = "VITALS_SSH_PASSWORD"

// connectFlags are shared by commands that open a connection themselves.
type connectFlags struct {
	OS       string
	Password string
	KeyFile  string
}

func addConnectFlags(cmd *cobra.Command, f *connectFlags) {
	cmd.Flags().StringVar(&f.OS, "os", "", "remote platform: linux (default) or windows")
	cmd.Flags().StringVar(&f.Password, "password", "", "SSH password (or set "+passwordEnv+")")
	cmd.Flags().StringVar(&f.KeyFile, "key", "", "private key file")
}

// resolveConnection turns a target argument into a ConnectionConfig. The
// argument is a hosts profile from the config, an ~/.ssh/config alias, or
// user@host[:port]. Flags override profile values.
func resolveConnection(arg string, f connectFlags, cfg *config.Config, resolve func(sshutil.Target) sshutil.Target) (monitor.ConnectionConfig, error) {
	raw, osName, keyFile := arg, f.OS, f.KeyFile
	if profile, ok := cfg.Hosts[arg]; ok {
		raw = profile.SSH
		if osName == "" {
			osName = profile.OS
		}
		if keyFile == "" {
			keyFile = profile.KeyFile
		}
	}

	target, err := sshutil.ParseTarget(raw)
	if err != nil {
		return monitor.ConnectionConfig{}, errors.WrapWithCode(err, errors.ErrInvalidInput,
			fmt.Sprintf("'%s' isn't a valid target", arg),
			"Use user@host[:port], an ~/.ssh/config alias, or a host name from vitals.yaml.")
	}
	target = resolve(target)

	platform, err := monitor.ParsePlatform(osName)
	if err != nil {
		return monitor.ConnectionConfig{}, err
	}

	cc := monitor.ConnectionConfig{
		Host:         target.Host,
		Port:         target.Port,
		Username:     target.User,
		Password:     f.Password,
		IdentityFile: target.IdentityFile,
		OS:           platform,
	}
	if cc.Password == "" {
		cc.Password = os.Getenv(passwordEnv)
	}

	if keyFile != "" {
		path := config.ExpandTilde(keyFile)
		pem, err := os.ReadFile(path)
		if err != nil {
			return monitor.ConnectionConfig{}, errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Couldn't read key file %s", path),
				"Check the path passed to --key or the host's key_file.")
		}
		cc.PrivateKey = string(pem)
	}

	return cc, cc.Validate()
}

// needsPassword reports whether no credential source is available, so
// asking for a password is the only way in.
func needsPassword(cc monitor.ConnectionConfig) bool {
	return cc.Password == "" && cc.PrivateKey == "" && cc.IdentityFile == "" &&
		os.Getenv("SSH_AUTH_SOCK") == ""
}

// promptPassword asks for the password interactively. It returns "" without
// prompting when stdin is not a terminal.
func promptPassword(id string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", nil
	}

	var password string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Password for %s", id)).
				EchoMode(huh.EchoModePassword).
				Value(&password),
		),
	)
	if err := form.Run(); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrInvalidInput, "Password prompt cancelled", "")
	}
	return strings.TrimRight(password, "\r\n"), nil
}

// newRegistry builds a registry dialling over SSH with cfg's settings.
func newRegistry(cfg *config.Config, log logger.Logger) *monitor.Registry {
	return monitor.NewRegistry(monitor.RegistryOptions{
		Dialer: monitor.SSHDialer(sshutil.DialOptions{
			Timeout:               cfg.SSH.DialTimeout,
			StrictHostKeyChecking: cfg.SSH.StrictHostKeyChecking,
			KnownHostsPath:        cfg.SSH.KnownHosts,
		}),
		MaxPoints:    cfg.History.MaxPoints,
		MinInterval:  cfg.History.MinInterval,
		ProbeTimeout: cfg.Sampler.ProbeTimeout,
		Logger:       log,
	})
}

func newSampler(reg *monitor.Registry, cfg *config.Config, log logger.Logger) *monitor.Sampler {
	return monitor.NewSampler(reg, monitor.SamplerOptions{
		ProbeTimeout:    cfg.Sampler.ProbeTimeout,
		CategoryTimeout: cfg.Sampler.CategoryTimeout,
		Logger:          log,
	})
}
