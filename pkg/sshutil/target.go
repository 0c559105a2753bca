package sshutil

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// DefaultPort is used when a target names no port.
const DefaultPort = 22

// Target identifies a remote endpoint.
type Target struct {
	Host string
	Port int
	User string

	// IdentityFile comes from ~/.ssh/config when the host is an alias.
	IdentityFile string
}

// Address returns host:port for dialing.
func (t Target) Address() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// String renders user@host:port.
func (t Target) String() string {
	return fmt.Sprintf("%s@%s:%d", t.User, t.Host, t.Port)
}

// ParseTarget parses user@host[:port]. User and port are optional;
// missing values are left empty/zero for ResolveTarget to fill in.
// IPv6 literals must be bracketed when a port is given: user@[::1]:22.
func ParseTarget(s string) (Target, error) {
	var t Target
	s = strings.TrimSpace(s)
	if s == "" {
		return t, fmt.Errorf("empty host")
	}

	if at := strings.LastIndex(s, "@"); at != -1 {
		t.User = s[:at]
		s = s[at+1:]
	}

	host, port, err := net.SplitHostPort(s)
	if err != nil {
		// No port, or an unbracketed IPv6 literal.
		t.Host = strings.Trim(s, "[]")
		return t, validateHost(t.Host)
	}

	p, err := strconv.Atoi(port)
	if err != nil || p <= 0 || p > 65535 {
		return t, fmt.Errorf("invalid port %q", port)
	}
	t.Host = host
	t.Port = p
	return t, validateHost(t.Host)
}

func validateHost(host string) error {
	if host == "" {
		return fmt.Errorf("empty host")
	}
	if strings.ContainsAny(host, " /") {
		return fmt.Errorf("invalid host %q", host)
	}
	return nil
}

// ResolveTarget fills in HostName, Port, User, and IdentityFile from
// ~/.ssh/config when t.Host is an alias. Explicit values on t win.
// Remaining gaps get DefaultPort and the local user.
func ResolveTarget(t Target) Target {
	return resolveWithConfig(t, filepath.Join(homeDir(), ".ssh", "config"))
}

func resolveWithConfig(t Target, configPath string) Target {
	// kevinburke/ssh_config can't parse Match blocks, so only the content
	// before the first one is considered.
	content, _, err := preprocessSSHConfig(configPath)
	if err == nil {
		if cfg, err := ssh_config.Decode(bytes.NewReader(content)); err == nil {
			alias := t.Host
			if hostname, _ := cfg.Get(alias, "HostName"); hostname != "" {
				t.Host = hostname
			}
			if t.Port == 0 {
				if port, _ := cfg.Get(alias, "Port"); port != "" {
					if p, err := strconv.Atoi(port); err == nil {
						t.Port = p
					}
				}
			}
			if t.User == "" {
				if user, _ := cfg.Get(alias, "User"); user != "" {
					t.User = user
				}
			}
			if identity, _ := cfg.Get(alias, "IdentityFile"); identity != "" {
				t.IdentityFile = expandPath(identity)
			}
		}
	}

	if t.Port == 0 {
		t.Port = DefaultPort
	}
	if t.User == "" {
		t.User = currentUser()
	}
	return t
}

// preprocessSSHConfig reads the SSH config and returns content up to the first Match directive.
// Also returns the line number where Match was found (0 if not found).
func preprocessSSHConfig(configPath string) ([]byte, int, error) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, 0, err
	}

	lines := strings.Split(string(content), "\n")
	var result []string
	matchLine := 0

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(trimmed), "match ") {
			matchLine = i + 1
			break
		}
		result = append(result, line)
	}

	return []byte(strings.Join(result, "\n")), matchLine, nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}
