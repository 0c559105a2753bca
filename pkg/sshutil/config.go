package sshutil

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// ConfigHost is a concrete Host entry from ~/.ssh/config.
type ConfigHost struct {
	Alias    string
	Hostname string
	User     string
	Port     string
}

// Description summarises where the alias points.
func (h ConfigHost) Description() string {
	var parts []string
	if h.Hostname != "" && h.Hostname != h.Alias {
		parts = append(parts, h.Hostname)
	}
	if h.User != "" {
		parts = append(parts, "user: "+h.User)
	}
	if h.Port != "" && h.Port != "22" {
		parts = append(parts, "port: "+h.Port)
	}
	if len(parts) == 0 {
		return h.Alias
	}
	return strings.Join(parts, ", ")
}

// ConfigHosts lists the aliases in ~/.ssh/config, sorted. A missing file
// yields no hosts and no error.
func ConfigHosts() ([]ConfigHost, error) {
	return configHostsFrom(filepath.Join(homeDir(), ".ssh", "config"))
}

func configHostsFrom(configPath string) ([]ConfigHost, error) {
	content, _, err := preprocessSSHConfig(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	var hosts []ConfigHost
	seen := make(map[string]bool)
	for _, host := range cfg.Hosts {
		for _, pattern := range host.Patterns {
			alias := pattern.String()
			if strings.ContainsAny(alias, "*?!") || seen[alias] {
				continue
			}
			seen[alias] = true

			h := ConfigHost{Alias: alias}
			h.Hostname, _ = cfg.Get(alias, "HostName")
			h.User, _ = cfg.Get(alias, "User")
			h.Port, _ = cfg.Get(alias, "Port")
			hosts = append(hosts, h)
		}
	}

	sort.Slice(hosts, func(i, j int) bool { return hosts[i].Alias < hosts[j].Alias })
	return hosts, nil
}
