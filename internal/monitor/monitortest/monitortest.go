// Package monitortest provides scripted hosts for tests that drive a
// Registry and Sampler from outside the monitor package.
package monitortest

import (
	"context"
	"sync"

	"github.com/rileyhilliard/vitals/internal/monitor"
	"github.com/rileyhilliard/vitals/pkg/sshutil"
	sshtesting "github.com/rileyhilliard/vitals/pkg/sshutil/testing"
)

// ProbePattern matches the liveness probe. Set an error on it to make the
// host look dead.
const ProbePattern = `^echo 1$`

const (
	linuxFree = `               total        used        free      shared  buff/cache   available
Mem:      8589934592  4294967296  2147483648    10485760  2147483648  4026531840
Swap:              0           0           0
`
	linuxDF = `Filesystem         1-blocks        Used   Available Capacity Mounted on
/dev/sda1      100000000000 25000000000 75000000000      25% /
`
	linuxIostat = `Device             tps    kB_read/s    kB_wrtn/s
sda               4.00        64.00        32.00
`
)

// LinuxHost answers the Linux sampling commands by pattern: 25% CPU on 4
// cores, 4 GiB of 8 GiB memory used, no swap, one 100 GB filesystem on /
// reading 64 KiB/s. nvidia-smi is neither installed nor answered, so there
// is no GPU.
func LinuxHost(host string) *sshtesting.MockClient {
	m := sshtesting.NewMockClient(host)
	m.SetOutput(ProbePattern, "1\n")
	m.SetOutput(`^hostname$`, host+"\n")
	m.SetOutput(`^cat /proc/uptime$`, "3600.00 7200.00\n")
	m.SetOutput(`^top -bn1`, "%Cpu(s): 25.0 us,  0.0 sy,  0.0 ni, 75.0 id,  0.0 wa,  0.0 hi,  0.0 si,  0.0 st\n")
	m.SetOutput(`^nproc$`, "4\n")
	m.SetOutput(`^cat /sys/class/thermal/`, "48000\n")
	m.SetOutput(`^free -b$`, linuxFree)
	m.SetOutput(`^df -B1 -P$`, linuxDF)
	m.SetOutput(`^iostat `, linuxIostat)
	m.SetOutput(`^command -v (hostname|top|nproc|free|df|iostat)$`, "/usr/bin/tool\n")
	return m
}

// Dialer hands out a LinuxHost per dial and remembers it by connection id.
type Dialer struct {
	mu      sync.Mutex
	err     error
	clients map[string]*sshtesting.MockClient
	dials   int
}

// NewDialer creates a Dialer with no failures.
func NewDialer() *Dialer {
	return &Dialer{clients: make(map[string]*sshtesting.MockClient)}
}

// Dial implements monitor.Dialer.
func (d *Dialer) Dial(_ context.Context, cfg monitor.ConnectionConfig) (sshutil.Executor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.err != nil {
		return nil, d.err
	}
	m := LinuxHost(cfg.Host)
	d.clients[cfg.ID()] = m
	return m, nil
}

// Fail makes subsequent dials return err. nil restores success.
func (d *Dialer) Fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

// Client returns the most recent session dialled for id.
func (d *Dialer) Client(id string) (*sshtesting.MockClient, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.clients[id]
	return m, ok
}

// Dials counts dial attempts, failed ones included.
func (d *Dialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}
