package monitor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/vitals/internal/logger"
	"github.com/rileyhilliard/vitals/pkg/sshutil"
	sshtesting "github.com/rileyhilliard/vitals/pkg/sshutil/testing"
)

const (
	fixtureFree = `               total        used        free      shared  buff/cache   available
Mem:      8589934592  4294967296  2147483648    10485760  2147483648  4026531840
Swap:     2147483648   536870912  1610612736
`
	fixtureDF = `Filesystem         1-blocks        Used   Available Capacity Mounted on
tmpfs             818180096     1835008   816345088       1% /run
/dev/sda1      100000000000 25000000000 75000000000      25% /
nas:/export     20000000000 10000000000 10000000000      50% /mnt/nas
`
	fixtureIostat = `Linux 6.1.0 (web1) 	10/19/2026 	_x86_64_	(4 CPU)

Device             tps    kB_read/s    kB_wrtn/s    kB_dscd/s    kB_read    kB_wrtn    kB_dscd
sda              90.00      9000.00      9000.00         0.00   12345678   23456789          0

Device             tps    kB_read/s    kB_wrtn/s    kB_dscd/s    kB_read    kB_wrtn    kB_dscd
sda               4.00        64.00        32.00         0.00         64         32          0
`
	fixtureNvidia = "NVIDIA GeForce RTX 3080, 45, 2560, 10240, 65\n"
)

func topLine(usage float64) string {
	return fmt.Sprintf("%%Cpu(s): %4.1f us,  0.0 sy,  0.0 ni, %4.1f id,  0.0 wa,  0.0 hi,  0.0 si,  0.0 st\n", usage, 100-usage)
}

// newLinuxHost returns a mock answering every Linux command except nvidia-smi.
func newLinuxHost(host string) *sshtesting.MockClient {
	m := sshtesting.NewMockClient(host)
	m.SetOutput(probeCommand, "1\n")
	m.SetOutput(cmdHostname, host+"\n")
	m.SetOutput(cmdProcUptime, "350735.47 234388.90\n")
	m.SetOutput(cmdTopCPU, topLine(25))
	m.SetOutput(cmdNproc, "4\n")
	m.SetOutput(cmdThermalZones, "48000\n")
	m.SetOutput(cmdFree, fixtureFree)
	m.SetOutput(cmdDF, fixtureDF)
	m.SetOutput(cmdIostat, fixtureIostat)
	return m
}

// fakeDialer hands out mock clients and remembers them.
type fakeDialer struct {
	mu      sync.Mutex
	setup   func(cfg ConnectionConfig) *sshtesting.MockClient
	err     error
	delay   time.Duration
	clients []*sshtesting.MockClient
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{
		setup: func(cfg ConnectionConfig) *sshtesting.MockClient { return newLinuxHost(cfg.Host) },
	}
}

func (f *fakeDialer) Dial(ctx context.Context, cfg ConnectionConfig) (sshutil.Executor, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	m := f.setup(cfg)
	f.clients = append(f.clients, m)
	return m, nil
}

func (f *fakeDialer) Clients() []*sshtesting.MockClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*sshtesting.MockClient, len(f.clients))
	copy(out, f.clients)
	return out
}

func (f *fakeDialer) Last(t *testing.T) *sshtesting.MockClient {
	t.Helper()
	clients := f.Clients()
	require.NotEmpty(t, clients, "no client dialled")
	return clients[len(clients)-1]
}

// fakeClock advances only when told to.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	dialer  *fakeDialer
	clock   *fakeClock
	log     *logger.BufferLogger
	reg     *Registry
	sampler *Sampler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		dialer: newFakeDialer(),
		clock:  newFakeClock(),
		log:    logger.NewBufferLogger(),
	}
	h.reg = NewRegistry(RegistryOptions{
		Dialer:       h.dialer.Dial,
		ProbeTimeout: time.Second,
		Logger:       h.log,
	})
	h.sampler = NewSampler(h.reg, SamplerOptions{
		ProbeTimeout:    time.Second,
		CategoryTimeout: 2 * time.Second,
		Logger:          h.log,
		Clock:           h.clock.Now,
	})
	t.Cleanup(h.reg.CloseAll)
	return h
}

func (h *harness) connect(t *testing.T, cfg ConnectionConfig) string {
	t.Helper()
	id, err := h.reg.Open(context.Background(), cfg)
	require.NoError(t, err)
	return id
}

var webConfig = ConnectionConfig{Host: "web1", Port: 22, Username: "ops", Password: "hunter2"}
