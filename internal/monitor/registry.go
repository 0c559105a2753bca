package monitor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/logger"
	"github.com/rileyhilliard/vitals/pkg/sshutil"
)

// probeCommand is the no-op used to check that a session still works.
const probeCommand = "echo 1"

// DefaultProbeTimeout bounds a liveness probe.
const DefaultProbeTimeout = 3 * time.Second

// ConnectionConfig describes a remote host to monitor.
type ConnectionConfig struct {
	Host     string
	Port     int
	Username string

	// Password and PrivateKey are optional. With neither, the SSH agent and
	// default key files are tried.
	Password   string
	PrivateKey string
	Passphrase string

	// IdentityFile is a key path, used when PrivateKey is empty.
	IdentityFile string

	OS Platform
}

// ID returns the deterministic connection id "username@host:port".
func (c ConnectionConfig) ID() string {
	port := c.Port
	if port == 0 {
		port = sshutil.DefaultPort
	}
	return fmt.Sprintf("%s@%s:%d", c.Username, c.Host, port)
}

// Validate checks the fields needed to dial.
func (c ConnectionConfig) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return errors.New(errors.ErrInvalidInput, "Host is required", "")
	}
	if strings.TrimSpace(c.Username) == "" {
		return errors.New(errors.ErrInvalidInput, "Username is required", "")
	}
	if c.Port < 0 || c.Port > 65535 {
		return errors.New(errors.ErrInvalidInput,
			fmt.Sprintf("Port %d is out of range", c.Port),
			"Use a port between 1 and 65535, or omit it for 22")
	}
	if _, err := ParsePlatform(string(c.OS)); err != nil {
		return err
	}
	return nil
}

// Dialer establishes a remote command session.
type Dialer func(ctx context.Context, cfg ConnectionConfig) (sshutil.Executor, error)

// SSHDialer returns a Dialer backed by sshutil.Dial.
func SSHDialer(opts sshutil.DialOptions) Dialer {
	return func(ctx context.Context, cfg ConnectionConfig) (sshutil.Executor, error) {
		target := sshutil.Target{
			Host:         cfg.Host,
			Port:         cfg.Port,
			User:         cfg.Username,
			IdentityFile: cfg.IdentityFile,
		}
		creds := sshutil.Credentials{
			Password:   cfg.Password,
			Passphrase: cfg.Passphrase,
		}
		if cfg.PrivateKey != "" {
			creds.PrivateKey = []byte(cfg.PrivateKey)
		}
		return sshutil.Dial(ctx, target, creds, opts)
	}
}

// Record is one live connection: its session and its history.
type Record struct {
	id          string
	platform    Platform
	exec        sshutil.Executor
	history     *HistoryStore
	connectedAt time.Time

	// ctx is cancelled on teardown so in-flight fetches stop.
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// ID returns the connection id.
func (r *Record) ID() string { return r.id }

// Platform returns the declared OS.
func (r *Record) Platform() Platform { return r.platform }

// Executor returns the remote command session.
func (r *Record) Executor() sshutil.Executor { return r.exec }

// History returns the connection's HistoryStore.
func (r *Record) History() *HistoryStore { return r.history }

// ConnectedAt returns when the session was established.
func (r *Record) ConnectedAt() time.Time { return r.connectedAt }

// Done is closed when the record is torn down.
func (r *Record) Done() <-chan struct{} { return r.ctx.Done() }

// Alive reports whether the record has not been torn down.
func (r *Record) Alive() bool { return r.ctx.Err() == nil }

// teardown cancels in-flight work, closes the session, and discards history.
func (r *Record) teardown() {
	r.stopOnce.Do(func() {
		r.cancel()
		_ = r.exec.Close()
		r.history.Drop()
	})
}

// RegistryOptions configures a Registry. Zero values take defaults.
type RegistryOptions struct {
	Dialer       Dialer
	MaxPoints    int
	MinInterval  time.Duration
	ProbeTimeout time.Duration
	Logger       logger.Logger
}

// Registry owns every live connection. At most one session exists per id.
type Registry struct {
	mu      sync.Mutex
	records map[string]*Record
	// pending holds a channel per id with an Open in flight; it is closed
	// when that Open finishes.
	pending map[string]chan struct{}
	// closed is set by CloseAll; later Opens are refused.
	closed bool

	dial         Dialer
	maxPoints    int
	minInterval  time.Duration
	probeTimeout time.Duration
	log          logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(opts RegistryOptions) *Registry {
	if opts.Dialer == nil {
		opts.Dialer = SSHDialer(sshutil.DialOptions{})
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logger.Noop()
	}
	return &Registry{
		records:      make(map[string]*Record),
		pending:      make(map[string]chan struct{}),
		dial:         opts.Dialer,
		maxPoints:    opts.MaxPoints,
		minInterval:  opts.MinInterval,
		probeTimeout: opts.ProbeTimeout,
		log:          opts.Logger,
	}
}

// Open connects to cfg's host and registers the session under cfg.ID().
// An existing session for the same id is probed and then replaced either
// way, so new credentials always take effect. On failure nothing is left
// registered and the error carries ErrConnectFailed.
func (r *Registry) Open(ctx context.Context, cfg ConnectionConfig) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	platform, _ := ParsePlatform(string(cfg.OS))
	cfg.OS = platform
	id := cfg.ID()

	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return "", errRegistryClosed(id)
	}

	release, err := r.acquire(ctx, id)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConnectFailed,
			fmt.Sprintf("Gave up waiting to connect to %s", id), "")
	}
	defer release()

	r.mu.Lock()
	old := r.records[id]
	r.mu.Unlock()

	if old != nil {
		if err := probe(ctx, old.exec, r.probeTimeout); err != nil {
			r.log.Debug("%s: stale session failed its probe: %v", id, err)
		} else {
			r.log.Debug("%s: replacing live session", id)
		}
		r.Evict(id, old)
	}

	exec, err := r.dial(ctx, cfg)
	if err != nil {
		r.log.Warn("%s: connect failed: %s", id, errors.Message(err))
		return "", errors.WrapWithCode(err, errors.ErrConnectFailed,
			fmt.Sprintf("Couldn't connect to %s", id),
			"Check the host, port, and credentials, then try again")
	}

	recCtx, cancel := context.WithCancel(context.Background())
	rec := &Record{
		id:          id,
		platform:    platform,
		exec:        exec,
		history:     NewHistoryStore(r.maxPoints, r.minInterval),
		connectedAt: time.Now(),
		ctx:         recCtx,
		cancel:      cancel,
	}

	// Only Open inserts, and Opens for id are serialized, so the slot is empty.
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		rec.teardown()
		r.log.Debug("%s: registry closed while dialling, dropping session", id)
		return "", errRegistryClosed(id)
	}
	r.records[id] = rec
	r.mu.Unlock()

	r.log.Info("%s: connected (%s)", id, platform)
	return id, nil
}

// acquire serializes Open calls per id.
func (r *Registry) acquire(ctx context.Context, id string) (func(), error) {
	for {
		r.mu.Lock()
		ch, busy := r.pending[id]
		if !busy {
			ch = make(chan struct{})
			r.pending[id] = ch
			r.mu.Unlock()
			return func() {
				r.mu.Lock()
				delete(r.pending, id)
				r.mu.Unlock()
				close(ch)
			}, nil
		}
		r.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close tears down the connection for id.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	rec, ok := r.records[id]
	if ok {
		delete(r.records, id)
	}
	r.mu.Unlock()

	if !ok {
		return errors.NotFound(id)
	}
	rec.teardown()
	r.log.Info("%s: disconnected", id)
	return nil
}

// Get returns the live record for id.
func (r *Registry) Get(id string) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, errors.NotFound(id)
	}
	return rec, nil
}

// Evict removes rec if it is still the record registered for id, and tears
// it down regardless. Reports whether rec was removed from the map.
func (r *Registry) Evict(id string, rec *Record) bool {
	r.mu.Lock()
	current, ok := r.records[id]
	removed := ok && current == rec
	if removed {
		delete(r.records, id)
	}
	r.mu.Unlock()

	rec.teardown()
	return removed
}

// IDs returns the registered connection ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	sort.Strings(ids)
	return ids
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// CloseAll tears down every connection. The registry accepts no new
// connections afterwards, including Opens already dialling.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	r.closed = true
	records := r.records
	r.records = make(map[string]*Record)
	r.mu.Unlock()

	for _, rec := range records {
		rec.teardown()
	}
	if len(records) > 0 {
		r.log.Info("closed %d connection(s)", len(records))
	}
}

func errRegistryClosed(id string) error {
	return errors.New(errors.ErrConnectFailed,
		fmt.Sprintf("Couldn't connect to %s: shutting down", id), "")
}

// probe runs the no-op command under timeout.
func probe(ctx context.Context, exec sshutil.Executor, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := run(ctx, exec, probeCommand)
	return err
}
