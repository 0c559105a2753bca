package monitor

import (
	"context"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/logger"
	"github.com/rileyhilliard/vitals/internal/monitor/parsers"
)

// DefaultCategoryTimeout bounds each metric category's remote commands.
const DefaultCategoryTimeout = 10 * time.Second

// SamplerOptions configures a Sampler. Zero values take defaults.
type SamplerOptions struct {
	ProbeTimeout    time.Duration
	CategoryTimeout time.Duration
	Logger          logger.Logger
	// Clock stamps recorded samples. Defaults to time.Now.
	Clock func() time.Time
}

// Sampler runs fetch cycles against registered connections.
type Sampler struct {
	reg             *Registry
	probeTimeout    time.Duration
	categoryTimeout time.Duration
	log             logger.Logger
	now             func() time.Time
}

// NewSampler creates a Sampler over reg.
func NewSampler(reg *Registry, opts SamplerOptions) *Sampler {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.CategoryTimeout <= 0 {
		opts.CategoryTimeout = DefaultCategoryTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logger.Noop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Sampler{
		reg:             reg,
		probeTimeout:    opts.ProbeTimeout,
		categoryTimeout: opts.CategoryTimeout,
		log:             opts.Logger,
		now:             opts.Clock,
	}
}

// Registry returns the registry the sampler reads from.
func (s *Sampler) Registry() *Registry { return s.reg }

// readings is the raw output of one cycle's five categories.
type readings struct {
	system *parsers.System
	cpu    *parsers.CPU
	memory *parsers.Memory
	fs     []parsers.Filesystem
	rates  []parsers.DiskIO
	gpu    *parsers.GPU

	systemErr, cpuErr, memoryErr, storageErr, gpuErr error
}

// FetchSnapshot runs one fetch cycle for id.
//
// Unknown ids fail with ErrNotFound before any remote call. A failed
// liveness probe or system category evicts the connection and fails with
// ErrConnectionLost. Other categories degrade to zero values and are only
// logged. If the connection is closed while the cycle runs, the results are
// discarded and the call fails with ErrNotFound.
func (s *Sampler) FetchSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	rec, err := s.reg.Get(id)
	if err != nil {
		return nil, err
	}

	// Stop remote work as soon as the record is torn down.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(rec.ctx, cancel)
	defer stop()

	if err := probe(ctx, rec.exec, s.probeTimeout); err != nil {
		if failed := s.interrupted(ctx, rec); failed != nil {
			return nil, failed
		}
		s.reg.Evict(id, rec)
		s.log.Warn("%s: liveness probe failed, connection evicted: %s", id, errors.Message(err))
		return nil, errors.ConnectionLost(id, err)
	}

	r, err := s.collect(ctx, rec)
	if err != nil {
		return nil, err
	}
	if failed := s.interrupted(ctx, rec); failed != nil {
		return nil, failed
	}

	if r.systemErr != nil {
		s.reg.Evict(id, rec)
		s.log.Warn("%s: system info unavailable, connection evicted: %s", id, errors.Message(r.systemErr))
		return nil, errors.ConnectionLost(id, r.systemErr)
	}
	s.logDegraded(id, "cpu", r.cpuErr)
	s.logDegraded(id, "memory", r.memoryErr)
	s.logDegraded(id, "storage", r.storageErr)
	s.logDegraded(id, "gpu", r.gpuErr)

	snap := s.assemble(rec, r, s.now())

	if !rec.Alive() {
		return nil, errors.NotFound(id)
	}
	return snap, nil
}

// interrupted returns the error for a cycle cut short by teardown or by the
// caller, or nil if neither happened.
func (s *Sampler) interrupted(ctx context.Context, rec *Record) error {
	if !rec.Alive() {
		return errors.NotFound(rec.id)
	}
	if err := context.Cause(ctx); err != nil {
		return errors.Wrap(err, "Fetch cancelled for "+rec.id)
	}
	return nil
}

// collect fans out the five categories, each under its own timeout.
func (s *Sampler) collect(ctx context.Context, rec *Record) (*readings, error) {
	src := sourceFor(rec.platform)
	exec := rec.exec
	r := &readings{}

	var wg conc.WaitGroup
	wg.Go(func() {
		r.system, r.systemErr = within(ctx, s.categoryTimeout, func(ctx context.Context) (*parsers.System, error) {
			return src.System(ctx, exec)
		})
	})
	wg.Go(func() {
		r.cpu, r.cpuErr = within(ctx, s.categoryTimeout, func(ctx context.Context) (*parsers.CPU, error) {
			return src.CPU(ctx, exec)
		})
	})
	wg.Go(func() {
		r.memory, r.memoryErr = within(ctx, s.categoryTimeout, func(ctx context.Context) (*parsers.Memory, error) {
			return src.Memory(ctx, exec)
		})
	})
	wg.Go(func() {
		ctx, cancel := context.WithTimeout(ctx, s.categoryTimeout)
		defer cancel()
		r.fs, r.rates, r.storageErr = src.Storage(ctx, exec)
	})
	wg.Go(func() {
		r.gpu, r.gpuErr = within(ctx, s.categoryTimeout, func(ctx context.Context) (*parsers.GPU, error) {
			return src.GPU(ctx, exec)
		})
	})

	if recovered := wg.WaitAndRecover(); recovered != nil {
		return nil, errors.Wrap(recovered.AsError(), "Sampling "+rec.id+" panicked")
	}
	return r, nil
}

func within[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}

func (s *Sampler) logDegraded(id, category string, err error) {
	if err == nil {
		return
	}
	degraded := errors.WrapWithCode(err, errors.ErrMetricUnavailable, category+" metrics unavailable", "")
	s.log.Warn("%s: %s", id, degraded.Short())
}

// assemble records this cycle's samples and builds the snapshot. Failed
// categories report zero values and record nothing.
func (s *Sampler) assemble(rec *Record, r *readings, now time.Time) *Snapshot {
	h := rec.history

	snap := &Snapshot{
		ConnectionID:    rec.id,
		TimestampMillis: now.UnixMilli(),
		System: SystemInfo{
			Hostname:      r.system.Hostname,
			OS:            string(rec.platform),
			UptimeSeconds: r.system.UptimeSeconds,
		},
		Storage: []StorageInfo{},
	}

	if r.cpuErr == nil && r.cpu != nil {
		snap.CPU.UsagePercent = r.cpu.UsagePercent
		snap.CPU.Cores = r.cpu.Cores
		snap.CPU.TemperatureC = r.cpu.TemperatureC
		h.Record(KeyCPUUsage, r.cpu.UsagePercent, now)
		if r.cpu.TemperatureC != nil {
			h.Record(KeyCPUTemperature, *r.cpu.TemperatureC, now)
		}
	}
	snap.CPU.History.Usage = h.Series(KeyCPUUsage)
	if h.Has(KeyCPUTemperature) {
		snap.CPU.History.Temperature = h.Series(KeyCPUTemperature)
	}

	if r.memoryErr == nil && r.memory != nil {
		m := r.memory
		snap.Memory = MemoryInfo{
			TotalBytes:       m.TotalBytes,
			UsedBytes:        m.UsedBytes,
			FreeBytes:        m.FreeBytes,
			SwapTotalBytes:   m.SwapTotalBytes,
			SwapUsedBytes:    m.SwapUsedBytes,
			UsagePercent:     percent(m.UsedBytes, m.TotalBytes),
			SwapUsagePercent: percent(m.SwapUsedBytes, m.SwapTotalBytes),
		}
		h.Record(KeyMemoryUsage, snap.Memory.UsagePercent, now)
		h.Record(KeySwapUsage, snap.Memory.SwapUsagePercent, now)
	}
	snap.Memory.History = MemoryHistory{
		Usage:     h.Series(KeyMemoryUsage),
		SwapUsage: h.Series(KeySwapUsage),
	}

	if r.storageErr == nil {
		for _, fs := range r.fs {
			st := StorageInfo{
				MountPoint:   fs.MountPoint,
				Device:       fs.Device,
				TotalBytes:   fs.TotalBytes,
				UsedBytes:    fs.UsedBytes,
				FreeBytes:    fs.FreeBytes,
				UsagePercent: percent(fs.UsedBytes, fs.TotalBytes),
			}
			if io, ok := parsers.MatchDevice(fs.Device, r.rates); ok {
				st.ReadBps, st.WriteBps = io.ReadBps, io.WriteBps
			}

			usageKey := StorageUsageKey(fs.MountPoint)
			readKey := StorageReadKey(fs.MountPoint)
			writeKey := StorageWriteKey(fs.MountPoint)
			h.Ensure(usageKey)
			h.Ensure(readKey)
			h.Ensure(writeKey)
			h.Record(usageKey, st.UsagePercent, now)
			h.Record(readKey, st.ReadBps, now)
			h.Record(writeKey, st.WriteBps, now)

			st.History = StorageHistory{
				Usage:    h.Series(usageKey),
				ReadBps:  h.Series(readKey),
				WriteBps: h.Series(writeKey),
			}
			snap.Storage = append(snap.Storage, st)
		}
	}

	if r.gpuErr == nil && r.gpu != nil {
		g := r.gpu
		info := &GPUInfo{
			Name:             g.Name,
			UsagePercent:     g.UsagePercent,
			MemoryUsedBytes:  g.MemoryUsedBytes,
			MemoryTotalBytes: g.MemoryTotalBytes,
			MemoryPercent:    percent(g.MemoryUsedBytes, g.MemoryTotalBytes),
			TemperatureC:     g.TemperatureC,
		}
		h.Ensure(KeyGPUUsage)
		h.Ensure(KeyGPUMemoryUsage)
		h.Record(KeyGPUUsage, info.UsagePercent, now)
		h.Record(KeyGPUMemoryUsage, info.MemoryPercent, now)
		if g.TemperatureC != nil {
			h.Record(KeyGPUTemperature, *g.TemperatureC, now)
		}
		info.History = GPUHistory{
			Usage:       h.Series(KeyGPUUsage),
			MemoryUsage: h.Series(KeyGPUMemoryUsage),
		}
		if h.Has(KeyGPUTemperature) {
			info.History.Temperature = h.Series(KeyGPUTemperature)
		}
		snap.GPU = info
	}

	return snap
}
