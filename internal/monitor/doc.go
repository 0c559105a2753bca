// Package monitor samples remote hosts over SSH and keeps a short rolling
// history of their metrics.
//
// # Components
//
//	Registry       - live SSH sessions keyed by "username@host:port"
//	HistoryStore   - per-metric ring buffers, one store per session
//	Sampler        - probes a session and assembles a Snapshot
//
// # Fetch cycle
//
// Sampler.FetchSnapshot looks the session up, runs a liveness probe, then
// collects the five metric categories concurrently, each under its own
// timeout:
//
//	system   hostname, OS, uptime (required)
//	cpu      usage, cores, temperature
//	memory   RAM and swap
//	storage  filesystem usage joined with device I/O rates
//	gpu      first adapter, absent when the host has none
//
// A failed probe or a failed system category evicts the session and reports
// ConnectionLost. Any other failed category only degrades the snapshot: it
// reports zero values and records no history for that cycle.
//
// # History
//
// Each series holds at most 100 points. A point is recorded only when at
// least 4.5s have passed since the previous point of the same series, so
// clients polling faster than that do not compress the time window.
//
// Series keys:
//
//	cpu.usage  cpu.temperature
//	memory.usage  memory.swapUsage
//	storage.<mount>.usage  storage.<mount>.readSpeed  storage.<mount>.writeSpeed
//	gpu.usage  gpu.memoryUsage  gpu.temperature
package monitor
