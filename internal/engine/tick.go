// Package engine provides the cycle-based simulation loop: an AGENT phase
// followed by an ENVIRONMENT phase, repeated once per cycle.
package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Engine drives the simulation forward.
type Engine struct {
	Cycle     uint64        // Last completed cycle (monotonic, never resets)
	MinCycle  time.Duration // Minimum wall-clock duration of one cycle
	MaxCycles uint64        // Stop after this cycle; 0 = run until stopped

	// Phase callbacks, populated during setup. The AGENT phase always
	// completes before the ENVIRONMENT phase of the same cycle starts.
	OnAgents      func(cycle uint64)
	OnEnvironment func(cycle uint64)
	OnCycleDone   func(cycle uint64, elapsed time.Duration)

	running atomic.Bool
	paused  atomic.Bool
}

// NewEngine creates a simulation engine with default settings.
func NewEngine(minCycle time.Duration) *Engine {
	return &Engine{MinCycle: minCycle}
}

// Run drives cycles until Stop is called, ctx is done, or MaxCycles is
// reached. A cycle is never interrupted once started.
func (e *Engine) Run(ctx context.Context) {
	e.running.Store(true)
	defer e.running.Store(false)
	slog.Info("simulation engine started", "cycle", e.Cycle, "min_cycle", e.MinCycle)

	for e.running.Load() {
		if ctx.Err() != nil {
			break
		}
		if e.paused.Load() {
			if !sleep(ctx, 100*time.Millisecond) {
				break
			}
			continue
		}

		start := time.Now()
		e.Step()
		elapsed := time.Since(start)

		if e.MaxCycles > 0 && e.Cycle >= e.MaxCycles {
			break
		}

		// Sleep out the remainder of the cycle, or report the overrun.
		if elapsed < e.MinCycle {
			if !sleep(ctx, e.MinCycle-elapsed) {
				break
			}
		} else if e.MinCycle > 0 {
			slog.Warn("cycle overran", "cycle", e.Cycle, "elapsed", elapsed, "min_cycle", e.MinCycle)
		}
	}

	slog.Info("simulation engine stopped", "cycle", e.Cycle)
}

// Stop halts the loop after the current cycle.
func (e *Engine) Stop() {
	e.running.Store(false)
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// SetPaused suspends or resumes cycling without leaving Run.
func (e *Engine) SetPaused(p bool) {
	e.paused.Store(p)
}

// Paused reports whether cycling is suspended.
func (e *Engine) Paused() bool {
	return e.paused.Load()
}

// Step advances the simulation by one full cycle and returns its duration.
func (e *Engine) Step() time.Duration {
	start := time.Now()
	cycle := e.Cycle + 1

	if e.OnAgents != nil {
		e.OnAgents(cycle)
	}
	if e.OnEnvironment != nil {
		e.OnEnvironment(cycle)
	}
	e.Cycle = cycle

	elapsed := time.Since(start)
	if e.OnCycleDone != nil {
		e.OnCycleDone(cycle, elapsed)
	}
	return elapsed
}

// sleep waits for d or until ctx is done; it reports false on the latter.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
