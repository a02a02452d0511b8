package spawn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultSafetyDelay pushes held timers far enough out that none can fire
// while agents are still being generated.
const DefaultSafetyDelay = 999 * time.Second

// StartGate delays the simulation start until agent generation completes.
//
// Hold pushes every timer out by the safety delay. Waves that come due while
// the gate is held are buffered and replayed by Release.
type StartGate struct {
	mu     sync.Mutex
	safety time.Duration
	held   bool
	timers []Timer
	missed []*Wave
}

// NewStartGate creates an open gate.
func NewStartGate(safety time.Duration) *StartGate {
	return &StartGate{safety: safety}
}

// Hold delays timers by the safety delay and starts buffering missed waves.
// Timers passed to a gate that is already held are delayed and added.
func (g *StartGate) Hold(timers ...Timer) {
	g.mu.Lock()
	defer g.mu.Unlock()

	shift(timers, g.safety)
	g.timers = append(g.timers, timers...)
	g.held = true

	slog.Info("start held until agent generation completes",
		"timers", len(timers),
		"safetyDelay", g.safety)
}

// IsHeld reports whether the gate is holding the start.
func (g *StartGate) IsHeld() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held
}

// AddMissedWave buffers a wave that came due while the gate is held.
// Returns false when the gate is open and the caller should spawn it now.
func (g *StartGate) AddMissedWave(w *Wave) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.held {
		return false
	}
	g.missed = append(g.missed, w)
	slog.Debug("wave missed while start is held", "wave", w.ID, "agents", w.Agents)
	return true
}

// MissedWaves returns the number of buffered waves.
func (g *StartGate) MissedWaves() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.missed)
}

// Release opens the gate. Held timers are moved by elapsed minus the safety
// delay, so they end up delayed by exactly the time the start was held.
// Buffered waves are then spawned, regular waves before boss waves, and the
// buffer is cleared.
// Releasing an open gate is a no-op.
func (g *StartGate) Release(ctx context.Context, elapsed time.Duration, spawner WaveSpawner) error {
	g.mu.Lock()
	if !g.held {
		g.mu.Unlock()
		return nil
	}
	shift(g.timers, elapsed-g.safety)
	timers := len(g.timers)
	missed := g.missed
	g.timers = nil
	g.missed = nil
	g.held = false
	g.mu.Unlock()

	slog.Info("start released",
		"timers", timers,
		"delay", elapsed,
		"missedWaves", len(missed))

	var errs []error
	for _, boss := range []bool{false, true} {
		for _, w := range missed {
			if w.Boss != boss {
				continue
			}
			if err := spawner.SpawnWave(ctx, w); err != nil {
				errs = append(errs, fmt.Errorf("spawning missed wave %d: %w", w.ID, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Clear drops buffered waves and held timers and opens the gate.
func (g *StartGate) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.timers = nil
	g.missed = nil
	g.held = false
}

// WaitForGenerators blocks until remaining reports zero pending agent
// generators or ctx is done. It reports whether it had to wait at all.
func WaitForGenerators(ctx context.Context, remaining func() int, every time.Duration) (bool, error) {
	const notifyEvery = 2 * time.Second

	if remaining() == 0 {
		return false, nil
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	var lastNotice time.Time
	for {
		if n := remaining(); n == 0 {
			slog.Info("all agent generators finished")
			return true, nil
		} else if time.Since(lastNotice) > notifyEvery {
			slog.Info("waiting for agent generators to finish", "remaining", n)
			lastNotice = time.Now()
		}

		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case <-ticker.C:
		}
	}
}

func shift(timers []Timer, d time.Duration) {
	for _, t := range timers {
		t.Restart(t.EndTime() + d)
	}
}
