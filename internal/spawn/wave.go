// Package spawn schedules agent waves and holds the simulation start until
// every agent has been generated.
package spawn

import (
	"context"
	"sync/atomic"
	"time"
)

// Timer is a countdown whose deadline can be moved. Deadlines are offsets
// from the simulation start.
type Timer interface {
	EndTime() time.Duration
	Restart(end time.Duration)
}

// Wave is a group of agents scheduled to appear at a point in simulation time.
type Wave struct {
	ID     int
	Agents int
	Boss   bool

	end atomic.Int64 // time.Duration
}

// NewWave creates a wave due at end.
func NewWave(id, agents int, boss bool, end time.Duration) *Wave {
	w := &Wave{ID: id, Agents: agents, Boss: boss}
	w.end.Store(int64(end))
	return w
}

// EndTime returns when the wave is due.
func (w *Wave) EndTime() time.Duration {
	return time.Duration(w.end.Load())
}

// Restart moves the wave deadline.
func (w *Wave) Restart(end time.Duration) {
	w.end.Store(int64(end))
}

// WaveSpawner creates the agents of a wave.
type WaveSpawner interface {
	SpawnWave(ctx context.Context, w *Wave) error
}

// WaveSpawnerFunc adapts a function to WaveSpawner.
type WaveSpawnerFunc func(ctx context.Context, w *Wave) error

// SpawnWave calls f(ctx, w).
func (f WaveSpawnerFunc) SpawnWave(ctx context.Context, w *Wave) error {
	return f(ctx, w)
}
