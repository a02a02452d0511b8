package spawn

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/udisondev/questbots/internal/clock"
)

// Scheduler spawns waves when their deadline passes. Waves that come due
// while the start gate is held are handed to the gate instead.
type Scheduler struct {
	clock    clock.Clock
	start    time.Time
	interval time.Duration
	gate     *StartGate
	spawner  WaveSpawner
	stopCh   chan struct{}
	stopOnce sync.Once

	mu    sync.Mutex
	waves map[int]*Wave // waveID → wave

	spawned atomic.Int32
	failed  atomic.Int32
}

// NewScheduler creates a scheduler whose wave deadlines count from now.
// gate may be nil.
func NewScheduler(clk clock.Clock, interval time.Duration, gate *StartGate, spawner WaveSpawner) *Scheduler {
	return &Scheduler{
		clock:    clk,
		start:    clk.Now(),
		interval: interval,
		gate:     gate,
		spawner:  spawner,
		stopCh:   make(chan struct{}),
		waves:    make(map[int]*Wave),
	}
}

// Schedule adds a wave. A wave with the same ID replaces the previous one.
func (s *Scheduler) Schedule(w *Wave) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waves[w.ID] = w

	slog.Debug("wave scheduled",
		"wave", w.ID,
		"agents", w.Agents,
		"boss", w.Boss,
		"at", w.EndTime())
}

// Cancel removes a pending wave.
func (s *Scheduler) Cancel(waveID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.waves, waveID)
}

// Timers returns the pending waves as timers, ordered by wave ID.
func (s *Scheduler) Timers() []Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int, 0, len(s.waves))
	for id := range s.waves {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	timers := make([]Timer, 0, len(ids))
	for _, id := range ids {
		timers = append(timers, s.waves[id])
	}
	return timers
}

// Elapsed returns the simulation time since the scheduler was created.
func (s *Scheduler) Elapsed() time.Duration {
	return s.clock.Now().Sub(s.start)
}

// Start runs the scheduler loop (blocks until context is canceled or Stop is called).
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("wave scheduler started", "interval", s.interval, "pending", s.Pending())

	for {
		select {
		case <-ctx.Done():
			slog.Info("wave scheduler stopping")
			return ctx.Err()

		case <-s.stopCh:
			slog.Info("wave scheduler stopped")
			return nil

		case <-ticker.C:
			s.ProcessDue(ctx)
		}
	}
}

// Stop stops the scheduler loop. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// ProcessDue spawns every wave whose deadline has passed.
func (s *Scheduler) ProcessDue(ctx context.Context) {
	elapsed := s.Elapsed()

	s.mu.Lock()
	due := make([]*Wave, 0)
	for id, w := range s.waves {
		if elapsed >= w.EndTime() {
			due = append(due, w)
			delete(s.waves, id)
		}
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })

	// Spawn outside the lock, the spawner may schedule follow-up waves
	for _, w := range due {
		if s.gate != nil && s.gate.AddMissedWave(w) {
			continue
		}
		_ = s.spawn(ctx, w, elapsed)
	}
}

// ReleaseGate opens the start gate at the current elapsed time. Missed waves
// replayed by the gate are counted in Stats like regular spawns.
func (s *Scheduler) ReleaseGate(ctx context.Context) error {
	if s.gate == nil {
		return nil
	}
	elapsed := s.Elapsed()
	return s.gate.Release(ctx, elapsed, WaveSpawnerFunc(func(ctx context.Context, w *Wave) error {
		return s.spawn(ctx, w, elapsed)
	}))
}

func (s *Scheduler) spawn(ctx context.Context, w *Wave, elapsed time.Duration) error {
	if err := s.spawner.SpawnWave(ctx, w); err != nil {
		s.failed.Add(1)
		slog.Error("wave spawn failed", "wave", w.ID, "agents", w.Agents, "error", err)
		return err
	}
	s.spawned.Add(1)
	slog.Info("wave spawned", "wave", w.ID, "agents", w.Agents, "boss", w.Boss, "elapsed", elapsed)
	return nil
}

// Pending returns number of scheduled waves.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.waves)
}

// Stats returns how many waves were spawned and how many failed.
func (s *Scheduler) Stats() (spawned, failed int) {
	return int(s.spawned.Load()), int(s.failed.Load())
}
