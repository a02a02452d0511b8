package ai

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Refresher recomputes shared derived state once per scheduler round.
type Refresher interface {
	Refresh()
}

// TickManager polls every registered controller once per interval.
type TickManager struct {
	controllers     sync.Map // map[uint32]Controller, objectID → controller
	interval        time.Duration
	refresher       Refresher
	stopCh          chan struct{}
	stopOnce        sync.Once
	controllerCount atomic.Int32 // cached count of controllers (O(1) access)
	rounds          atomic.Uint64
	ticks           atomic.Uint64
}

// NewTickManager creates a tick manager. refresher may be nil.
func NewTickManager(interval time.Duration, refresher Refresher) *TickManager {
	return &TickManager{
		interval:  interval,
		refresher: refresher,
		stopCh:    make(chan struct{}),
	}
}

// Register registers the controller of an agent and starts it.
func (m *TickManager) Register(objectID uint32, controller Controller) {
	if old, loaded := m.controllers.Swap(objectID, controller); loaded {
		old.(Controller).Stop()
	} else {
		m.controllerCount.Add(1)
	}
	controller.Start()

	if IsDebugEnabled() {
		slog.Debug("controller registered", "objectID", objectID)
	}
}

// Unregister stops and removes the controller of an agent.
func (m *TickManager) Unregister(objectID uint32) {
	value, ok := m.controllers.LoadAndDelete(objectID)
	if !ok {
		return
	}

	m.controllerCount.Add(-1)
	value.(Controller).Stop()

	if IsDebugEnabled() {
		slog.Debug("controller unregistered", "objectID", objectID)
	}
}

// Start runs the tick loop (blocks until context is canceled or Stop is called).
func (m *TickManager) Start(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	slog.Info("tick manager started", "interval", m.interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("tick manager stopping")
			return ctx.Err()

		case <-m.stopCh:
			slog.Info("tick manager stopped")
			return nil

		case <-ticker.C:
			m.TickAll()
		}
	}
}

// Stop stops the tick loop. Safe to call more than once.
func (m *TickManager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// TickAll refreshes shared state and ticks every registered controller once.
func (m *TickManager) TickAll() {
	if m.refresher != nil {
		m.refresher.Refresh()
	}

	count := 0
	m.controllers.Range(func(_, value any) bool {
		value.(Controller).Tick()
		count++
		return true
	})

	m.rounds.Add(1)
	m.ticks.Add(uint64(count))

	if count > 0 && IsDebugEnabled() {
		slog.Debug("tick round completed", "controllers", count)
	}
}

// Count returns number of registered controllers (O(1) cached count).
func (m *TickManager) Count() int {
	return int(m.controllerCount.Load())
}

// Stats returns the number of completed rounds and controller ticks.
func (m *TickManager) Stats() (rounds, ticks uint64) {
	return m.rounds.Load(), m.ticks.Load()
}

// GetController returns the controller of an agent.
func (m *TickManager) GetController(objectID uint32) (Controller, error) {
	value, ok := m.controllers.Load(objectID)
	if !ok {
		return nil, fmt.Errorf("controller not found for objectID %d", objectID)
	}
	return value.(Controller), nil
}

// Range calls fn for every registered controller until fn returns false.
func (m *TickManager) Range(fn func(objectID uint32, c Controller) bool) {
	m.controllers.Range(func(key, value any) bool {
		return fn(key.(uint32), value.(Controller))
	})
}
