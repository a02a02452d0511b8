package objective

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/udisondev/questbots/internal/clock"
	"github.com/udisondev/questbots/internal/config"
	"github.com/udisondev/questbots/internal/hivemind"
	"github.com/udisondev/questbots/internal/model"
)

// assignRetryInterval throttles EnsureObjective while no objective is available.
const assignRetryInterval = time.Second

// Tracker owns an agent's current objective assignment, time-at-objective
// accounting and stuck counter. Only the owning agent's poll mutates the
// assignment; IsQuesting and Current may be read from any goroutine.
type Tracker struct {
	agent    *model.Agent
	registry *Registry
	hive     *hivemind.Store
	clock    clock.Clock
	cfg      config.Questing

	questing atomic.Bool

	current    atomic.Pointer[Objective]
	assignedAt time.Time
	reachedAt  time.Time // zero until the current objective is reached
	stuckCount int
	canChange  bool

	lastAssignAttempt time.Time
}

// NewTracker creates a tracker that is not questing yet. Call Start.
func NewTracker(agent *model.Agent, registry *Registry, hive *hivemind.Store, clk clock.Clock, cfg config.Questing) *Tracker {
	return &Tracker{
		agent:    agent,
		registry: registry,
		hive:     hive,
		clock:    clk,
		cfg:      cfg,
	}
}

// Start enables questing and assigns the first objective if one is available.
func (t *Tracker) Start() {
	t.questing.Store(true)
	t.hive.SetValue(hivemind.SensorCanQuest, t.agent.ObjectID(), true)
	t.assignedAt = t.clock.Now()
	t.lastAssignAttempt = t.assignedAt
	t.TryChangeObjective()
}

// EnsureObjective retries the assignment while the agent is questing without
// an objective, at most once per assignRetryInterval. Reports whether an
// objective is held afterwards.
func (t *Tracker) EnsureObjective() bool {
	if !t.questing.Load() {
		return false
	}
	if t.current.Load() != nil {
		return true
	}
	now := t.clock.Now()
	if now.Sub(t.lastAssignAttempt) < assignRetryInterval {
		return false
	}
	t.lastAssignAttempt = now
	return t.TryChangeObjective()
}

// IsQuesting reports whether questing was not stopped for this life.
func (t *Tracker) IsQuesting() bool {
	return t.questing.Load()
}

// Current returns the assigned objective (nil when none).
func (t *Tracker) Current() *Objective {
	return t.current.Load()
}

// IsObjectiveActive reports whether the agent is questing and has an objective.
func (t *Tracker) IsObjectiveActive() bool {
	return t.questing.Load() && t.current.Load() != nil
}

// IsObjectiveReached reports whether the agent arrived at its objective.
// Once reached, the objective stays reached until it is replaced.
func (t *Tracker) IsObjectiveReached() bool {
	current := t.current.Load()
	if current == nil {
		return false
	}
	if !t.reachedAt.IsZero() {
		return true
	}
	if current.Contains(t.agent.Location()) {
		t.reachedAt = t.clock.Now()
		if t.stuckCount > 0 {
			slog.Debug("objective reached, stuck counter reset",
				"agent", t.agent.Name(),
				"objective", current.String(),
				"stuckCount", t.stuckCount)
		}
		t.stuckCount = 0
		return true
	}
	return false
}

// CanReachObjective reports whether the current objective is reachable.
func (t *Tracker) CanReachObjective() bool {
	current := t.current.Load()
	return current != nil && current.Reachable()
}

// TimeSinceChangingObjective returns the time since the last assignment.
func (t *Tracker) TimeSinceChangingObjective() time.Duration {
	return t.clock.Now().Sub(t.assignedAt)
}

// MinTimeAtObjective returns the dwell time required at the current objective.
func (t *Tracker) MinTimeAtObjective() time.Duration {
	if current := t.current.Load(); current != nil && current.MinTimeAtObjective() > 0 {
		return current.MinTimeAtObjective()
	}
	return t.cfg.DefaultMinTimeAtObjective
}

// TimeSpentAtObjective returns the time since the current objective was reached.
func (t *Tracker) TimeSpentAtObjective() time.Duration {
	if t.reachedAt.IsZero() {
		return 0
	}
	return t.clock.Now().Sub(t.reachedAt)
}

// CanChangeObjective returns the flag last set by the objective layer.
func (t *Tracker) CanChangeObjective() bool {
	return t.canChange
}

// SetCanChangeObjective records whether the switch cooldown has expired.
func (t *Tracker) SetCanChangeObjective(v bool) {
	t.canChange = v
}

// StuckCount returns the number of stuck episodes since the last reached objective.
func (t *Tracker) StuckCount() int {
	return t.stuckCount
}

// IncrementStuckCount records a new stuck episode.
func (t *Tracker) IncrementStuckCount() {
	t.stuckCount++
}

// TryChangeObjective swaps the current objective for a new one from the
// registry. It does not check the switch cooldown.
func (t *Tracker) TryChangeObjective() bool {
	if !t.questing.Load() {
		return false
	}
	next, ok := t.registry.Select(t.agent.Location(), t.current.Load())
	if !ok {
		return false
	}

	prev := t.current.Load()
	t.current.Store(next)
	t.assignedAt = t.clock.Now()
	t.reachedAt = time.Time{}

	slog.Debug("objective assigned",
		"agent", t.agent.Name(),
		"objectID", t.agent.ObjectID(),
		"from", prev.String(),
		"to", next.String())
	return true
}

// StopQuesting permanently disables questing for the agent's current life.
func (t *Tracker) StopQuesting() {
	if !t.questing.Swap(false) {
		return
	}
	t.current.Store(nil)
	t.hive.SetValue(hivemind.SensorCanQuest, t.agent.ObjectID(), false)
}

// String describes the current assignment for log lines.
func (t *Tracker) String() string {
	return t.current.Load().String()
}
