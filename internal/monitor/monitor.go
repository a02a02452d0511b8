// Package monitor evaluates an agent's physical condition and the timers
// that decide when it should loot or keep searching after a fight.
package monitor

import (
	"math"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/udisondev/questbots/internal/clock"
	"github.com/udisondev/questbots/internal/config"
	"github.com/udisondev/questbots/internal/hivemind"
	"github.com/udisondev/questbots/internal/model"
)

// Monitor is the per-agent condition evaluator consumed by the behavior layers.
//
// Vitals and intent flags are fed by the host from any goroutine (atomics).
// Loot timers are only touched by the owning agent's poll.
type Monitor struct {
	agent *model.Agent
	hive  *hivemind.Store
	clock clock.Clock
	cfg   config.Questing

	health    atomic.Uint64 // math.Float64bits, fraction [0, 1]
	hydration atomic.Uint64
	energy    atomic.Uint64

	looting          atomic.Bool
	wantsFixedWeapon atomic.Bool
	wantsToExtract   atomic.Bool
	lastCombatAt     atomic.Int64 // UnixNano, 0 = never

	lastLootCheck      time.Time
	nextLootCheckDelay time.Duration
}

// New creates a Monitor for a fully healthy agent. The first loot check
// becomes due one MinTimeBetweenLootingChecks after creation.
func New(agent *model.Agent, hive *hivemind.Store, clk clock.Clock, cfg config.Questing) *Monitor {
	m := &Monitor{
		agent:              agent,
		hive:               hive,
		clock:              clk,
		cfg:                cfg,
		lastLootCheck:      clk.Now(),
		nextLootCheckDelay: cfg.BreakForLooting.MinTimeBetweenLootingChecks,
	}
	m.SetVitals(1, 1, 1)
	return m
}

// SetVitals updates health, hydration and energy (fractions, clamped to [0, 1]).
func (m *Monitor) SetVitals(health, hydration, energy float64) {
	m.health.Store(math.Float64bits(clamp01(health)))
	m.hydration.Store(math.Float64bits(clamp01(hydration)))
	m.energy.Store(math.Float64bits(clamp01(energy)))
}

// Vitals returns health, hydration and energy.
func (m *Monitor) Vitals() (health, hydration, energy float64) {
	return math.Float64frombits(m.health.Load()),
		math.Float64frombits(m.hydration.Load()),
		math.Float64frombits(m.energy.Load())
}

// ReportCombat records that the agent saw an enemy or was hit just now.
func (m *Monitor) ReportCombat() {
	m.lastCombatAt.Store(m.clock.Now().UnixNano())
}

// SetLooting marks whether the agent is currently looting.
func (m *Monitor) SetLooting(v bool) { m.looting.Store(v) }

// SetWantsToUseFixedWeapon marks whether the agent wants a mounted weapon.
func (m *Monitor) SetWantsToUseFixedWeapon(v bool) { m.wantsFixedWeapon.Store(v) }

// SetWantsToExtract marks whether the agent wants to leave the map.
func (m *Monitor) SetWantsToExtract(v bool) { m.wantsToExtract.Store(v) }

// IsLooting reports whether the agent is looting right now.
func (m *Monitor) IsLooting() bool { return m.looting.Load() }

// WantsToUseFixedWeapon reports whether an emplacement system should take over.
func (m *Monitor) WantsToUseFixedWeapon() bool { return m.wantsFixedWeapon.Load() }

// WantsToExtract reports whether the agent wants to leave the map.
func (m *Monitor) WantsToExtract() bool { return m.wantsToExtract.Load() }

// IsAbleBodied reports whether the agent can keep moving without healing,
// eating or drinking. An agent that was not able-bodied on the previous check
// must clear every threshold by RecoveryMargin before it counts as able again.
func (m *Monitor) IsAbleBodied(wasAbleBodied bool) bool {
	margin := 0.0
	if !wasAbleBodied {
		margin = m.cfg.AbleBodied.RecoveryMargin
	}
	health, hydration, energy := m.Vitals()
	return health >= m.cfg.AbleBodied.MinHealth+margin &&
		hydration >= m.cfg.AbleBodied.MinHydration+margin &&
		energy >= m.cfg.AbleBodied.MinEnergy+margin
}

// ShouldSearchForEnemy reports whether the last combat event happened less
// than searchTime ago.
func (m *Monitor) ShouldSearchForEnemy(searchTime time.Duration) bool {
	ns := m.lastCombatAt.Load()
	if ns == 0 {
		return false
	}
	return m.clock.Now().Sub(time.Unix(0, ns)) < searchTime
}

// UpdateSearchTimeAfterCombat samples a new post-combat search duration.
func (m *Monitor) UpdateSearchTimeAfterCombat() time.Duration {
	r := m.cfg.SearchTimeAfterCombat
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rand.N(r.Max-r.Min+1)
}

// ShouldCheckForLoot reports whether delay has elapsed since the last loot
// check. A positive answer restarts the loot timer.
func (m *Monitor) ShouldCheckForLoot(delay time.Duration) bool {
	if !m.cfg.BreakForLooting.Enabled {
		return false
	}
	now := m.clock.Now()
	if now.Sub(m.lastLootCheck) < delay {
		return false
	}
	m.lastLootCheck = now
	m.nextLootCheckDelay = m.cfg.BreakForLooting.MinTimeBetweenLootingChecks
	return true
}

// NextLootCheckDelay is the delay to pass to the next ShouldCheckForLoot.
func (m *Monitor) NextLootCheckDelay() time.Duration {
	return m.nextLootCheckDelay
}

// ShouldWaitForFollowers reports whether any live follower of this agent is
// further away than MaxFollowerDistance.Furthest.
func (m *Monitor) ShouldWaitForFollowers() bool {
	d, ok := m.hive.MaxFollowerDistance(m.agent.ObjectID())
	return ok && d > m.cfg.MaxFollowerDistance.Furthest
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
