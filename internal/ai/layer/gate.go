package layer

import (
	"time"

	"github.com/udisondev/questbots/internal/clock"
)

// DefaultInterval is the minimum re-poll interval of the questing layers.
const DefaultInterval = 25 * time.Millisecond

// Gate wraps one layer's condition chain for one agent. It throttles how
// often the chain runs, caches the previous verdict and chosen action, and
// lets the layer yield priority for a while without tearing down its state.
//
// A Gate belongs to a single agent and is only used from that agent's poll.
type Gate struct {
	name     string
	clock    clock.Clock
	interval time.Duration
	switches GatingSwitch

	polled        bool
	lastUpdate    time.Time
	pausedUntil   time.Time
	previousState bool

	nextAction Action
	reason     string
	handedOut  Action

	polls       uint64
	evaluations uint64
}

// NewGate creates a gate that re-evaluates at most once per interval while
// time gating is enabled.
func NewGate(name string, clk clock.Clock, interval time.Duration, switches GatingSwitch) *Gate {
	return &Gate{
		name:     name,
		clock:    clk,
		interval: interval,
		switches: switches,
	}
}

// Name returns the layer name.
func (g *Gate) Name() string {
	return g.name
}

// Interval returns the gate interval.
func (g *Gate) Interval() time.Duration {
	return g.interval
}

// Poll returns the layer verdict. evaluate runs the full condition chain and
// is skipped while the layer is paused, or while the gate interval has not
// elapsed and time gating is enabled; the cached verdict is returned instead.
func (g *Gate) Poll(evaluate func() bool) bool {
	g.polls++
	now := g.clock.Now()

	if now.Before(g.pausedUntil) {
		g.clearVerdict()
		return false
	}
	due := !g.polled || now.Sub(g.lastUpdate) >= g.interval
	if !due && g.switches.TimeGatingEnabled() {
		return g.previousState
	}

	g.polled = true
	g.lastUpdate = now
	g.evaluations++

	active := evaluate()
	if !active {
		g.clearVerdict()
		return false
	}
	g.previousState = true
	return true
}

func (g *Gate) clearVerdict() {
	g.previousState = false
	g.nextAction = ActionNone
	g.reason = ""
}

// PreviousState returns the verdict of the last evaluation.
func (g *Gate) PreviousState() bool {
	return g.previousState
}

// SetNextAction records the action of an active verdict.
func (g *Gate) SetNextAction(action Action, reason string) {
	g.nextAction = action
	g.reason = reason
}

// NextAction returns the cached action and marks it as handed out.
func (g *Gate) NextAction() Action {
	g.handedOut = g.nextAction
	return g.nextAction
}

// Reason returns the reason recorded with the cached action.
func (g *Gate) Reason() string {
	return g.reason
}

// IsCurrentActionEnding reports whether the handed-out action is no longer
// the one the layer wants.
func (g *Gate) IsCurrentActionEnding() bool {
	return !g.previousState || g.nextAction != g.handedOut
}

// Pause makes the layer report inactive for d without evaluating its chain.
// A zero d only yields the current poll. Always returns false so callers can
// write `return g.Pause(d)` from inside the condition chain.
func (g *Gate) Pause(d time.Duration) bool {
	g.pausedUntil = g.clock.Now().Add(d)
	g.clearVerdict()
	return false
}

// PauseIntervals pauses the layer for n gate intervals.
func (g *Gate) PauseIntervals(n int) bool {
	return g.Pause(time.Duration(n) * g.interval)
}

// IsPaused reports whether a pause is in effect.
func (g *Gate) IsPaused() bool {
	return g.clock.Now().Before(g.pausedUntil)
}

// Stats returns how many polls were requested and how many ran the full chain.
func (g *Gate) Stats() (polls, evaluations uint64) {
	return g.polls, g.evaluations
}
