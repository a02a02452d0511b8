package ai

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/udisondev/questbots/internal/ai/layer"
	"github.com/udisondev/questbots/internal/hivemind"
	"github.com/udisondev/questbots/internal/model"
)

// ObjectiveState is the observable state of an ObjectiveLayer.
type ObjectiveState int32

const (
	ObjectiveInactive ObjectiveState = iota
	ObjectiveSeeking
	ObjectiveRegrouping
	ObjectivePaused
)

// String returns human-readable state name
func (s ObjectiveState) String() string {
	switch s {
	case ObjectiveInactive:
		return "INACTIVE"
	case ObjectiveSeeking:
		return "SEEKING_OBJECTIVE"
	case ObjectiveRegrouping:
		return "REGROUPING"
	case ObjectivePaused:
		return "PAUSED"
	default:
		return "UNKNOWN"
	}
}

// ObjectiveLayer drives an agent without a boss toward its objectives,
// detects when it is stuck and decides when to switch objectives.
type ObjectiveLayer struct {
	*layer.Gate

	world *World
	bot   Bot
	loot  lootClaim

	state                 ObjectiveState
	searchTimeAfterCombat time.Duration
	wasAbleBodied         bool
	followersTooFarSince  time.Time // zero while followers are close

	// stuck detection
	hasLastPosition bool
	lastPosition    model.Location
	stuckSince      time.Time
	wasStuck        bool
}

// NewObjectiveLayer creates the objective layer for bot.
func NewObjectiveLayer(w *World, bot Bot) *ObjectiveLayer {
	return &ObjectiveLayer{
		Gate:                  layer.NewGate("ObjectiveLayer", w.Clock, w.Config.UpdateInterval, w.Switches),
		world:                 w,
		bot:                   bot,
		loot:                  lootClaim{hive: w.Hive, objectID: bot.Agent.ObjectID()},
		searchTimeAfterCombat: w.Config.SearchTimeAfterCombat.Min,
		wasAbleBodied:         true,
	}
}

// State returns the state chosen by the last full evaluation.
func (l *ObjectiveLayer) State() ObjectiveState {
	return l.state
}

// IsActive polls the layer.
func (l *ObjectiveLayer) IsActive() bool {
	return l.Poll(func() bool {
		l.loot.begin()
		active := l.evaluate()
		l.loot.end()
		return active
	})
}

func (l *ObjectiveLayer) inactive() bool {
	l.state = ObjectiveInactive
	return false
}

func (l *ObjectiveLayer) pause(d time.Duration) bool {
	l.state = ObjectivePaused
	return l.Pause(d)
}

func (l *ObjectiveLayer) evaluate() bool {
	w, agent, mon, tracker := l.world, l.bot.Agent, l.bot.Monitor, l.bot.Tracker
	cfg := w.Config
	id := agent.ObjectID()
	prevState := l.state

	if w.Switches.QuestingEnabled() {
		tracker.EnsureObjective()
	}
	if !w.Switches.QuestingEnabled() || !agent.IsActive() || !tracker.IsObjectiveActive() {
		return l.inactive()
	}

	// Followers are driven by the follower layer
	if w.Hive.HasBoss(id) {
		return l.inactive()
	}

	// Too early to commit before every objective has been generated
	if !w.Objectives.HaveTriggersBeenFound() {
		return l.inactive()
	}

	if mon.WantsToUseFixedWeapon() {
		return l.inactive()
	}

	if mon.ShouldCheckForLoot(mon.NextLootCheckDelay()) {
		l.loot.commit()
		return l.pause(cfg.BreakForLooting.MaxTimeToStartLooting)
	}

	if mon.WantsToExtract() {
		tracker.StopQuesting()
		slog.Warn("agent wants to extract and will no longer quest",
			"agent", agent.Name(),
			"objectID", id)
		publish(w, agent, EventExtract, "")
		return l.inactive()
	}

	// Heal, eat, drink first
	if !mon.IsAbleBodied(l.wasAbleBodied) {
		l.wasAbleBodied = false
		return l.pause(0)
	}
	if !l.wasAbleBodied {
		slog.Info("agent is now able-bodied", "agent", agent.Name(), "objectID", id)
		publish(w, agent, EventAbleBodied, "")
	}
	l.wasAbleBodied = true

	if mon.ShouldSearchForEnemy(l.searchTimeAfterCombat) {
		if !w.Hive.Value(hivemind.SensorInCombat, id) {
			l.searchTimeAfterCombat = mon.UpdateSearchTimeAfterCombat()
			if IsDebugEnabled() {
				slog.Debug("agent will search for enemies after combat",
					"agent", agent.Name(),
					"objectID", id,
					"searchTime", l.searchTimeAfterCombat)
			}
		}
		w.Hive.SetValue(hivemind.SensorInCombat, id, true)
		return l.pause(0)
	}
	w.Hive.SetValue(hivemind.SensorInCombat, id, false)

	// Must run after this agent's own combat flag was published
	if w.Hive.GroupValue(hivemind.SensorInCombat, id) {
		return l.inactive()
	}

	now := w.Clock.Now()
	if mon.ShouldWaitForFollowers() {
		if l.followersTooFarSince.IsZero() {
			l.followersTooFarSince = now
		}
	} else {
		l.followersTooFarSince = time.Time{}
	}
	if !l.followersTooFarSince.IsZero() && now.Sub(l.followersTooFarSince) > cfg.MaxFollowerDistance.MaxWaitTime {
		l.SetNextAction(layer.ActionRegroup, "Regroup")
		l.state = ObjectiveRegrouping
		return true
	}

	canChange := tracker.TimeSinceChangingObjective() > cfg.MinTimeBetweenSwitchingObjectives
	tracker.SetCanChangeObjective(canChange)

	// Give the path planner time before giving up on an unreachable objective
	if !tracker.CanReachObjective() && !canChange {
		return l.pause(0)
	}

	if canChange && tracker.TimeSpentAtObjective() > tracker.MinTimeAtObjective() {
		previous := tracker.String()
		spent := tracker.TimeSpentAtObjective()
		if tracker.TryChangeObjective() {
			slog.Info("agent finished objective",
				"agent", agent.Name(),
				"objectID", id,
				"objective", previous,
				"timeSpent", spent,
				"next", tracker.String())
			publish(w, agent, EventObjectiveChanged, fmt.Sprintf("%s -> %s", previous, tracker.String()))
		}
	}

	// The counter resets whenever the agent reaches an objective
	if tracker.StuckCount() >= cfg.StuckDetection.MaxCount {
		slog.Warn("agent was stuck too many times and likely is unable to quest",
			"agent", agent.Name(),
			"objectID", id,
			"stuckCount", tracker.StuckCount())
		publish(w, agent, EventStopQuesting, fmt.Sprintf("stuck %d times", tracker.StuckCount()))
		tracker.StopQuesting()
		return l.inactive()
	}

	if !tracker.IsObjectiveReached() {
		if prevState != ObjectiveSeeking {
			l.resetStuckDetection()
		}
		if l.checkIfStuck() {
			if !l.wasStuck {
				tracker.IncrementStuckCount()
				slog.Info("agent is stuck and will get a new objective",
					"agent", agent.Name(),
					"objectID", id,
					"stuckCount", tracker.StuckCount(),
					"objective", tracker.String())
				publish(w, agent, EventStuck, tracker.String())
			}
			l.wasStuck = true
		} else {
			l.wasStuck = false
		}

		l.SetNextAction(layer.ActionGoToObjective, "GoToObjective")
		l.state = ObjectiveSeeking
		return true
	}

	return l.pause(0)
}

// resetStuckDetection starts a new movement sample. Time spent paused or
// inactive never counts toward a stuck episode.
func (l *ObjectiveLayer) resetStuckDetection() {
	l.hasLastPosition = false
	l.wasStuck = false
}

// checkIfStuck samples the agent position. Moving further than the
// configured distance restarts the stuck timer; staying within it for longer
// than the configured time means the agent is stuck, in which case a new
// objective is requested regardless of the switch cooldown.
func (l *ObjectiveLayer) checkIfStuck() bool {
	cfg := l.world.Config.StuckDetection
	now := l.world.Clock.Now()
	pos := l.bot.Agent.Location()

	if !l.hasLastPosition {
		l.hasLastPosition = true
		l.lastPosition = pos
		l.stuckSince = now
	}

	if pos.Distance(l.lastPosition) > cfg.Distance {
		l.lastPosition = pos
		l.stuckSince = now
	}

	if now.Sub(l.stuckSince) > cfg.Time {
		if l.bot.Tracker.TryChangeObjective() {
			l.stuckSince = now
		}
		return true
	}
	return false
}

// lootClaim tracks whether this layer set the agent's loot-intent flag, so
// every evaluation that does not commit to looting withdraws the claim
// without clobbering a claim made by another layer of the same agent.
type lootClaim struct {
	hive      *hivemind.Store
	objectID  uint32
	held      bool
	committed bool
}

func (c *lootClaim) begin() {
	c.committed = false
}

func (c *lootClaim) commit() {
	c.committed = true
	c.held = true
	c.hive.SetValue(hivemind.SensorWantsToLoot, c.objectID, true)
}

func (c *lootClaim) end() {
	if !c.committed && c.held {
		c.held = false
		c.hive.SetValue(hivemind.SensorWantsToLoot, c.objectID, false)
	}
}

func publish(w *World, agent *model.Agent, kind EventKind, detail string) {
	w.events().Publish(Event{
		LifeID:   agent.LifeID(),
		ObjectID: agent.ObjectID(),
		Agent:    agent.Name(),
		Kind:     kind,
		Detail:   detail,
		At:       w.Clock.Now(),
	})
}
