package ai

import (
	"log/slog"
	"time"

	"github.com/udisondev/questbots/internal/ai/layer"
	"github.com/udisondev/questbots/internal/hivemind"
)

// FollowerState is the observable state of a FollowerLayer.
type FollowerState int32

const (
	FollowerInactive FollowerState = iota
	FollowerFollowing
	FollowerPaused
)

// String returns human-readable state name
func (s FollowerState) String() string {
	switch s {
	case FollowerInactive:
		return "INACTIVE"
	case FollowerFollowing:
		return "FOLLOWING"
	case FollowerPaused:
		return "PAUSED"
	default:
		return "UNKNOWN"
	}
}

// FollowerLayer keeps an agent near its boss, lets it break off to loot
// and yields to combat whenever the group is fighting.
type FollowerLayer struct {
	*layer.Gate

	world *World
	bot   Bot
	loot  lootClaim

	state                 FollowerState
	searchTimeAfterCombat time.Duration
	maxDistanceFromBoss   float64
	wasAbleBodied         bool
}

// NewFollowerLayer creates the follower layer for bot.
func NewFollowerLayer(w *World, bot Bot) *FollowerLayer {
	return &FollowerLayer{
		Gate:                  layer.NewGate("FollowerLayer", w.Clock, w.Config.UpdateInterval, w.Switches),
		world:                 w,
		bot:                   bot,
		loot:                  lootClaim{hive: w.Hive, objectID: bot.Agent.ObjectID()},
		searchTimeAfterCombat: w.Config.SearchTimeAfterCombat.Min,
		maxDistanceFromBoss:   w.Config.MaxFollowerDistance.TargetRange.Min,
		wasAbleBodied:         true,
	}
}

// State returns the state chosen by the last full evaluation.
func (l *FollowerLayer) State() FollowerState {
	return l.state
}

// FollowThreshold returns the follow distance used by the last evaluation.
func (l *FollowerLayer) FollowThreshold() float64 {
	return l.maxDistanceFromBoss
}

// IsActive polls the layer.
func (l *FollowerLayer) IsActive() bool {
	return l.Poll(func() bool {
		l.loot.begin()
		active := l.evaluate()
		l.loot.end()
		return active
	})
}

func (l *FollowerLayer) inactive() bool {
	l.state = FollowerInactive
	return false
}

func (l *FollowerLayer) evaluate() bool {
	w, agent, mon := l.world, l.bot.Agent, l.bot.Monitor
	cfg := w.Config
	id := agent.ObjectID()

	if !w.Switches.QuestingEnabled() || !agent.IsActive() {
		return l.inactive()
	}

	// Run to the boss while following, allow a little more space otherwise
	if l.PreviousState() {
		l.maxDistanceFromBoss = cfg.MaxFollowerDistance.TargetRange.Min
	} else {
		l.maxDistanceFromBoss = cfg.MaxFollowerDistance.TargetRange.Max
	}

	if !w.Hive.HasBoss(id) || !w.Hive.ValueForBoss(hivemind.SensorCanQuest, id) {
		return l.inactive()
	}

	// Unknown distance means do not follow
	distanceToBoss, ok := w.Hive.DistanceToBoss(id)
	if !ok || distanceToBoss < l.maxDistanceFromBoss {
		return l.inactive()
	}

	if !mon.IsAbleBodied(l.wasAbleBodied) {
		l.wasAbleBodied = false
		return l.inactive()
	}
	if !l.wasAbleBodied {
		slog.Info("agent is now able-bodied", "agent", agent.Name(), "objectID", id)
		publish(w, agent, EventAbleBodied, "")
	}
	l.wasAbleBodied = true

	if mon.ShouldSearchForEnemy(l.searchTimeAfterCombat) {
		if !w.Hive.Value(hivemind.SensorInCombat, id) {
			l.searchTimeAfterCombat = mon.UpdateSearchTimeAfterCombat()
		}
		w.Hive.SetValue(hivemind.SensorInCombat, id, true)
		return l.inactive()
	}
	w.Hive.SetValue(hivemind.SensorInCombat, id, false)

	if w.Hive.GroupValue(hivemind.SensorInCombat, id) {
		return l.inactive()
	}

	sinceBossLooted := w.Clock.Now().Sub(w.Hive.LastLootingTimeForBoss(id))
	bossWillAllowLooting := sinceBossLooted > cfg.BreakForLooting.MinTimeBetweenFollowerLootingChecks
	tooFarFromBossForLooting := distanceToBoss > cfg.BreakForLooting.MaxDistanceFromBoss

	if (bossWillAllowLooting && mon.ShouldCheckForLoot(mon.NextLootCheckDelay())) ||
		(!tooFarFromBossForLooting && mon.IsLooting()) {
		l.loot.commit()
		l.state = FollowerPaused
		return l.Pause(cfg.BreakForLooting.MaxTimeToStartLooting)
	}

	l.SetNextAction(layer.ActionFollowBoss, "FollowBoss")
	if l.state != FollowerFollowing && IsDebugEnabled() {
		slog.Debug("agent is following its boss",
			"agent", agent.Name(),
			"objectID", id,
			"distance", distanceToBoss,
			"threshold", l.maxDistanceFromBoss)
	}
	l.state = FollowerFollowing
	return true
}
