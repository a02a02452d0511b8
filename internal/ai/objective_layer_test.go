package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/questbots/internal/ai/layer"
	"github.com/udisondev/questbots/internal/config"
	"github.com/udisondev/questbots/internal/hivemind"
	"github.com/udisondev/questbots/internal/model"
	"github.com/udisondev/questbots/internal/objective"
)

func TestObjectiveLayer_FreshObjective(t *testing.T) {
	f := newFixture(t)
	bot := f.addBot(1, model.Location{})
	l := NewObjectiveLayer(f.world, bot)

	require.Zero(t, bot.Tracker.TimeSinceChangingObjective())
	require.True(t, l.IsActive())
	assert.Equal(t, layer.ActionGoToObjective, l.NextAction())
	assert.Equal(t, ObjectiveSeeking, l.State())
	assert.Equal(t, "ObjectiveLayer", l.Name())
}

func TestObjectiveLayer_InactiveConditions(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, f *fixture, bot Bot)
	}{
		{"questing disabled", func(_ *testing.T, f *fixture, _ Bot) { f.world.Switches.SetQuestingEnabled(false) }},
		{"agent not active", func(_ *testing.T, _ *fixture, bot Bot) { bot.Agent.SetState(model.BotStateInactive) }},
		{"questing stopped", func(_ *testing.T, _ *fixture, bot Bot) { bot.Tracker.StopQuesting() }},
		{"has live boss", func(t *testing.T, f *fixture, bot Bot) {
			boss := f.addBot(9, model.Location{})
			require.NoError(t, f.world.Hive.SetBoss(bot.Agent.ObjectID(), boss.Agent.ObjectID()))
		}},
		{"triggers not found", func(_ *testing.T, f *fixture, _ Bot) { f.world.Objectives.Clear() }},
		{"wants fixed weapon", func(_ *testing.T, _ *fixture, bot Bot) { bot.Monitor.SetWantsToUseFixedWeapon(true) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			bot := f.addBot(1, model.Location{})
			l := NewObjectiveLayer(f.world, bot)
			tt.setup(t, f, bot)

			assert.False(t, l.IsActive())
			assert.Equal(t, ObjectiveInactive, l.State())
			assert.Equal(t, layer.ActionNone, l.NextAction())
		})
	}
}

func TestObjectiveLayer_LateObjectiveAssignment(t *testing.T) {
	f := newFixture(t)
	for _, o := range f.world.Objectives.All() {
		o.SetReachable(false)
	}
	bot := f.addBot(1, model.Location{})
	l := NewObjectiveLayer(f.world, bot)

	require.False(t, l.IsActive())
	require.Nil(t, bot.Tracker.Current())

	f.world.Objectives.All()[0].SetReachable(true)
	require.True(t, f.pollAfter(time.Second, l))
	assert.Equal(t, layer.ActionGoToObjective, l.NextAction())
	assert.Equal(t, ObjectiveSeeking, l.State())
	assert.NotNil(t, bot.Tracker.Current())
}

func TestObjectiveLayer_DeadBossDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	boss, follower := f.addGroup(5)
	l := NewObjectiveLayer(f.world, follower)

	require.False(t, l.IsActive(), "live boss")

	boss.Agent.SetState(model.BotStateDead)
	assert.True(t, f.poll(l), "boss died, follower quests on its own")
}

func TestObjectiveLayer_GroupCombat(t *testing.T) {
	f := newFixture(t)
	boss, follower := f.addGroup(5)
	l := NewObjectiveLayer(f.world, boss)

	f.world.Hive.SetValue(hivemind.SensorInCombat, follower.Agent.ObjectID(), true)
	assert.False(t, l.IsActive())
	assert.Equal(t, ObjectiveInactive, l.State())

	f.world.Hive.SetValue(hivemind.SensorInCombat, follower.Agent.ObjectID(), false)
	assert.True(t, f.poll(l), "eventually active once the group calms down")
}

func TestObjectiveLayer_Looting(t *testing.T) {
	f := newFixture(t, func(q *config.Questing) { q.BreakForLooting.Enabled = true })
	bot := f.addBot(1, model.Location{})
	l := NewObjectiveLayer(f.world, bot)
	id := bot.Agent.ObjectID()
	lootCfg := f.world.Config.BreakForLooting

	require.True(t, l.IsActive())
	assert.False(t, f.world.Hive.Value(hivemind.SensorWantsToLoot, id))

	assert.False(t, f.pollAfter(lootCfg.MinTimeBetweenLootingChecks, l))
	assert.Equal(t, ObjectivePaused, l.State())
	assert.True(t, f.world.Hive.Value(hivemind.SensorWantsToLoot, id))
	assert.True(t, l.IsPaused())

	assert.False(t, f.pollAfter(lootCfg.MaxTimeToStartLooting/2, l), "still paused")
	assert.True(t, f.world.Hive.Value(hivemind.SensorWantsToLoot, id), "flag held while paused")

	assert.True(t, f.pollAfter(lootCfg.MaxTimeToStartLooting/2, l))
	assert.False(t, f.world.Hive.Value(hivemind.SensorWantsToLoot, id), "cleared on a poll that does not loot")
}

func TestObjectiveLayer_Extract(t *testing.T) {
	f := newFixture(t)
	bot := f.addBot(1, model.Location{})
	l := NewObjectiveLayer(f.world, bot)

	require.True(t, l.IsActive())
	bot.Monitor.SetWantsToExtract(true)

	assert.False(t, f.poll(l))
	assert.False(t, bot.Tracker.IsQuesting())
	assert.False(t, f.world.Hive.Value(hivemind.SensorCanQuest, bot.Agent.ObjectID()))
	assert.Equal(t, 1, f.events.count(EventExtract))

	bot.Monitor.SetWantsToExtract(false)
	assert.False(t, f.poll(l), "stopping is permanent for this life")
}

func TestObjectiveLayer_AbleBodiedEdge(t *testing.T) {
	f := newFixture(t)
	bot := f.addBot(1, model.Location{})
	l := NewObjectiveLayer(f.world, bot)

	bot.Monitor.SetVitals(0.1, 1, 1)
	for range 5 {
		assert.False(t, f.poll(l))
		assert.Equal(t, ObjectivePaused, l.State())
	}
	assert.Zero(t, f.events.count(EventAbleBodied))

	bot.Monitor.SetVitals(0.55, 1, 1)
	assert.False(t, f.poll(l), "recovery margin not cleared yet")

	bot.Monitor.SetVitals(1, 1, 1)
	for range 5 {
		assert.True(t, f.poll(l))
	}
	assert.Equal(t, 1, f.events.count(EventAbleBodied), "transition logged exactly once")
}

func TestObjectiveLayer_SearchAfterCombat(t *testing.T) {
	f := newFixture(t)
	bot := f.addBot(1, model.Location{})
	l := NewObjectiveLayer(f.world, bot)
	id := bot.Agent.ObjectID()

	bot.Monitor.ReportCombat()
	assert.False(t, f.poll(l))
	assert.Equal(t, ObjectivePaused, l.State())
	assert.True(t, f.world.Hive.Value(hivemind.SensorInCombat, id))
	assert.Equal(t, 20*time.Second, l.searchTimeAfterCombat)

	assert.False(t, f.pollAfter(10*time.Second, l), "still searching")

	assert.True(t, f.pollAfter(10*time.Second, l))
	assert.False(t, f.world.Hive.Value(hivemind.SensorInCombat, id))
}

func TestObjectiveLayer_SearchTimeSampledOnEntry(t *testing.T) {
	f := newFixture(t, func(q *config.Questing) {
		q.SearchTimeAfterCombat = config.DurationRange{Min: 30 * time.Second, Max: 30 * time.Second}
	})
	bot := f.addBot(1, model.Location{})
	l := NewObjectiveLayer(f.world, bot)
	// initial value is the configured minimum; entering the state samples again
	l.searchTimeAfterCombat = time.Second

	bot.Monitor.ReportCombat()
	require.False(t, f.poll(l))
	assert.Equal(t, 30*time.Second, l.searchTimeAfterCombat)

	l.searchTimeAfterCombat = 25 * time.Second
	require.False(t, f.poll(l))
	assert.Equal(t, 25*time.Second, l.searchTimeAfterCombat, "not resampled while already in combat")
}

func TestObjectiveLayer_Regroup(t *testing.T) {
	f := newFixture(t)
	farAway := f.world.Config.MaxFollowerDistance.Furthest + 10
	boss, _ := f.addGroup(farAway)
	l := NewObjectiveLayer(f.world, boss)

	require.True(t, l.IsActive())
	assert.Equal(t, layer.ActionGoToObjective, l.NextAction())

	maxWait := f.world.Config.MaxFollowerDistance.MaxWaitTime
	assert.True(t, f.pollAfter(maxWait, l))
	assert.Equal(t, layer.ActionGoToObjective, l.NextAction(), "not waited long enough")

	assert.True(t, f.poll(l))
	assert.Equal(t, layer.ActionRegroup, l.NextAction())
	assert.Equal(t, ObjectiveRegrouping, l.State())
}

func TestObjectiveLayer_UnreachableObjectivePauses(t *testing.T) {
	f := newFixture(t)
	bot := f.addBot(1, model.Location{})
	l := NewObjectiveLayer(f.world, bot)

	bot.Tracker.Current().SetReachable(false)
	assert.False(t, l.IsActive())
	assert.Equal(t, ObjectivePaused, l.State())
	assert.False(t, bot.Tracker.CanChangeObjective())
}

func TestObjectiveLayer_SwitchAfterDwellTime(t *testing.T) {
	f := newFixture(t)
	bot := f.addBot(1, model.Location{})
	l := NewObjectiveLayer(f.world, bot)
	first := bot.Tracker.Current()

	bot.Agent.SetLocation(first.Location())
	assert.False(t, l.IsActive(), "objective reached")
	assert.Equal(t, ObjectivePaused, l.State())

	dwell := bot.Tracker.MinTimeAtObjective()
	assert.False(t, f.pollAfter(dwell, l), "dwell time not exceeded yet")

	assert.True(t, f.poll(l))
	assert.NotEqual(t, first, bot.Tracker.Current())
	assert.Equal(t, layer.ActionGoToObjective, l.NextAction())
	assert.Equal(t, 1, f.events.count(EventObjectiveChanged))
}

func TestObjectiveLayer_StuckCountsOncePerEpisode(t *testing.T) {
	f := newFixture(t)
	bot := f.addBot(1, model.Location{})
	l := NewObjectiveLayer(f.world, bot)
	stuckTime := f.world.Config.StuckDetection.Time

	require.True(t, l.IsActive())
	first := bot.Tracker.Current()

	// Stationary for the stuck threshold plus one unit, polled every second.
	changes := 0
	current := first
	for elapsed := time.Second; elapsed <= stuckTime+time.Second; elapsed += time.Second {
		require.True(t, f.pollAfter(time.Second, l))
		if bot.Tracker.Current() != current {
			changes++
			current = bot.Tracker.Current()
		}
	}

	assert.Equal(t, 1, bot.Tracker.StuckCount())
	assert.Equal(t, 1, changes, "exactly one stuck-triggered objective change")
	assert.Equal(t, 1, f.events.count(EventStuck))

	// Keep polling without moving for less than another threshold.
	for range 10 {
		require.True(t, f.pollAfter(time.Second, l))
	}
	assert.Equal(t, 1, bot.Tracker.StuckCount())
}

func TestObjectiveLayer_ContinuousStuckWithoutAlternative(t *testing.T) {
	f := newFixture(t)
	f.world.Objectives.Clear()
	f.world.Objectives.Add(objective.New(1, "only", model.NewLocation(100, 0, 0), 3, 0))
	f.world.Objectives.MarkTriggersFound()

	bot := f.addBot(1, model.Location{})
	l := NewObjectiveLayer(f.world, bot)
	stuckTime := f.world.Config.StuckDetection.Time

	require.True(t, l.IsActive())
	for range 20 {
		require.True(t, f.pollAfter(stuckTime/4, l))
	}

	assert.Equal(t, 1, bot.Tracker.StuckCount(), "one episode, one increment")
	assert.Equal(t, 1, f.events.count(EventStuck))
}

func TestObjectiveLayer_MovingAgentIsNotStuck(t *testing.T) {
	f := newFixture(t)
	bot := f.addBot(1, model.Location{})
	l := NewObjectiveLayer(f.world, bot)
	step := f.world.Config.StuckDetection.Distance + 0.5

	require.True(t, l.IsActive())
	target := bot.Tracker.Current().Location()
	for range 60 {
		bot.Agent.SetLocation(bot.Agent.Location().MoveToward(target, step))
		require.True(t, f.pollAfter(time.Second, l))
	}
	assert.Zero(t, bot.Tracker.StuckCount())
}

func TestObjectiveLayer_PausedTimeDoesNotCountAsStuck(t *testing.T) {
	f := newFixture(t)
	bot := f.addBot(1, model.Location{})
	l := NewObjectiveLayer(f.world, bot)
	stuckTime := f.world.Config.StuckDetection.Time

	require.True(t, l.IsActive())
	bot.Monitor.SetVitals(0.1, 1, 1)
	require.False(t, f.pollAfter(stuckTime*2, l))

	bot.Monitor.SetVitals(1, 1, 1)
	require.True(t, f.poll(l))
	assert.Zero(t, bot.Tracker.StuckCount())
}

func TestObjectiveLayer_StuckCeilingStopsQuesting(t *testing.T) {
	f := newFixture(t)
	bot := f.addBot(1, model.Location{})
	l := NewObjectiveLayer(f.world, bot)

	for range f.world.Config.StuckDetection.MaxCount {
		bot.Tracker.IncrementStuckCount()
	}

	assert.False(t, l.IsActive())
	assert.False(t, bot.Tracker.IsQuesting())
	assert.Equal(t, 1, f.events.count(EventStopQuesting))

	assert.False(t, f.poll(l))
	assert.Equal(t, 1, f.events.count(EventStopQuesting), "terminal, not retried")
}

func TestObjectiveLayer_TimeGating(t *testing.T) {
	f := newFixture(t)
	bot := f.addBot(1, model.Location{})
	l := NewObjectiveLayer(f.world, bot)

	require.True(t, l.IsActive())

	f.world.Switches.SetQuestingEnabled(false)
	f.clock.Advance(f.world.Config.UpdateInterval - time.Millisecond)
	assert.True(t, l.IsActive(), "cached verdict within the gate interval")
	assert.True(t, l.IsActive())

	f.clock.Advance(time.Millisecond)
	assert.False(t, l.IsActive())

	f.world.Switches.SetQuestingEnabled(true)
	f.world.Switches.SetTimeGatingEnabled(false)
	assert.True(t, l.IsActive(), "gating disabled re-evaluates every poll")
}

func TestObjectiveState_String(t *testing.T) {
	assert.Equal(t, "INACTIVE", ObjectiveInactive.String())
	assert.Equal(t, "SEEKING_OBJECTIVE", ObjectiveSeeking.String())
	assert.Equal(t, "REGROUPING", ObjectiveRegrouping.String())
	assert.Equal(t, "PAUSED", ObjectivePaused.String())
	assert.Equal(t, "UNKNOWN", ObjectiveState(42).String())
}
