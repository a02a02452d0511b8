package ai

import (
	"github.com/udisondev/questbots/internal/clock"
	"github.com/udisondev/questbots/internal/config"
	"github.com/udisondev/questbots/internal/hivemind"
	"github.com/udisondev/questbots/internal/model"
	"github.com/udisondev/questbots/internal/monitor"
	"github.com/udisondev/questbots/internal/objective"
)

// World bundles the process-scoped collaborators shared by every brain.
type World struct {
	Hive       *hivemind.Store
	Objectives *objective.Registry
	Switches   *config.Switches
	Config     config.Questing
	Clock      clock.Clock
	Events     EventSink
}

func (w *World) events() EventSink {
	if w.Events == nil {
		return DiscardEvents
	}
	return w.Events
}

// Bot bundles one agent with its per-agent collaborators.
type Bot struct {
	Agent   *model.Agent
	Monitor *monitor.Monitor
	Tracker *objective.Tracker
}

// NewBot registers agent in the hive-mind and creates its monitor and
// objective tracker. The tracker is started so the agent begins questing.
func NewBot(w *World, agent *model.Agent) Bot {
	w.Hive.Register(agent)
	bot := Bot{
		Agent:   agent,
		Monitor: monitor.New(agent, w.Hive, w.Clock, w.Config),
		Tracker: objective.NewTracker(agent, w.Objectives, w.Hive, w.Clock, w.Config),
	}
	bot.Tracker.Start()
	return bot
}

// NewQuestingBrain builds the standard layer stack for bot: the follower
// layer above the objective layer.
func NewQuestingBrain(w *World, bot Bot) *Brain {
	brain := NewBrain(bot.Agent)
	brain.AddLayer(NewFollowerLayer(w, bot), PriorityFollower)
	brain.AddLayer(NewObjectiveLayer(w, bot), PriorityObjective)
	return brain
}
