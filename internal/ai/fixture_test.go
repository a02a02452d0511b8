package ai

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/udisondev/questbots/internal/ai/layer"
	"github.com/udisondev/questbots/internal/clock"
	"github.com/udisondev/questbots/internal/config"
	"github.com/udisondev/questbots/internal/hivemind"
	"github.com/udisondev/questbots/internal/model"
	"github.com/udisondev/questbots/internal/objective"
)

var testStart = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) Publish(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) count(kind EventKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

type fixture struct {
	t      *testing.T
	clock  *clock.Fake
	world  *World
	events *eventLog
}

// newFixture creates a world with three distant objectives, triggers found
// and looting disabled so long scenarios are not interrupted by loot breaks.
func newFixture(t *testing.T, tune ...func(*config.Questing)) *fixture {
	t.Helper()
	cfg := config.DefaultQuesting()
	cfg.BreakForLooting.Enabled = false
	cfg.SearchTimeAfterCombat = config.DurationRange{Min: 20 * time.Second, Max: 20 * time.Second}
	for _, fn := range tune {
		fn(&cfg)
	}

	clk := clock.NewFake(testStart)
	registry := objective.NewRegistry()
	registry.Add(
		objective.New(1, "dorms", model.NewLocation(200, 0, 0), 3, 0),
		objective.New(2, "gas-station", model.NewLocation(0, 200, 0), 3, 0),
		objective.New(3, "resort", model.NewLocation(-200, 0, 0), 3, 0),
	)
	registry.MarkTriggersFound()

	events := &eventLog{}
	return &fixture{
		t:     t,
		clock: clk,
		world: &World{
			Hive:       hivemind.New(clk),
			Objectives: registry,
			Switches:   config.NewSwitches(config.Default()),
			Config:     cfg,
			Clock:      clk,
			Events:     events,
		},
		events: events,
	}
}

func (f *fixture) addBot(id uint32, loc model.Location) Bot {
	f.t.Helper()
	agent := model.NewAgent(id, "bot", loc)
	agent.SetState(model.BotStateActive)
	return NewBot(f.world, agent)
}

// addGroup creates boss 1 at the origin and a follower 2 at distance d.
func (f *fixture) addGroup(d float64) (boss, follower Bot) {
	f.t.Helper()
	boss = f.addBot(1, model.NewLocation(0, 0, 0))
	follower = f.addBot(2, model.NewLocation(d, 0, 0))
	require.NoError(f.t, f.world.Hive.SetBoss(2, 1))
	return boss, follower
}

// poll advances the clock by one gate interval and polls l.
func (f *fixture) poll(l layer.Layer) bool {
	f.clock.Advance(f.world.Config.UpdateInterval)
	return l.IsActive()
}

// pollAfter advances the clock by d and polls l.
func (f *fixture) pollAfter(d time.Duration, l layer.Layer) bool {
	f.clock.Advance(d)
	return l.IsActive()
}
