package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/udisondev/questbots/internal/ai"
	"github.com/udisondev/questbots/internal/ai/layer"
	"github.com/udisondev/questbots/internal/clock"
	"github.com/udisondev/questbots/internal/config"
	"github.com/udisondev/questbots/internal/hivemind"
	"github.com/udisondev/questbots/internal/model"
	"github.com/udisondev/questbots/internal/objective"
	"github.com/udisondev/questbots/internal/spawn"
)

// Per-second odds of the toy world events.
const (
	combatChance   = 0.01
	deathChance    = 0.05 // while in combat
	extractChance  = 0.0005
	vitalsDrain    = 0.004
	vitalsRecovery = 0.05
	combatDamage   = 0.3

	lootDuration = 3 * time.Second
)

type simBot struct {
	bot   ai.Bot
	brain *ai.Brain

	lootingUntil time.Time // movement goroutine only
}

// simulation is a toy world: agents walk straight at whatever their brain
// asks for, fight at random and occasionally die or extract.
type simulation struct {
	cfg   config.Config
	world *ai.World
	ticks *ai.TickManager

	rngMu sync.Mutex
	rng   *rand.Rand

	mu   sync.RWMutex
	bots map[uint32]*simBot // objectID → bot

	nextID     atomic.Uint32
	generators atomic.Int32
}

func newSimulation(cfg config.Config, switches *config.Switches, events ai.EventSink, clk clock.Clock) *simulation {
	s := &simulation{
		cfg:  cfg,
		rng:  rand.New(rand.NewPCG(cfg.Simulation.Seed, cfg.Simulation.Seed^0x9e3779b97f4a7c15)),
		bots: make(map[uint32]*simBot),
	}

	hive := hivemind.New(clk)
	s.world = &ai.World{
		Hive:       hive,
		Objectives: s.buildObjectives(),
		Switches:   switches,
		Config:     cfg.Questing,
		Clock:      clk,
		Events:     events,
	}
	s.ticks = ai.NewTickManager(cfg.Simulation.TickInterval, hive)
	return s
}

func (s *simulation) buildObjectives() *objective.Registry {
	registry := objective.NewRegistry()
	extent := s.cfg.Simulation.WorldExtent
	for i := range s.cfg.Simulation.Objectives {
		o := objective.New(
			int32(i+1),
			fmt.Sprintf("objective-%d", i+1),
			s.randomLocation(extent),
			5,
			s.cfg.Questing.DefaultMinTimeAtObjective/2+time.Duration(s.randFloat()*float64(s.cfg.Questing.DefaultMinTimeAtObjective)),
		)
		// A few objectives cannot be reached; agents heading there get stuck
		o.SetReachable(s.randFloat() > 0.1)
		registry.Add(o)
	}
	slog.Info("objectives generated", "count", registry.Count())
	return registry
}

func (s *simulation) randFloat() float64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Float64()
}

func (s *simulation) randomLocation(extent float64) model.Location {
	return model.NewLocation((s.randFloat()*2-1)*extent, (s.randFloat()*2-1)*extent, 0)
}

// generate starts one generator per initial group. Generators take up to
// StartDelay each; remainingGenerators reports how many are still running.
func (s *simulation) generate(ctx context.Context) {
	groupSize := max(1, s.cfg.Simulation.GroupSize)
	for remaining := s.cfg.Simulation.Agents; remaining > 0; remaining -= groupSize {
		size := min(groupSize, remaining)
		delay := time.Duration(s.randFloat() * float64(s.cfg.Simulation.StartDelay))

		s.generators.Add(1)
		go func() {
			defer s.generators.Add(-1)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			if err := s.spawnGroup(size); err != nil {
				slog.Error("agent generation failed", "size", size, "error", err)
			}
		}()
	}
}

func (s *simulation) remainingGenerators() int {
	return int(s.generators.Load())
}

// SpawnWave implements spawn.WaveSpawner.
func (s *simulation) SpawnWave(_ context.Context, w *spawn.Wave) error {
	return s.spawnGroup(w.Agents)
}

// spawnGroup creates a boss and size-1 followers around a random point.
func (s *simulation) spawnGroup(size int) error {
	center := s.randomLocation(s.cfg.Simulation.WorldExtent)

	var bossID uint32
	for i := range size {
		id := s.nextID.Add(1)
		loc := center.WithCoordinates(center.X+s.randFloat()*4, center.Y+s.randFloat()*4, center.Z)
		agent := model.NewAgent(id, fmt.Sprintf("bot-%d", id), loc)
		agent.SetState(model.BotStateActive)

		bot := ai.NewBot(s.world, agent)
		if i == 0 {
			bossID = id
		} else if err := s.world.Hive.SetBoss(id, bossID); err != nil {
			return fmt.Errorf("linking follower %d to boss %d: %w", id, bossID, err)
		}

		brain := ai.NewQuestingBrain(s.world, bot)
		s.mu.Lock()
		s.bots[id] = &simBot{bot: bot, brain: brain}
		s.mu.Unlock()
		s.ticks.Register(id, brain)
	}

	slog.Debug("group spawned", "boss", bossID, "size", size)
	return nil
}

func (s *simulation) snapshot() []*simBot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*simBot, 0, len(s.bots))
	for _, b := range s.bots {
		out = append(out, b)
	}
	return out
}

func (s *simulation) lookup(id uint32) (*simBot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bots[id]
	return b, ok
}

func (s *simulation) agentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bots)
}

// census returns how many agents are alive and how many of those still quest.
func (s *simulation) census() (alive, questing int) {
	for _, b := range s.snapshot() {
		if b.bot.Agent.State() == model.BotStateDead {
			continue
		}
		alive++
		if b.bot.Tracker.IsQuesting() {
			questing++
		}
	}
	return alive, questing
}

// runMovement advances the toy world every interval until ctx is canceled.
func (s *simulation) runMovement(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("movement started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("movement stopping")
			return ctx.Err()
		case <-ticker.C:
			s.step(interval.Seconds())
		}
	}
}

func (s *simulation) step(dt float64) {
	for _, b := range s.snapshot() {
		agent, mon := b.bot.Agent, b.bot.Monitor
		if agent.State() != model.BotStateActive {
			continue
		}

		health, hydration, energy := mon.Vitals()

		if s.randFloat() < combatChance*dt {
			mon.ReportCombat()
			health -= combatDamage * s.randFloat()
		}
		if s.world.Hive.Value(hivemind.SensorInCombat, agent.ObjectID()) && s.randFloat() < deathChance*dt {
			s.kill(b)
			continue
		}
		if s.randFloat() < extractChance*dt {
			mon.SetWantsToExtract(true)
		}
		s.loot(b)

		target, moving := s.target(b)
		if moving {
			agent.SetLocation(agent.Location().MoveToward(target, s.cfg.Simulation.MoveSpeed*dt))
			hydration -= vitalsDrain * dt
			energy -= vitalsDrain * dt
		} else {
			health += vitalsRecovery * dt
			hydration += vitalsRecovery * dt
			energy += vitalsRecovery * dt
		}
		mon.SetVitals(health, hydration, energy)
	}
}

// loot starts a short looting session when the agent commits to looting and
// ends it after lootDuration. A new session needs a fresh commitment.
func (s *simulation) loot(b *simBot) {
	mon := b.bot.Monitor
	now := s.world.Clock.Now()
	wants := s.world.Hive.Value(hivemind.SensorWantsToLoot, b.bot.Agent.ObjectID())

	switch {
	case wants && b.lootingUntil.IsZero():
		b.lootingUntil = now.Add(lootDuration)
		mon.SetLooting(true)
	case mon.IsLooting() && !now.Before(b.lootingUntil):
		mon.SetLooting(false)
	case !wants && !mon.IsLooting():
		b.lootingUntil = time.Time{}
	}
}

// target returns where the agent's current action takes it.
func (s *simulation) target(b *simBot) (model.Location, bool) {
	switch b.brain.CurrentAction() {
	case layer.ActionGoToObjective:
		o := b.bot.Tracker.Current()
		if o == nil || !o.Reachable() {
			return model.Location{}, false
		}
		return o.Location(), true

	case layer.ActionFollowBoss:
		bossID, ok := s.world.Hive.Boss(b.bot.Agent.ObjectID())
		if !ok {
			return model.Location{}, false
		}
		boss, ok := s.lookup(bossID)
		if !ok {
			return model.Location{}, false
		}
		return boss.bot.Agent.Location(), true

	default:
		// Regrouping bosses hold position until their followers catch up
		return model.Location{}, false
	}
}

func (s *simulation) kill(b *simBot) {
	agent := b.bot.Agent
	agent.SetState(model.BotStateDead)
	s.ticks.Unregister(agent.ObjectID())
	slog.Info("agent died", "agent", agent.Name(), "objectID", agent.ObjectID())
}

// close stops every brain and clears the process-scoped stores.
func (s *simulation) close() {
	for _, b := range s.snapshot() {
		s.ticks.Unregister(b.bot.Agent.ObjectID())
	}
	s.world.Hive.Clear()
	s.world.Objectives.Clear()
}
