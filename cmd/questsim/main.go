package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/questbots/internal/ai"
	"github.com/udisondev/questbots/internal/clock"
	"github.com/udisondev/questbots/internal/config"
	"github.com/udisondev/questbots/internal/db"
	"github.com/udisondev/questbots/internal/spawn"
)

const ConfigPath = "config/questsim.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := ConfigPath
	if p := os.Getenv("QUESTBOTS_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))
	ai.EnableDebugLogging(logLevel == slog.LevelDebug)

	runID := uuid.New()
	startedAt := time.Now()
	slog.Info("questsim starting",
		"run", runID,
		"log_level", cfg.LogLevel,
		"agents", cfg.Simulation.Agents,
		"group_size", cfg.Simulation.GroupSize,
		"objectives", cfg.Simulation.Objectives)

	if cfg.Simulation.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Simulation.Duration)
		defer cancel()
	}

	counter := newEventCounter()
	var (
		writer *db.EventWriter
		runs   *db.RunRepository
	)
	if cfg.Database.Enabled() {
		database, err := db.New(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()
		slog.Info("database connected")

		if err := db.RunMigrations(ctx, database.Pool()); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		slog.Info("database migrations applied")

		writer = db.NewEventWriter(
			db.NewEventRepository(database.Pool(), runID),
			cfg.Database.EventQueueSize,
			cfg.Database.FlushInterval,
		)
		counter.next = writer
		runs = db.NewRunRepository(database.Pool())
	}

	clk := clock.Real{}
	sim := newSimulation(cfg, config.NewSwitches(cfg), counter, clk)
	defer sim.close()

	gate := spawn.NewStartGate(spawn.DefaultSafetyDelay)
	scheduler := spawn.NewScheduler(clk, cfg.Simulation.TickInterval, gate, sim)
	for i := 1; i <= cfg.Simulation.Waves; i++ {
		scheduler.Schedule(spawn.NewWave(i, cfg.Simulation.GroupSize, false, time.Duration(i)*cfg.Simulation.WaveInterval))
	}

	// Nothing may start before every initial group exists
	gate.Hold(scheduler.Timers()...)
	sim.generate(ctx)
	if _, err := spawn.WaitForGenerators(ctx, sim.remainingGenerators, 50*time.Millisecond); err != nil {
		if isShutdown(err) {
			return nil
		}
		return fmt.Errorf("waiting for agent generation: %w", err)
	}
	if err := scheduler.ReleaseGate(ctx); err != nil {
		slog.Warn("some missed waves failed to spawn", "error", err)
	}
	sim.world.Objectives.MarkTriggersFound()
	slog.Info("simulation started", "agents", sim.agentCount())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := sim.ticks.Start(gctx); err != nil {
			return fmt.Errorf("tick manager: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := scheduler.Start(gctx); err != nil {
			return fmt.Errorf("wave scheduler: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := sim.runMovement(gctx, cfg.Simulation.TickInterval); err != nil {
			return fmt.Errorf("movement: %w", err)
		}
		return nil
	})

	if writer != nil {
		g.Go(func() error {
			return writer.Run(gctx)
		})
	}

	slog.Info("questsim is running")
	if err := g.Wait(); err != nil && !isShutdown(err) {
		return fmt.Errorf("simulation error: %w", err)
	}

	rounds, ticks := sim.ticks.Stats()
	spawned, _ := scheduler.Stats()
	summary := db.RunSummary{
		ID:           runID,
		Seed:         cfg.Simulation.Seed,
		Agents:       sim.agentCount(),
		StartedAt:    startedAt,
		FinishedAt:   time.Now(),
		Rounds:       rounds,
		Ticks:        ticks,
		WavesSpawned: spawned,
	}
	if writer != nil {
		summary.EventsWritten, summary.EventsDropped, _ = writer.Stats()
	}
	printSummary(summary, sim, counter)

	if runs != nil {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := runs.Save(saveCtx, summary); err != nil {
			return fmt.Errorf("saving run summary: %w", err)
		}
	}
	return nil
}

func isShutdown(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func printSummary(s db.RunSummary, sim *simulation, counter *eventCounter) {
	alive, questing := sim.census()
	slog.Info("questsim finished",
		"run", s.ID,
		"ran", s.FinishedAt.Sub(s.StartedAt).Round(time.Second),
		"started", humanize.Time(s.StartedAt),
		"agents", humanize.Comma(int64(s.Agents)),
		"alive", humanize.Comma(int64(alive)),
		"questing", humanize.Comma(int64(questing)),
		"rounds", humanize.Comma(int64(s.Rounds)),
		"ticks", humanize.Comma(int64(s.Ticks)),
		"waves", s.WavesSpawned)

	for kind, n := range counter.snapshot() {
		slog.Info("decision events", "kind", kind, "count", humanize.Comma(int64(n)))
	}
	if s.EventsDropped > 0 {
		slog.Warn("decision events dropped", "count", humanize.Comma(int64(s.EventsDropped)))
	}
}

// parseLogLevel converts string log level to slog.Level.
// Defaults to Info if invalid or empty.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
