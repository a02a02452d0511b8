package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RunSummary is the outcome of one simulation run.
type RunSummary struct {
	ID            uuid.UUID
	Seed          uint64
	Agents        int
	StartedAt     time.Time
	FinishedAt    time.Time
	Rounds        uint64
	Ticks         uint64
	WavesSpawned  int
	EventsWritten uint64
	EventsDropped uint64
}

// RunRepository stores simulation run summaries.
type RunRepository struct {
	db *pgxpool.Pool
}

// NewRunRepository creates a RunRepository.
func NewRunRepository(db *pgxpool.Pool) *RunRepository {
	return &RunRepository{db: db}
}

// Save inserts or updates a run summary.
func (r *RunRepository) Save(ctx context.Context, s RunSummary) error {
	query := `
		INSERT INTO simulation_runs
			(id, seed, agents, started_at, finished_at, rounds, ticks, waves_spawned, events_written, events_dropped)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			finished_at    = EXCLUDED.finished_at,
			rounds         = EXCLUDED.rounds,
			ticks          = EXCLUDED.ticks,
			waves_spawned  = EXCLUDED.waves_spawned,
			events_written = EXCLUDED.events_written,
			events_dropped = EXCLUDED.events_dropped
	`
	_, err := r.db.Exec(ctx, query,
		s.ID, int64(s.Seed), s.Agents, s.StartedAt, s.FinishedAt,
		int64(s.Rounds), int64(s.Ticks), s.WavesSpawned, int64(s.EventsWritten), int64(s.EventsDropped),
	)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", s.ID, err)
	}
	return nil
}

// Get returns a run summary.
// Returns nil, nil if the run does not exist.
func (r *RunRepository) Get(ctx context.Context, id uuid.UUID) (*RunSummary, error) {
	var (
		s                                     RunSummary
		seed, rounds, ticks, written, dropped int64
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, seed, agents, started_at, finished_at, rounds, ticks, waves_spawned, events_written, events_dropped
		 FROM simulation_runs WHERE id = $1`, id,
	).Scan(&s.ID, &seed, &s.Agents, &s.StartedAt, &s.FinishedAt, &rounds, &ticks, &s.WavesSpawned, &written, &dropped)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying run %s: %w", id, err)
	}

	s.Seed = uint64(seed)
	s.Rounds = uint64(rounds)
	s.Ticks = uint64(ticks)
	s.EventsWritten = uint64(written)
	s.EventsDropped = uint64(dropped)
	return &s, nil
}
