package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/questbots/internal/ai"
)

// EventRepository stores decision events of one simulation run.
type EventRepository struct {
	db    *pgxpool.Pool
	runID uuid.UUID
}

// NewEventRepository creates an EventRepository writing rows for runID.
func NewEventRepository(db *pgxpool.Pool, runID uuid.UUID) *EventRepository {
	return &EventRepository{db: db, runID: runID}
}

// RunID returns the run the repository writes to.
func (r *EventRepository) RunID() uuid.UUID {
	return r.runID
}

// InsertEvents batch-inserts events with COPY.
func (r *EventRepository) InsertEvents(ctx context.Context, events []ai.Event) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(events))
	for _, e := range events {
		rows = append(rows, []any{
			r.runID, e.LifeID, int64(e.ObjectID), e.Agent, string(e.Kind), e.Detail, e.At,
		})
	}

	n, err := r.db.CopyFrom(ctx,
		pgx.Identifier{"decision_events"},
		[]string{"run_id", "life_id", "object_id", "agent", "kind", "detail", "occurred_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting %d decision events: %w", len(events), err)
	}

	slog.Debug("saved decision events", "runID", r.runID, "count", n)
	return n, nil
}

// ListByLife returns the events of one agent life in time order.
func (r *EventRepository) ListByLife(ctx context.Context, lifeID uuid.UUID) ([]ai.Event, error) {
	query := `
		SELECT life_id, object_id, agent, kind, detail, occurred_at
		FROM decision_events
		WHERE run_id = $1 AND life_id = $2
		ORDER BY occurred_at, id
	`

	rows, err := r.db.Query(ctx, query, r.runID, lifeID)
	if err != nil {
		return nil, fmt.Errorf("querying events for life %s: %w", lifeID, err)
	}
	defer rows.Close()

	events := make([]ai.Event, 0, 16)
	for rows.Next() {
		var (
			e        ai.Event
			objectID int64
			kind     string
		)
		if err := rows.Scan(&e.LifeID, &objectID, &e.Agent, &kind, &e.Detail, &e.At); err != nil {
			return nil, fmt.Errorf("scanning decision event row: %w", err)
		}
		e.ObjectID = uint32(objectID)
		e.Kind = ai.EventKind(kind)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating decision event rows: %w", err)
	}

	return events, nil
}

// CountByKind returns the number of events per kind in this run.
func (r *EventRepository) CountByKind(ctx context.Context) (map[ai.EventKind]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT kind, COUNT(*) FROM decision_events WHERE run_id = $1 GROUP BY kind`,
		r.runID,
	)
	if err != nil {
		return nil, fmt.Errorf("counting events for run %s: %w", r.runID, err)
	}
	defer rows.Close()

	counts := make(map[ai.EventKind]int64)
	for rows.Next() {
		var (
			kind  string
			count int64
		)
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scanning event count row: %w", err)
		}
		counts[ai.EventKind(kind)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating event count rows: %w", err)
	}
	return counts, nil
}
