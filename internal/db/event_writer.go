package db

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/udisondev/questbots/internal/ai"
)

const (
	defaultEventBatch    = 256
	defaultEventQueue    = 4096
	defaultFlushInterval = time.Second
	finalFlushTimeout    = 5 * time.Second
)

// EventStore persists a batch of decision events.
type EventStore interface {
	InsertEvents(ctx context.Context, events []ai.Event) (int64, error)
}

// EventWriter is an ai.EventSink that queues events and writes them in
// batches from its own goroutine. Publish never blocks: when the queue is
// full the event is dropped and counted.
type EventWriter struct {
	store         EventStore
	queue         chan ai.Event
	batchSize     int
	flushInterval time.Duration

	written atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
}

// NewEventWriter creates a writer with a queue of queueSize events flushed
// every flushInterval or whenever a full batch is buffered.
func NewEventWriter(store EventStore, queueSize int, flushInterval time.Duration) *EventWriter {
	if queueSize <= 0 {
		queueSize = defaultEventQueue
	}
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}
	return &EventWriter{
		store:         store,
		queue:         make(chan ai.Event, queueSize),
		batchSize:     min(defaultEventBatch, queueSize),
		flushInterval: flushInterval,
	}
}

// Publish queues an event. Safe for concurrent use.
func (w *EventWriter) Publish(e ai.Event) {
	select {
	case w.queue <- e:
	default:
		if w.dropped.Add(1) == 1 {
			slog.Warn("decision event queue is full, dropping events", "capacity", cap(w.queue))
		}
	}
}

// Run drains the queue until ctx is canceled, then writes whatever is still
// queued and returns.
func (w *EventWriter) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	batch := make([]ai.Event, 0, w.batchSize)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		n, err := w.store.InsertEvents(ctx, batch)
		if err != nil {
			w.failed.Add(uint64(len(batch)))
			slog.Error("writing decision events", "count", len(batch), "error", err)
		} else {
			w.written.Add(uint64(n))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
		drain:
			for {
				select {
				case e := <-w.queue:
					batch = append(batch, e)
				default:
					break drain
				}
			}
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalFlushTimeout)
			flush(flushCtx)
			cancel()

			slog.Info("decision event writer stopped",
				"written", w.written.Load(),
				"dropped", w.dropped.Load(),
				"failed", w.failed.Load())
			return nil

		case e := <-w.queue:
			batch = append(batch, e)
			if len(batch) >= w.batchSize {
				flush(ctx)
			}

		case <-ticker.C:
			flush(ctx)
		}
	}
}

// Stats returns how many events were written, dropped on a full queue and
// lost to failed writes.
func (w *EventWriter) Stats() (written, dropped, failed uint64) {
	return w.written.Load(), w.dropped.Load(), w.failed.Load()
}
