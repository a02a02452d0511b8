package ai

import (
	"time"

	"github.com/google/uuid"
)

// EventKind names a decision edge worth persisting.
type EventKind string

const (
	EventAbleBodied       EventKind = "able_bodied"
	EventStuck            EventKind = "stuck"
	EventObjectiveChanged EventKind = "objective_changed"
	EventStopQuesting     EventKind = "stop_questing"
	EventExtract          EventKind = "extract"
)

// Event is one decision edge of one agent life.
type Event struct {
	LifeID   uuid.UUID
	ObjectID uint32
	Agent    string
	Kind     EventKind
	Detail   string
	At       time.Time
}

// EventSink receives decision events. Publish is called from inside a
// layer poll and must never block.
type EventSink interface {
	Publish(Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event)

// Publish calls f(e).
func (f EventSinkFunc) Publish(e Event) { f(e) }

// DiscardEvents drops every event.
var DiscardEvents EventSink = EventSinkFunc(func(Event) {})
