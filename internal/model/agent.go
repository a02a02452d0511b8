package model

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Agent is one simulated actor. It is owned by the host simulation;
// the decision core only reads its identity, position and state.
// Thread-safe: position is guarded by an internal mutex, state is atomic.
type Agent struct {
	objectID uint32
	name     string
	lifeID   uuid.UUID

	mu       sync.RWMutex
	location Location

	state atomic.Int32
}

// NewAgent creates an inactive agent at loc with a fresh life ID.
func NewAgent(objectID uint32, name string, loc Location) *Agent {
	return &Agent{
		objectID: objectID,
		name:     name,
		lifeID:   uuid.New(),
		location: loc,
	}
}

// ObjectID returns the unique agent ID (immutable).
func (a *Agent) ObjectID() uint32 {
	return a.objectID
}

// Name returns the agent nickname.
func (a *Agent) Name() string {
	return a.name
}

// LifeID identifies the current life of the agent. Decision events are keyed by it.
func (a *Agent) LifeID() uuid.UUID {
	return a.lifeID
}

// Location returns a copy of the agent position.
func (a *Agent) Location() Location {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.location
}

// SetLocation moves the agent.
func (a *Agent) SetLocation(loc Location) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.location = loc
}

// State returns the operational state.
func (a *Agent) State() BotState {
	return BotState(a.state.Load())
}

// SetState updates the operational state.
func (a *Agent) SetState(s BotState) {
	a.state.Store(int32(s))
}

// IsActive reports whether the agent is in BotStateActive.
func (a *Agent) IsActive() bool {
	return a.State() == BotStateActive
}
