// Package objective holds the world's questing objectives and the
// per-agent tracker that owns an agent's current assignment.
package objective

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/udisondev/questbots/internal/model"
)

// selectionPool is how many of the nearest candidates Select picks from.
const selectionPool = 3

// Objective is a location an agent should travel to and stay at for a while.
type Objective struct {
	id                 int32
	name               string
	location           model.Location
	radius             float64
	minTimeAtObjective time.Duration

	reachable atomic.Bool
}

// New creates a reachable objective. An agent within radius of location has reached it.
// A zero minTimeAtObjective means the tracker default applies.
func New(id int32, name string, location model.Location, radius float64, minTimeAtObjective time.Duration) *Objective {
	o := &Objective{
		id:                 id,
		name:               name,
		location:           location,
		radius:             radius,
		minTimeAtObjective: minTimeAtObjective,
	}
	o.reachable.Store(true)
	return o
}

// ID returns the objective ID.
func (o *Objective) ID() int32 { return o.id }

// Name returns the objective name.
func (o *Objective) Name() string { return o.name }

// Location returns the target position.
func (o *Objective) Location() model.Location { return o.location }

// Radius returns the arrival radius.
func (o *Objective) Radius() float64 { return o.radius }

// MinTimeAtObjective returns the dwell time (0 = tracker default).
func (o *Objective) MinTimeAtObjective() time.Duration { return o.minTimeAtObjective }

// Reachable reports whether a path to the objective is known to exist.
func (o *Objective) Reachable() bool { return o.reachable.Load() }

// SetReachable is called by the path planner.
func (o *Objective) SetReachable(v bool) { o.reachable.Store(v) }

// Contains reports whether loc is within the arrival radius.
func (o *Objective) Contains(loc model.Location) bool {
	return o.location.DistanceSquared(loc) <= o.radius*o.radius
}

// String returns "name#id".
func (o *Objective) String() string {
	if o == nil {
		return "<none>"
	}
	return fmt.Sprintf("%s#%d", o.name, o.id)
}

// Registry is the process-scoped set of objectives of the current map.
// Thread-safe.
type Registry struct {
	mu         sync.RWMutex
	objectives []*Objective

	triggersFound atomic.Bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers objectives.
func (r *Registry) Add(objectives ...*Objective) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objectives = append(r.objectives, objectives...)
}

// Count returns number of objectives.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objectives)
}

// All returns a copy of the objective list.
func (r *Registry) All() []*Objective {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.objectives)
}

// MarkTriggersFound signals that every objective trigger on the map has been
// discovered and generated. Agents do not commit to objectives before that.
func (r *Registry) MarkTriggersFound() {
	r.triggersFound.Store(true)
}

// HaveTriggersBeenFound reports whether objective generation finished.
func (r *Registry) HaveTriggersBeenFound() bool {
	return r.triggersFound.Load()
}

// Clear drops every objective and resets the triggers flag.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objectives = nil
	r.triggersFound.Store(false)
}

// Select picks a reachable objective for an agent at from, other than
// exclude, at random among the nearest candidates.
func (r *Registry) Select(from model.Location, exclude *Objective) (*Objective, bool) {
	r.mu.RLock()
	candidates := make([]*Objective, 0, len(r.objectives))
	for _, o := range r.objectives {
		if o == exclude || !o.Reachable() {
			continue
		}
		candidates = append(candidates, o)
	}
	r.mu.RUnlock()

	if len(candidates) == 0 {
		return nil, false
	}

	slices.SortFunc(candidates, func(a, b *Objective) int {
		return cmp.Compare(a.location.DistanceSquared(from), b.location.DistanceSquared(from))
	})

	pool := min(selectionPool, len(candidates))
	return candidates[rand.IntN(pool)], true
}
