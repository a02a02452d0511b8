package ai

import (
	"cmp"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/udisondev/questbots/internal/ai/layer"
	"github.com/udisondev/questbots/internal/model"
)

// Layer priorities of the standard questing stack. Higher wins.
const (
	PriorityFollower  = 19
	PriorityObjective = 18
)

type prioritizedLayer struct {
	layer    layer.Layer
	priority int
}

// Brain arbitrates a prioritized stack of layers for one agent: on every
// tick the highest-priority active layer supplies the current action.
type Brain struct {
	agent     *model.Agent
	layers    []prioritizedLayer
	isRunning atomic.Bool

	currentAction atomic.Int32
	activeLayer   atomic.Pointer[string]
}

// NewBrain creates a brain without layers.
func NewBrain(agent *model.Agent) *Brain {
	return &Brain{agent: agent}
}

// AddLayer registers a layer. Layers with equal priority keep insertion order.
// Must be called before Start.
func (b *Brain) AddLayer(l layer.Layer, priority int) {
	b.layers = append(b.layers, prioritizedLayer{layer: l, priority: priority})
	slices.SortStableFunc(b.layers, func(x, y prioritizedLayer) int {
		return cmp.Compare(y.priority, x.priority)
	})
}

// Layers returns the layers ordered by descending priority.
func (b *Brain) Layers() []layer.Layer {
	out := make([]layer.Layer, len(b.layers))
	for i, pl := range b.layers {
		out[i] = pl.layer
	}
	return out
}

// Agent returns the agent driven by this brain.
func (b *Brain) Agent() *model.Agent {
	return b.agent
}

// Start starts the brain.
func (b *Brain) Start() {
	b.isRunning.Store(true)
	slog.Debug("brain started",
		"agent", b.agent.Name(),
		"objectID", b.agent.ObjectID(),
		"layers", len(b.layers))
}

// Stop stops the brain and clears the current action.
func (b *Brain) Stop() {
	b.isRunning.Store(false)
	b.currentAction.Store(int32(layer.ActionNone))
	b.activeLayer.Store(nil)
	slog.Debug("brain stopped",
		"agent", b.agent.Name(),
		"objectID", b.agent.ObjectID())
}

// CurrentAction returns the action chosen by the last tick.
func (b *Brain) CurrentAction() layer.Action {
	return layer.Action(b.currentAction.Load())
}

// ActiveLayer returns the name of the layer that supplied the current action.
func (b *Brain) ActiveLayer() string {
	if name := b.activeLayer.Load(); name != nil {
		return *name
	}
	return ""
}

// Tick polls layers from highest to lowest priority.
func (b *Brain) Tick() {
	if !b.isRunning.Load() {
		return
	}

	for _, pl := range b.layers {
		if !pl.layer.IsActive() {
			continue
		}
		action := pl.layer.NextAction()
		name := pl.layer.Name()
		b.setAction(action, &name)
		return
	}
	b.setAction(layer.ActionNone, nil)
}

func (b *Brain) setAction(action layer.Action, layerName *string) {
	old := layer.Action(b.currentAction.Swap(int32(action)))
	b.activeLayer.Store(layerName)

	if old != action && IsDebugEnabled() {
		slog.Debug("agent action changed",
			"agent", b.agent.Name(),
			"objectID", b.agent.ObjectID(),
			"from", old,
			"to", action)
	}
}
