package ai

import "github.com/udisondev/questbots/internal/ai/layer"

// Controller represents the decision controller of one agent
type Controller interface {
	// Start starts the controller
	Start()

	// Stop stops the controller
	Stop()

	// Tick polls the controller (called every scheduler round)
	Tick()

	// CurrentAction returns the action chosen by the last tick
	CurrentAction() layer.Action
}
