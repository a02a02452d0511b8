// Package layer provides the behavior layer contract and the update-gated
// container every concrete layer is built on.
package layer

// Action is the next-action token a layer hands to the outer scheduler.
type Action int32

const (
	// ActionNone - layer has nothing to do
	ActionNone Action = iota
	// ActionGoToObjective - travel to the assigned objective
	ActionGoToObjective
	// ActionRegroup - wait for or walk back to lagging followers
	ActionRegroup
	// ActionFollowBoss - close the distance to the boss
	ActionFollowBoss
)

// String returns human-readable action name
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "None"
	case ActionGoToObjective:
		return "GoToObjective"
	case ActionRegroup:
		return "Regroup"
	case ActionFollowBoss:
		return "FollowBoss"
	default:
		return "Unknown"
	}
}

// Layer is one self-contained behavior strategy that can claim "active"
// and propose one action.
type Layer interface {
	// Name returns layer name for logs
	Name() string

	// IsActive polls the layer (possibly answering from cache)
	IsActive() bool

	// NextAction returns the action chosen by the last active poll
	NextAction() Action

	// IsCurrentActionEnding reports whether the action handed out last is no longer wanted
	IsCurrentActionEnding() bool
}

// GatingSwitch exposes the global time-gating toggle.
type GatingSwitch interface {
	TimeGatingEnabled() bool
}
