package model

// BotState is the operational state of an agent as reported by the host.
type BotState int32

const (
	// BotStateInactive - agent is spawned but not yet (or no longer) simulated
	BotStateInactive BotState = iota
	// BotStateActive - agent is alive and being driven by its brain
	BotStateActive
	// BotStateDead - agent died; its brain should be unregistered
	BotStateDead
)

// String returns human-readable state name
func (s BotState) String() string {
	switch s {
	case BotStateInactive:
		return "INACTIVE"
	case BotStateActive:
		return "ACTIVE"
	case BotStateDead:
		return "DEAD"
	default:
		return "UNKNOWN"
	}
}
