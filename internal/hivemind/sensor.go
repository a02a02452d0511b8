package hivemind

// Sensor identifies a boolean per-agent value published to the hive-mind.
type Sensor int32

const (
	// SensorInCombat - agent is fighting or searching for enemies after a fight
	SensorInCombat Sensor = iota
	// SensorWantsToLoot - agent committed to a looting break
	SensorWantsToLoot
	// SensorCanQuest - agent has questing enabled and a live objective tracker
	SensorCanQuest

	sensorCount
)

// String returns human-readable sensor name
func (s Sensor) String() string {
	switch s {
	case SensorInCombat:
		return "IN_COMBAT"
	case SensorWantsToLoot:
		return "WANTS_TO_LOOT"
	case SensorCanQuest:
		return "CAN_QUEST"
	default:
		return "UNKNOWN"
	}
}

func (s Sensor) valid() bool {
	return s >= 0 && s < sensorCount
}
