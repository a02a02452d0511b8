package config

import (
	"errors"
	"fmt"
	"time"
)

// Questing is the tuning surface consumed by the decision layers.
type Questing struct {
	// Minimum spacing between full re-evaluations of a layer for one agent.
	UpdateInterval time.Duration `yaml:"update_interval"`

	MinTimeBetweenSwitchingObjectives time.Duration `yaml:"min_time_between_switching_objectives"`
	DefaultMinTimeAtObjective         time.Duration `yaml:"default_min_time_at_objective"`

	SearchTimeAfterCombat DurationRange `yaml:"search_time_after_combat"`

	StuckDetection      StuckDetection      `yaml:"stuck_bot_detection"`
	MaxFollowerDistance MaxFollowerDistance `yaml:"max_follower_distance"`
	BreakForLooting     BreakForLooting     `yaml:"break_for_looting"`
	AbleBodied          AbleBodied          `yaml:"able_bodied"`
}

// DurationRange is an inclusive [Min, Max] interval.
type DurationRange struct {
	Min time.Duration `yaml:"min"`
	Max time.Duration `yaml:"max"`
}

// FloatRange is an inclusive [Min, Max] interval.
type FloatRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// StuckDetection configures movement-sampling stuck detection.
type StuckDetection struct {
	Distance float64       `yaml:"distance"` // displacement that counts as progress
	Time     time.Duration `yaml:"time"`     // time without progress before the agent is stuck
	MaxCount int           `yaml:"max_count"`
}

// MaxFollowerDistance configures boss/follower spacing.
type MaxFollowerDistance struct {
	// Follow band: followers run to the boss once further than Max and
	// keep following until closer than Min.
	TargetRange FloatRange `yaml:"target_range"`
	// A boss waits for followers further away than Furthest.
	Furthest    float64       `yaml:"furthest"`
	MaxWaitTime time.Duration `yaml:"max_wait_time"`
}

// BreakForLooting configures looting pauses.
type BreakForLooting struct {
	Enabled                             bool          `yaml:"enabled"`
	MinTimeBetweenLootingChecks         time.Duration `yaml:"min_time_between_looting_checks"`
	MinTimeBetweenFollowerLootingChecks time.Duration `yaml:"min_time_between_follower_looting_checks"`
	MaxTimeToStartLooting               time.Duration `yaml:"max_time_to_start_looting"`
	MaxDistanceFromBoss                 float64       `yaml:"max_distance_from_boss"`
}

// AbleBodied holds the thresholds below which an agent must heal, eat or drink.
// All values are fractions in [0, 1].
type AbleBodied struct {
	MinHealth    float64 `yaml:"min_health"`
	MinHydration float64 `yaml:"min_hydration"`
	MinEnergy    float64 `yaml:"min_energy"`
	// Extra margin required to become able-bodied again after dropping below a threshold.
	RecoveryMargin float64 `yaml:"recovery_margin"`
}

// DefaultQuesting returns Questing with sensible defaults.
func DefaultQuesting() Questing {
	return Questing{
		UpdateInterval:                    25 * time.Millisecond,
		MinTimeBetweenSwitchingObjectives: 5 * time.Second,
		DefaultMinTimeAtObjective:         10 * time.Second,
		SearchTimeAfterCombat: DurationRange{
			Min: 20 * time.Second,
			Max: 45 * time.Second,
		},
		StuckDetection: StuckDetection{
			Distance: 2,
			Time:     20 * time.Second,
			MaxCount: 8,
		},
		MaxFollowerDistance: MaxFollowerDistance{
			TargetRange: FloatRange{Min: 7, Max: 12},
			Furthest:    40,
			MaxWaitTime: 5 * time.Second,
		},
		BreakForLooting: BreakForLooting{
			Enabled:                             true,
			MinTimeBetweenLootingChecks:         50 * time.Second,
			MinTimeBetweenFollowerLootingChecks: 30 * time.Second,
			MaxTimeToStartLooting:               2 * time.Second,
			MaxDistanceFromBoss:                 50,
		},
		AbleBodied: AbleBodied{
			MinHealth:      0.5,
			MinHydration:   0.2,
			MinEnergy:      0.2,
			RecoveryMargin: 0.1,
		},
	}
}

// Validate checks ranges that would make the layers misbehave.
func (q Questing) Validate() error {
	var errs []error
	if q.UpdateInterval < 0 {
		errs = append(errs, fmt.Errorf("update_interval must be >= 0, got %s", q.UpdateInterval))
	}
	if q.SearchTimeAfterCombat.Min > q.SearchTimeAfterCombat.Max {
		errs = append(errs, fmt.Errorf("search_time_after_combat: min %s > max %s",
			q.SearchTimeAfterCombat.Min, q.SearchTimeAfterCombat.Max))
	}
	if r := q.MaxFollowerDistance.TargetRange; r.Min > r.Max {
		errs = append(errs, fmt.Errorf("max_follower_distance.target_range: min %.1f > max %.1f", r.Min, r.Max))
	}
	if q.StuckDetection.MaxCount <= 0 {
		errs = append(errs, fmt.Errorf("stuck_bot_detection.max_count must be > 0, got %d", q.StuckDetection.MaxCount))
	}
	return errors.Join(errs...)
}
