package config

import "sync/atomic"

// Switches are the global toggles an operator can flip while agents are
// being polled. Reads are lock-free.
type Switches struct {
	questingEnabled   atomic.Bool
	timeGatingEnabled atomic.Bool
}

// NewSwitches creates switches initialised from cfg.
func NewSwitches(cfg Config) *Switches {
	s := &Switches{}
	s.questingEnabled.Store(cfg.QuestingEnabled)
	s.timeGatingEnabled.Store(cfg.TimeGatingEnabled)
	return s
}

// QuestingEnabled reports whether questing logic may run at all.
func (s *Switches) QuestingEnabled() bool {
	return s.questingEnabled.Load()
}

// SetQuestingEnabled toggles questing for every agent.
func (s *Switches) SetQuestingEnabled(v bool) {
	s.questingEnabled.Store(v)
}

// TimeGatingEnabled reports whether layers may return cached verdicts between gate intervals.
func (s *Switches) TimeGatingEnabled() bool {
	return s.timeGatingEnabled.Load()
}

// SetTimeGatingEnabled toggles time gating for every agent.
func (s *Switches) SetTimeGatingEnabled(v bool) {
	s.timeGatingEnabled.Store(v)
}
