// Package hivemind is the process-scoped store of per-agent sensor values
// and boss/follower links that lets agents observe group-level conditions.
//
// Every entry is independent: reads are atomic loads, writes are
// last-writer-wins stores, and no operation locks the whole store.
// Multi-key reads are not snapshots.
package hivemind

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/udisondev/questbots/internal/clock"
	"github.com/udisondev/questbots/internal/model"
)

var unknownDistance = math.Float64bits(math.NaN())

type entry struct {
	agent *model.Agent

	sensors [sensorCount]atomic.Bool

	bossID         atomic.Uint32 // 0 = no boss
	distanceToBoss atomic.Uint64 // math.Float64bits, unknownDistance until first Refresh
	lastLootingAt  atomic.Int64  // UnixNano, 0 = never

	followersMu sync.RWMutex
	followers   map[uint32]*entry
}

func newEntry(agent *model.Agent) *entry {
	e := &entry{
		agent:     agent,
		followers: make(map[uint32]*entry),
	}
	e.distanceToBoss.Store(unknownDistance)
	return e
}

func (e *entry) alive() bool {
	return e.agent.State() != model.BotStateDead
}

func (e *entry) followerList() []*entry {
	e.followersMu.RLock()
	defer e.followersMu.RUnlock()
	list := make([]*entry, 0, len(e.followers))
	for _, f := range e.followers {
		list = append(list, f)
	}
	return list
}

// Store is the shared cross-agent state service.
// Created at simulation start, cleared at simulation end.
type Store struct {
	clock   clock.Clock
	entries sync.Map // map[uint32]*entry, objectID → entry
	count   atomic.Int32
}

// New creates an empty store.
func New(clk clock.Clock) *Store {
	return &Store{clock: clk}
}

// Register adds agent to the store. Re-registering an ID starts a new life:
// the previous entry is detached from its boss and followers, which have to
// be linked again with SetBoss.
func (s *Store) Register(agent *model.Agent) {
	id := agent.ObjectID()
	prev, loaded := s.entries.Swap(id, newEntry(agent))
	if !loaded {
		s.count.Add(1)
		return
	}
	s.detach(id, prev.(*entry))
}

// Unregister removes an agent and detaches it from its boss and followers.
func (s *Store) Unregister(objectID uint32) {
	value, ok := s.entries.LoadAndDelete(objectID)
	if !ok {
		return
	}
	s.count.Add(-1)
	s.detach(objectID, value.(*entry))
}

func (s *Store) detach(objectID uint32, e *entry) {
	if bossID := e.bossID.Swap(0); bossID != 0 {
		if boss, ok := s.lookup(bossID); ok {
			boss.followersMu.Lock()
			if boss.followers[objectID] == e {
				delete(boss.followers, objectID)
			}
			boss.followersMu.Unlock()
		}
	}
	for _, f := range e.followerList() {
		if f.bossID.CompareAndSwap(objectID, 0) {
			f.distanceToBoss.Store(unknownDistance)
		}
	}
}

// Count returns number of registered agents.
func (s *Store) Count() int {
	return int(s.count.Load())
}

// Clear drops every entry.
func (s *Store) Clear() {
	s.entries.Range(func(key, _ any) bool {
		s.entries.Delete(key)
		return true
	})
	s.count.Store(0)
}

func (s *Store) lookup(objectID uint32) (*entry, bool) {
	value, ok := s.entries.Load(objectID)
	if !ok {
		return nil, false
	}
	return value.(*entry), true
}

// SetBoss links follower to boss. Both agents must be registered.
func (s *Store) SetBoss(followerID, bossID uint32) error {
	if followerID == bossID {
		return fmt.Errorf("agent %d cannot be its own boss", followerID)
	}
	follower, ok := s.lookup(followerID)
	if !ok {
		return fmt.Errorf("follower %d not registered", followerID)
	}
	boss, ok := s.lookup(bossID)
	if !ok {
		return fmt.Errorf("boss %d not registered", bossID)
	}

	if prev := follower.bossID.Swap(bossID); prev != 0 && prev != bossID {
		if old, ok := s.lookup(prev); ok {
			old.followersMu.Lock()
			delete(old.followers, followerID)
			old.followersMu.Unlock()
		}
	}

	boss.followersMu.Lock()
	boss.followers[followerID] = follower
	boss.followersMu.Unlock()

	follower.distanceToBoss.Store(math.Float64bits(follower.agent.Location().Distance(boss.agent.Location())))

	slog.Debug("follower linked to boss", "follower", followerID, "boss", bossID)
	return nil
}

// Boss returns the boss ID of an agent.
func (s *Store) Boss(objectID uint32) (uint32, bool) {
	e, ok := s.lookup(objectID)
	if !ok {
		return 0, false
	}
	id := e.bossID.Load()
	return id, id != 0
}

// Followers returns the IDs of the agents following bossID.
func (s *Store) Followers(bossID uint32) []uint32 {
	boss, ok := s.lookup(bossID)
	if !ok {
		return nil
	}
	list := boss.followerList()
	ids := make([]uint32, 0, len(list))
	for _, f := range list {
		ids = append(ids, f.agent.ObjectID())
	}
	return ids
}

// HasBoss reports whether the agent follows a boss that is still alive.
func (s *Store) HasBoss(objectID uint32) bool {
	e, ok := s.lookup(objectID)
	if !ok {
		return false
	}
	bossID := e.bossID.Load()
	if bossID == 0 {
		return false
	}
	boss, ok := s.lookup(bossID)
	return ok && boss.alive()
}

// SetValue publishes a sensor value for one agent. Never blocks.
// A true WantsToLoot also stamps the agent's last looting time.
func (s *Store) SetValue(sensor Sensor, objectID uint32, value bool) {
	if !sensor.valid() {
		return
	}
	e, ok := s.lookup(objectID)
	if !ok {
		return
	}
	e.sensors[sensor].Store(value)
	if sensor == SensorWantsToLoot && value {
		e.lastLootingAt.Store(s.clock.Now().UnixNano())
	}
}

// Value returns a sensor value for one agent (false when unregistered).
func (s *Store) Value(sensor Sensor, objectID uint32) bool {
	if !sensor.valid() {
		return false
	}
	e, ok := s.lookup(objectID)
	if !ok {
		return false
	}
	return e.sensors[sensor].Load()
}

// ValueForBoss returns a sensor value of the agent's boss (false without a boss).
func (s *Store) ValueForBoss(sensor Sensor, objectID uint32) bool {
	bossID, ok := s.Boss(objectID)
	if !ok {
		return false
	}
	return s.Value(sensor, bossID)
}

// GroupValue returns the logical OR of a sensor across the agent's group:
// its boss (or itself when it has none) and every follower of that boss.
func (s *Store) GroupValue(sensor Sensor, objectID uint32) bool {
	if !sensor.valid() {
		return false
	}
	e, ok := s.lookup(objectID)
	if !ok {
		return false
	}
	root := e
	if bossID := e.bossID.Load(); bossID != 0 {
		if boss, ok := s.lookup(bossID); ok {
			root = boss
		}
	}

	if root.sensors[sensor].Load() || e.sensors[sensor].Load() {
		return true
	}

	root.followersMu.RLock()
	defer root.followersMu.RUnlock()
	for _, f := range root.followers {
		if f.sensors[sensor].Load() {
			return true
		}
	}
	return false
}

// DistanceToBoss returns the cached distance to the agent's boss.
// ok is false when the agent has no boss or the distance is not known yet.
func (s *Store) DistanceToBoss(objectID uint32) (float64, bool) {
	e, ok := s.lookup(objectID)
	if !ok || e.bossID.Load() == 0 {
		return 0, false
	}
	d := math.Float64frombits(e.distanceToBoss.Load())
	if math.IsNaN(d) {
		return 0, false
	}
	return d, true
}

// MaxFollowerDistance returns the largest cached distance between bossID and its followers.
func (s *Store) MaxFollowerDistance(bossID uint32) (float64, bool) {
	boss, ok := s.lookup(bossID)
	if !ok {
		return 0, false
	}
	maxDist, found := 0.0, false
	for _, f := range boss.followerList() {
		if !f.alive() {
			continue
		}
		d := math.Float64frombits(f.distanceToBoss.Load())
		if math.IsNaN(d) {
			continue
		}
		if !found || d > maxDist {
			maxDist, found = d, true
		}
	}
	return maxDist, found
}

// LastLootingTimeForBoss returns when the agent's boss last committed to looting.
// Zero time when the boss never looted or the agent has no boss.
func (s *Store) LastLootingTimeForBoss(objectID uint32) time.Time {
	bossID, ok := s.Boss(objectID)
	if !ok {
		return time.Time{}
	}
	boss, ok := s.lookup(bossID)
	if !ok {
		return time.Time{}
	}
	ns := boss.lastLootingAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Refresh recomputes the cached distance-to-boss of every follower and
// unlinks followers whose boss died. Called once per scheduler round.
func (s *Store) Refresh() {
	s.entries.Range(func(_, value any) bool {
		e := value.(*entry)
		bossID := e.bossID.Load()
		if bossID == 0 {
			return true
		}

		boss, ok := s.lookup(bossID)
		if !ok || !boss.alive() {
			if e.bossID.CompareAndSwap(bossID, 0) {
				e.distanceToBoss.Store(unknownDistance)
				if ok {
					boss.followersMu.Lock()
					delete(boss.followers, e.agent.ObjectID())
					boss.followersMu.Unlock()
				}
				slog.Info("boss is gone, follower released",
					"agent", e.agent.Name(),
					"objectID", e.agent.ObjectID(),
					"boss", bossID)
			}
			return true
		}

		d := e.agent.Location().Distance(boss.agent.Location())
		e.distanceToBoss.Store(math.Float64bits(d))
		return true
	})
}
