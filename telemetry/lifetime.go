package telemetry

import "log/slog"

// LifetimeStats tracks per-agent statistics over the time the controller saw it.
type LifetimeStats struct {
	FirstSeenTick int64
	LastSeenTick  int64

	// Decisions
	Transitions int
	Abilities   int

	// Movement tag tallies
	AvoidingTicks int
	GroupedTicks  int
	HiddenTicks   int
}

// Ticks returns how many ticks the agent was observed alive.
func (ls *LifetimeStats) Ticks() int64 {
	return ls.LastSeenTick - ls.FirstSeenTick + 1
}

// LogValue implements slog.LogValuer for structured logging.
func (ls *LifetimeStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("first_seen", ls.FirstSeenTick),
		slog.Int64("ticks", ls.Ticks()),
		slog.Int("transitions", ls.Transitions),
		slog.Int("abilities", ls.Abilities),
		slog.Int("avoiding_ticks", ls.AvoidingTicks),
		slog.Int("grouped_ticks", ls.GroupedTicks),
		slog.Int("hidden_ticks", ls.HiddenTicks),
	)
}

// LifetimeTracker manages per-agent lifetime statistics.
type LifetimeTracker struct {
	stats map[uint32]*LifetimeStats
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{
		stats: make(map[uint32]*LifetimeStats),
	}
}

// Track registers the agent on first sight and marks it seen at tick.
func (lt *LifetimeTracker) Track(agentID uint32, tick int64) *LifetimeStats {
	s := lt.stats[agentID]
	if s == nil {
		s = &LifetimeStats{FirstSeenTick: tick}
		lt.stats[agentID] = s
	}
	s.LastSeenTick = tick
	return s
}

// Observe records the movement outcome of an agent processed this tick.
func (lt *LifetimeTracker) Observe(agentID uint32, tick int64, tag string, grouped, hidden bool) {
	s := lt.Track(agentID, tick)
	if tag == "avoiding" {
		s.AvoidingTicks++
	}
	if grouped {
		s.GroupedTicks++
	}
	if hidden {
		s.HiddenTicks++
	}
}

// Get returns the lifetime stats for an agent, or nil if not found.
func (lt *LifetimeTracker) Get(agentID uint32) *LifetimeStats {
	return lt.stats[agentID]
}

// Remove removes an agent's stats and returns them (for snapshot/logging).
func (lt *LifetimeTracker) Remove(agentID uint32) *LifetimeStats {
	stats := lt.stats[agentID]
	delete(lt.stats, agentID)
	return stats
}

// RecordTransition increments the strategy transition count.
func (lt *LifetimeTracker) RecordTransition(agentID uint32) {
	if s := lt.stats[agentID]; s != nil {
		s.Transitions++
	}
}

// RecordAbility increments the ability intent count.
func (lt *LifetimeTracker) RecordAbility(agentID uint32) {
	if s := lt.stats[agentID]; s != nil {
		s.Abilities++
	}
}

// Count returns the number of tracked agents.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}

// Reset drops every tracked agent.
func (lt *LifetimeTracker) Reset() {
	clear(lt.stats)
}
