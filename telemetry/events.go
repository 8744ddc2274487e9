// Package telemetry provides windowed controller stats, bookmarks, snapshots,
// Prometheus metrics and CSV/PNG output for the swarm AI controller.
package telemetry

// EventType identifies telemetry events.
type EventType uint8

const (
	EventSpray EventType = iota
	EventTransition
	EventAbility
	EventIntent
	EventSweep
)

// Event represents a single telemetry event emitted by the controller.
type Event struct {
	Type    EventType
	Tick    int64
	AgentID uint32

	// Optional fields depending on event type
	From    string // transition: previous strategy
	To      string // transition: new strategy
	Ability string // ability kind
	Tag     string // intent: movement tag
	Hidden  bool   // intent: agent underground
}

// NewSprayEvent creates a spray event.
func NewSprayEvent(tick int64) Event {
	return Event{Type: EventSpray, Tick: tick}
}

// NewTransitionEvent creates a strategy transition event.
func NewTransitionEvent(tick int64, agentID uint32, from, to string) Event {
	return Event{Type: EventTransition, Tick: tick, AgentID: agentID, From: from, To: to}
}

// NewAbilityEvent creates an ability intent event.
func NewAbilityEvent(tick int64, agentID uint32, ability string) Event {
	return Event{Type: EventAbility, Tick: tick, AgentID: agentID, Ability: ability}
}

// NewIntentEvent creates a movement intent event.
func NewIntentEvent(tick int64, agentID uint32, tag string, hidden bool) Event {
	return Event{Type: EventIntent, Tick: tick, AgentID: agentID, Tag: tag, Hidden: hidden}
}

// NewSweepEvent creates an event for an agent whose strategy state was released.
func NewSweepEvent(tick int64, agentID uint32) Event {
	return Event{Type: EventSweep, Tick: tick, AgentID: agentID}
}

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventSpray:
		return "spray"
	case EventTransition:
		return "transition"
	case EventAbility:
		return "ability"
	case EventIntent:
		return "intent"
	case EventSweep:
		return "sweep"
	default:
		return "unknown"
	}
}
