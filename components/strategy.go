package components

// StrategyKind is the discrete high-level behavior an agent is executing.
type StrategyKind uint8

const (
	StrategyDirectAttack StrategyKind = iota
	StrategyFlank
	StrategyRetreatHeal
	StrategyWaitAmbush
	StrategySwarmCoordinate
	StrategyHitAndRun
	StrategyCircleStrafe
	StrategyUndergroundEmerge
)

// BehaviorTag labels which branch of the movement blender produced a direction.
// It is a separate dimension from StrategyKind.
type BehaviorTag uint8

const (
	TagNormal BehaviorTag = iota
	TagAvoiding
	TagCoordinated
	TagFlanking
	TagZigzag
)

// SwarmRole is the diagnostic role of an agent inside its swarm group.
type SwarmRole uint8

const (
	RoleNone SwarmRole = iota
	RoleLeader
	RoleFollower
)

// FormationKind selects the follower offset generator.
type FormationKind uint8

const (
	FormationWedge FormationKind = iota
	FormationCircle
	FormationLine
)

// Strategy is the per-agent state machine component. Exactly one of the variant
// components below accompanies it, matching Kind (direct_attack, retreat_heal and
// swarm_coordinate carry no transient fields).
type Strategy struct {
	Agent        AgentID
	Kind         StrategyKind
	NextChangeAt int64 // ms; re-evaluation is gated on now >= NextChangeAt
	LastSeenTick int64 // tick of the last evaluation, used to sweep removed agents
}

// FlankState holds the lazily chosen flank point.
type FlankState struct {
	Target    Vec2
	HasTarget bool
}

// AmbushState tracks whether the ambush has been sprung.
type AmbushState struct {
	Sprung     bool
	StrikeTick bool // true only on the tick the ambush breaks
}

// HitPhase is the sub-phase of hit_and_run.
type HitPhase uint8

const (
	PhaseApproach HitPhase = iota
	PhaseRetreat
)

// HitAndRunState holds the two-phase timer.
type HitAndRunState struct {
	Phase       HitPhase
	PhaseEndsAt int64 // ms, 0 = timer not started
}

// CircleState holds the orbit captured on the first strafe tick.
type CircleState struct {
	Radius      float64
	Angle       float64
	Initialized bool
}

// UndergroundState holds the burrow window.
type UndergroundState struct {
	Underground bool
	EmergeAt    int64 // ms
}
