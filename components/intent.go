package components

// Intent is the per-agent output of one tick, consumed by animation and movement.
type Intent struct {
	AgentID       AgentID
	Direction     Vec2 // unit length
	SpeedMul      float64
	AIHint        string
	Tag           BehaviorTag
	Role          SwarmRole
	Strategy      StrategyKind
	PositionDelta Vec2 // valid when HasDelta
	HasDelta      bool
	Hidden        bool    // agent is underground this tick
	Heal          float64 // health the gameplay layer should restore this tick
}

// AbilityIntent is a requested special-ability effect. The controller never applies
// it; the gameplay layer does. Only the fields relevant to Kind are set.
type AbilityIntent struct {
	Kind   AbilityKind
	Source AgentID
	At     int64 // ms when the intent was emitted

	Targets []AgentID // heal: the injured ally; shield: self + allies; berserker: self

	Position Vec2    // trap centre, spawn point, teleport destination
	Radius   float64 // trap radius

	Amount     float64 // heal amount
	CastMs     int64   // heal cast time
	DurationMs int64   // trap, berserker, shield
	Effect     string  // trap effect, e.g. "slow"

	SpeedMul  float64 // berserker
	DamageMul float64 // berserker
	Reduction float64 // shield damage reduction
	Count     int     // spawn count
}

// BehaviorSnapshot is the per-agent debug view for telemetry and overlays.
type BehaviorSnapshot struct {
	Tick       int64   `csv:"tick" json:"tick"`
	AgentID    uint32  `csv:"agent_id" json:"agent_id"`
	Type       string  `csv:"type" json:"type"`
	X          float64 `csv:"x" json:"x"`
	Z          float64 `csv:"z" json:"z"`
	Health     float64 `csv:"health" json:"health"`
	Strategy   string  `csv:"strategy" json:"strategy"`
	Tag        string  `csv:"tag" json:"tag"`
	Role       string  `csv:"role" json:"role,omitempty"`
	GroupID    int     `csv:"group_id" json:"group_id,omitempty"`
	Hint       string  `csv:"hint" json:"hint"`
	SpeedMul   float64 `csv:"speed_mul" json:"speed_mul"`
	Opacity    float64 `csv:"opacity" json:"opacity"`
	Hidden     bool    `csv:"hidden" json:"hidden,omitempty"`
	Ability    string  `csv:"ability" json:"ability,omitempty"`
	NextEvalMs int64   `csv:"next_eval_ms" json:"next_eval_ms"`
}
