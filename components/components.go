// Package components defines the plain data exchanged between the AI controller
// and the gameplay layer that owns the pests.
package components

// AgentID identifies a pest. Ids are assigned by the external spawner and are stable
// for the lifetime of the pest.
type AgentID uint32

// PestType names a pest species (aphid, spider_mite, ...). Environment traits are
// looked up by this name in config.pest_types.
type PestType string

// Pest types with dedicated rules in the environment pass.
const (
	PestSpiderMite PestType = "spider_mite"
)

// BehaviorClass is the movement personality assigned by the spawner.
type BehaviorClass string

const (
	BehaviorNormal      BehaviorClass = "normal"
	BehaviorSwarm       BehaviorClass = "swarm"
	BehaviorSpreading   BehaviorClass = "spreading"
	BehaviorCoordinated BehaviorClass = "coordinated"
	BehaviorBurrowing   BehaviorClass = "burrowing"
	BehaviorFast        BehaviorClass = "fast"
	BehaviorFlying      BehaviorClass = "flying"
	BehaviorZigzag      BehaviorClass = "zigzag"
)

// IsSwarmType reports whether the class moves as part of a swarm group.
func (b BehaviorClass) IsSwarmType() bool {
	return b == BehaviorSwarm || b == BehaviorSpreading || b == BehaviorCoordinated
}

// AbilityKind names a special ability.
type AbilityKind string

const (
	AbilityNone       AbilityKind = ""
	AbilityHealer     AbilityKind = "healer"
	AbilityTrapper    AbilityKind = "trapper"
	AbilityBerserker  AbilityKind = "berserker"
	AbilitySpawner    AbilityKind = "spawner"
	AbilityTeleporter AbilityKind = "teleporter"
	AbilityShield     AbilityKind = "shield"
)

// Agent is a pest as seen by the AI controller.
// The gameplay layer owns it; the controller reads position and health and writes
// Speed, Opacity, Damage, AIHint, Strategy, NextStrategyChangeAt, SwarmGroupID and
// position deltas.
type Agent struct {
	ID       AgentID
	Position Vec2

	BaseSpeed float64 // speed with no modifiers
	Speed     float64 // BaseSpeed * the multiplier emitted this tick

	Health    float64
	MaxHealth float64
	Damage    float64 // damage multiplier for the current tick, 1 = unmodified

	Type              PestType
	Behavior          BehaviorClass
	Ability           AbilityKind
	AbilityCooldownMs int64

	Opacity     float64
	Camouflaged bool

	// Annotations written by the controller
	SwarmGroupID         int // 0 = not grouped
	Strategy             StrategyKind
	NextStrategyChangeAt int64
	AIHint               string
}

// Alive reports whether the agent should be processed this tick.
func (a *Agent) Alive() bool {
	return a != nil && a.Health > 0
}

// HealthRatio returns Health/MaxHealth, or 1 when MaxHealth is unset.
func (a *Agent) HealthRatio() float64 {
	if a.MaxHealth <= 0 {
		return 1
	}
	return a.Health / a.MaxHealth
}
