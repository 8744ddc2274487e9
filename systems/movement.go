package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/swarmmind/components"
	"github.com/pthm-cable/swarmmind/config"
)

// BlendInput is everything the blender needs for one agent.
type BlendInput struct {
	Agent  *components.Agent
	Target components.Vec2 // strategy target
	Swarm  *SwarmSteer     // nil when the agent is not coordinated this tick
}

// Movement is the blended steering result.
type Movement struct {
	Direction components.Vec2 // unit length
	SpeedMul  float64
	Tag       components.BehaviorTag
}

// MovementBlender composes avoidance, swarm, flanking and zigzag steering.
// The branches form a fixed priority chain; the first match wins.
type MovementBlender struct {
	cfg         config.MovementConfig
	flankWindow float64

	zones []HeatZone
}

// NewMovementBlender creates a blender.
func NewMovementBlender(cfg config.MovementConfig) *MovementBlender {
	return &MovementBlender{
		cfg:         cfg,
		flankWindow: cfg.FlankWindowDeg * math.Pi / 180,
	}
}

// Blend returns the agent's direction, speed multiplier and tag for this tick.
func (b *MovementBlender) Blend(f *Frame, in BlendInput) Movement {
	agent := in.Agent
	base := unit(r2.Sub(in.Target, agent.Position), unitX)

	if f.IsHot(agent.Position) {
		avoid := b.avoidance(f, agent.Position)
		return Movement{
			Direction: blend(avoid, base, b.cfg.AvoidWeight, base),
			SpeedMul:  b.cfg.AvoidSpeed,
			Tag:       components.TagAvoiding,
		}
	}

	if in.Swarm != nil {
		return Movement{
			Direction: unit(in.Swarm.Direction, base),
			SpeedMul:  1,
			Tag:       components.TagCoordinated,
		}
	}

	if len(f.Profile.PreferredAngles) > 0 {
		toRef := bearing(agent.Position, f.Reference)
		preferred := f.Profile.PreferredAngles[0]
		if diff := angleDiff(preferred, toRef); math.Abs(diff) <= b.flankWindow {
			// Slide sideways away from where the player is aiming.
			side := -math.Pi / 2
			if diff < 0 {
				side = math.Pi / 2
			}
			perp := rotate(base, side)
			return Movement{
				Direction: blend(perp, base, b.cfg.FlankWeight, base),
				SpeedMul:  b.cfg.FlankSpeed,
				Tag:       components.TagFlanking,
			}
		}
	}

	if agent.Behavior == components.BehaviorZigzag && b.cfg.ZigzagPeriodMs > 0 {
		phase := 2 * math.Pi * float64(f.Now%b.cfg.ZigzagPeriodMs) / float64(b.cfg.ZigzagPeriodMs)
		return Movement{
			Direction: unit(rotate(base, b.cfg.ZigzagAmplitudeRad*math.Sin(phase)), base),
			SpeedMul:  1,
			Tag:       components.TagZigzag,
		}
	}

	return Movement{Direction: base, SpeedMul: 1, Tag: components.TagNormal}
}

// avoidance sums 1/distance repulsion from every hot zone within the avoid radius.
func (b *MovementBlender) avoidance(f *Frame, pos components.Vec2) components.Vec2 {
	b.zones = f.Heat.HotZonesNear(b.zones[:0], pos, f.Now, b.cfg.AvoidRadius)
	var sum components.Vec2
	for _, z := range b.zones {
		away := r2.Sub(pos, z.Center)
		d := r2.Norm(away)
		if d < epsilon {
			continue
		}
		sum = r2.Add(sum, r2.Scale(1/(d*d), away))
	}
	return unit(sum, components.Vec2{})
}
