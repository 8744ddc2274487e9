package systems

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/swarmmind/components"
	"github.com/pthm-cable/swarmmind/config"
)

func TestMovement_EveryBranchReturnsUnitDirection(t *testing.T) {
	cfg := config.Default()
	b := NewMovementBlender(cfg.Movement)

	hot := NewHeatmap(cfg.Heatmap)
	heatUp(hot, components.V(4.5, 0.5), cfg.Heatmap.HotIntensity+1, 0)

	tests := []struct {
		name     string
		pos      components.Vec2
		target   components.Vec2
		behavior components.BehaviorClass
		heat     *Heatmap
		swarm    *SwarmSteer
		angles   []float64
		wantTag  components.BehaviorTag
		wantMul  float64
	}{
		{"normal", components.V(10, 0), components.V(0, 0), components.BehaviorNormal, nil, nil, nil, components.TagNormal, 1},
		{"on target", components.V(0, 0), components.V(0, 0), components.BehaviorNormal, nil, nil, nil, components.TagNormal, 1},
		{"avoiding", components.V(5, 1), components.V(0, 0), components.BehaviorNormal, hot, nil, nil, components.TagAvoiding, cfg.Movement.AvoidSpeed},
		{"coordinated", components.V(10, 0), components.V(0, 0), components.BehaviorSwarm, nil, &SwarmSteer{Direction: components.V(0, 3)}, nil, components.TagCoordinated, 1},
		{"degenerate swarm", components.V(10, 0), components.V(0, 0), components.BehaviorSwarm, nil, &SwarmSteer{}, nil, components.TagCoordinated, 1},
		{"flanking", components.V(10, 0), components.V(0, 0), components.BehaviorNormal, nil, nil, []float64{deg(170)}, components.TagFlanking, cfg.Movement.FlankSpeed},
		{"zigzag", components.V(10, 0), components.V(0, 0), components.BehaviorZigzag, nil, nil, nil, components.TagZigzag, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent := pest(1, tt.pos.X, tt.pos.Y, 100)
			agent.Behavior = tt.behavior
			f := testFrame(cfg, 750, []*components.Agent{agent}, tt.heat, 1)
			f.Profile.PreferredAngles = tt.angles

			mv := b.Blend(f, BlendInput{Agent: agent, Target: tt.target, Swarm: tt.swarm})
			if !isUnit(mv.Direction) {
				t.Errorf("direction %v has length %.6f", mv.Direction, r2.Norm(mv.Direction))
			}
			if mv.Tag != tt.wantTag {
				t.Errorf("tag = %s, want %s", mv.Tag, tt.wantTag)
			}
			if mv.SpeedMul != tt.wantMul {
				t.Errorf("speed = %v, want %v", mv.SpeedMul, tt.wantMul)
			}
		})
	}
}

func TestMovement_AvoidanceTurnsAwayFromHotZone(t *testing.T) {
	cfg := config.Default()
	b := NewMovementBlender(cfg.Movement)

	// Hot zone between the agent and its target, slightly off the direct line.
	heat := NewHeatmap(cfg.Heatmap)
	heatUp(heat, components.V(4.5, 0.5), cfg.Heatmap.HotIntensity+1, 0)
	zone := components.V(4.5, 0.5)

	for _, pos := range []components.Vec2{components.V(6, 0), components.V(5.5, -1), components.V(6, 1.5)} {
		agent := pest(1, pos.X, pos.Y, 100)
		f := testFrame(cfg, 100, []*components.Agent{agent}, heat, 1)

		mv := b.Blend(f, BlendInput{Agent: agent, Target: components.V(0, 0)})
		if mv.Tag != components.TagAvoiding {
			t.Fatalf("agent at %v not avoiding", pos)
		}
		toZone := unit(r2.Sub(zone, pos), unitX)
		base := unit(r2.Sub(components.V(0, 0), pos), unitX)
		if r2.Dot(mv.Direction, toZone) >= r2.Dot(base, toZone) {
			t.Errorf("agent at %v: avoidance dot %.3f not below base %.3f",
				pos, r2.Dot(mv.Direction, toZone), r2.Dot(base, toZone))
		}
	}
}

func TestMovement_AvoidanceBeatsSwarm(t *testing.T) {
	cfg := config.Default()
	b := NewMovementBlender(cfg.Movement)
	heat := NewHeatmap(cfg.Heatmap)
	heatUp(heat, components.V(4.5, 0.5), cfg.Heatmap.HotIntensity+1, 0)

	agent := pest(1, 5, 1, 100)
	agent.Behavior = components.BehaviorCoordinated
	f := testFrame(cfg, 100, []*components.Agent{agent}, heat, 1)
	mv := b.Blend(f, BlendInput{Agent: agent, Target: components.V(0, 0), Swarm: &SwarmSteer{Direction: components.V(1, 0)}})
	if mv.Tag != components.TagAvoiding {
		t.Errorf("hot coordinated agent tag = %s, want avoiding", mv.Tag)
	}
}

func TestMovement_FlankOnlyWithinWindow(t *testing.T) {
	cfg := config.Default()
	b := NewMovementBlender(cfg.Movement)
	agent := pest(1, 10, 0, 100)
	f := testFrame(cfg, 0, []*components.Agent{agent}, nil, 1)
	// Reference at the origin: bearing from the agent is 180 degrees.

	tests := []struct {
		preferred float64
		want      components.BehaviorTag
	}{
		{deg(180), components.TagFlanking},
		{deg(140), components.TagFlanking},
		{deg(-150), components.TagFlanking},
		{deg(120), components.TagNormal},
		{deg(0), components.TagNormal},
	}
	for _, tt := range tests {
		f.Profile.PreferredAngles = []float64{tt.preferred}
		mv := b.Blend(f, BlendInput{Agent: agent, Target: components.V(0, 0)})
		if mv.Tag != tt.want {
			t.Errorf("preferred %.0f deg: tag %s, want %s", tt.preferred*180/math.Pi, mv.Tag, tt.want)
		}
	}
}

func TestMovement_ZigzagOscillates(t *testing.T) {
	cfg := config.Default()
	b := NewMovementBlender(cfg.Movement)
	agent := pest(1, 10, 0, 100)
	agent.Behavior = components.BehaviorZigzag
	f := testFrame(cfg, 0, []*components.Agent{agent}, nil, 1)

	period := cfg.Movement.ZigzagPeriodMs
	sample := func(now int64) float64 {
		f.Now = now
		mv := b.Blend(f, BlendInput{Agent: agent, Target: components.V(0, 0)})
		return angleDiff(heading(mv.Direction), math.Pi)
	}
	if d := sample(0); math.Abs(d) > 1e-9 {
		t.Errorf("phase 0 should not deflect, got %.4f", d)
	}
	left, right := sample(period/4), sample(3*period/4)
	if math.Abs(left-cfg.Movement.ZigzagAmplitudeRad) > 1e-9 || math.Abs(right+cfg.Movement.ZigzagAmplitudeRad) > 1e-9 {
		t.Errorf("zigzag extremes %.4f / %.4f, want +/-%.4f", left, right, cfg.Movement.ZigzagAmplitudeRad)
	}
}
