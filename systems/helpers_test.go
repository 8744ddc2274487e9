package systems

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/swarmmind/components"
	"github.com/pthm-cable/swarmmind/config"
)

const tolerance = 1e-9

// testFrame builds a frame over agents with a fresh heatmap unless one is given.
func testFrame(cfg *config.Config, now int64, agents []*components.Agent, heat *Heatmap, seed int64) *Frame {
	if heat == nil {
		heat = NewHeatmap(cfg.Heatmap)
	}
	grid := NewSpatialGrid(cfg.Swarm.Radius)
	grid.Rebuild(agents)
	return &Frame{
		Now:    now,
		Tick:   now / cfg.Simulation.TickMs,
		Target: components.V(cfg.Simulation.Target.X, cfg.Simulation.Target.Z),
		Env:    components.EnvironmentSnapshot{}.Normalized(),
		Agents: agents,
		Grid:   grid,
		Heat:   heat,
		Rng:    rand.New(rand.NewSource(seed)),
	}
}

func pest(id components.AgentID, x, z, health float64) *components.Agent {
	return &components.Agent{
		ID:        id,
		Position:  components.V(x, z),
		BaseSpeed: 1,
		Speed:     1,
		Health:    health,
		MaxHealth: 100,
		Damage:    1,
		Type:      "beetle",
		Behavior:  components.BehaviorNormal,
		Opacity:   1,
	}
}

// heatUp records n hits on the cell containing pos.
func heatUp(h *Heatmap, pos components.Vec2, n int, at int64) {
	for i := 0; i < n; i++ {
		h.RecordHit(pos, at)
	}
}

func isUnit(v components.Vec2) bool {
	return math.Abs(r2.Norm(v)-1) < 1e-6
}
