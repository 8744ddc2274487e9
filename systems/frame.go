package systems

import (
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/swarmmind/components"
)

// Frame is the read-mostly context shared by every component during one tick.
// The controller builds it after the heatmap and profile are updated.
type Frame struct {
	Now       int64 // ms
	Tick      int64
	Target    components.Vec2 // defended target
	Reference components.Vec2 // camera / player position
	Env       components.EnvironmentSnapshot
	Agents    []*components.Agent
	Grid      *SpatialGrid
	Heat      *Heatmap
	Profile   PlayerProfile
	Rng       *rand.Rand
}

// Neighbors appends live agents within radius of self to dst, in slice order.
func (f *Frame) Neighbors(dst []Neighbor, self *components.Agent, radius float64) []Neighbor {
	if f.Grid == nil {
		for i, a := range f.Agents {
			if a == self || !a.Alive() {
				continue
			}
			if d := distance(a.Position, self.Position); d <= radius {
				dst = append(dst, Neighbor{Agent: a, Index: i, Delta: r2.Sub(a.Position, self.Position), Dist: d})
			}
		}
		return dst
	}
	return f.Grid.QueryRadiusInto(dst, self.Position, radius, self)
}

// LiveCount returns the number of live agents in the frame.
func (f *Frame) LiveCount() int {
	n := 0
	for _, a := range f.Agents {
		if a.Alive() {
			n++
		}
	}
	return n
}

// IsHot reports whether pos is near a hot zone. A frame without a heatmap is never hot.
func (f *Frame) IsHot(pos components.Vec2) bool {
	if f.Heat == nil {
		return false
	}
	return f.Heat.IsHot(pos, f.Now)
}
