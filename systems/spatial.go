// Package systems implements the per-tick AI components: heatmap, player profile,
// strategy state machine, swarm coordinator, ability scheduler, movement blender
// and environment pass.
package systems

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/swarmmind/components"
)

// Neighbor holds a nearby agent with precomputed spatial data.
type Neighbor struct {
	Agent *components.Agent
	Index int             // position in the tick's agent slice
	Delta components.Vec2 // offset from the query origin to the neighbor
	Dist  float64
}

type gridKey struct {
	col, row int
}

// SpatialGrid provides neighbor lookups using a cell-based grid.
// The garden has no fixed bounds, so cells live in a map rather than a flat slice.
type SpatialGrid struct {
	cellSize float64
	cells    map[gridKey][]int // cell -> indexes into the agent slice
	agents   []*components.Agent
}

// NewSpatialGrid creates an empty grid with the given cell size.
func NewSpatialGrid(cellSize float64) *SpatialGrid {
	if cellSize <= 0 {
		cellSize = 1
	}
	return &SpatialGrid{
		cellSize: cellSize,
		cells:    make(map[gridKey][]int),
	}
}

// Clear removes all agents from the grid, keeping cell storage for reuse.
func (g *SpatialGrid) Clear() {
	for k, v := range g.cells {
		g.cells[k] = v[:0]
	}
	g.agents = nil
}

// Rebuild indexes every live agent of the slice.
func (g *SpatialGrid) Rebuild(agents []*components.Agent) {
	g.Clear()
	g.agents = agents
	for i, a := range agents {
		if !a.Alive() {
			continue
		}
		k := g.key(a.Position)
		g.cells[k] = append(g.cells[k], i)
	}
}

// Move re-files the agent at index after its position changed from old.
// It is a no-op when both positions fall in the same cell.
func (g *SpatialGrid) Move(index int, old components.Vec2) {
	if index < 0 || index >= len(g.agents) {
		return
	}
	from, to := g.key(old), g.key(g.agents[index].Position)
	if from == to {
		return
	}
	cell := g.cells[from]
	for i, idx := range cell {
		if idx == index {
			g.cells[from] = append(cell[:i], cell[i+1:]...)
			break
		}
	}
	g.cells[to] = append(g.cells[to], index)
}

// QueryRadiusInto finds live agents within radius of pos and appends them to dst.
// The agent `exclude` is skipped. Results are ordered by slice index so callers see
// the same insertion order the controller iterates in.
func (g *SpatialGrid) QueryRadiusInto(dst []Neighbor, pos components.Vec2, radius float64, exclude *components.Agent) []Neighbor {
	start := len(dst)
	cellRadius := int(math.Ceil(radius / g.cellSize))
	center := g.key(pos)

	for dc := -cellRadius; dc <= cellRadius; dc++ {
		for dr := -cellRadius; dr <= cellRadius; dr++ {
			for _, idx := range g.cells[gridKey{center.col + dc, center.row + dr}] {
				a := g.agents[idx]
				if a == exclude || !a.Alive() {
					continue
				}
				delta := r2.Sub(a.Position, pos)
				dist := r2.Norm(delta)
				if dist <= radius {
					dst = append(dst, Neighbor{Agent: a, Index: idx, Delta: delta, Dist: dist})
				}
			}
		}
	}

	found := dst[start:]
	sort.Slice(found, func(i, j int) bool { return found[i].Index < found[j].Index })
	return dst
}

// key returns the cell containing a world position.
func (g *SpatialGrid) key(p components.Vec2) gridKey {
	return gridKey{
		col: int(math.Floor(p.X / g.cellSize)),
		row: int(math.Floor(p.Y / g.cellSize)),
	}
}
