package systems

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/swarmmind/components"
	"github.com/pthm-cable/swarmmind/config"
)

// CellKey is a quantized grid coordinate.
type CellKey struct {
	X, Z int
}

// HeatCell counts player hits landing in one cell.
type HeatCell struct {
	HitCount  int
	LastHitMs int64
}

// HeatZone is an active cell annotated with its intensity.
type HeatZone struct {
	Key       CellKey
	Center    components.Vec2
	Intensity int
	LastHitMs int64
}

// Heatmap records where the player attacks and reports hot zones.
type Heatmap struct {
	cfg   config.HeatmapConfig
	cells map[CellKey]*HeatCell

	lastCompact int64

	// cached ActiveZones result, invalidated by RecordHit/Compact/Reset
	zones   []HeatZone
	zonesAt int64
	dirty   bool
}

// NewHeatmap creates an empty heatmap.
func NewHeatmap(cfg config.HeatmapConfig) *Heatmap {
	if cfg.CellSize <= 0 {
		cfg.CellSize = 1
	}
	return &Heatmap{
		cfg:   cfg,
		cells: make(map[CellKey]*HeatCell),
		dirty: true,
	}
}

// Key quantizes a world position to its cell.
func (h *Heatmap) Key(pos components.Vec2) CellKey {
	return CellKey{
		X: int(math.Floor(pos.X / h.cfg.CellSize)),
		Z: int(math.Floor(pos.Y / h.cfg.CellSize)),
	}
}

// Center returns the world-space centre of a cell.
func (h *Heatmap) Center(k CellKey) components.Vec2 {
	return components.Vec2{
		X: (float64(k.X) + 0.5) * h.cfg.CellSize,
		Y: (float64(k.Z) + 0.5) * h.cfg.CellSize,
	}
}

// RecordHit increments the cell under pos. A hit on an expired cell starts a new count.
func (h *Heatmap) RecordHit(pos components.Vec2, ts int64) {
	k := h.Key(pos)
	c, ok := h.cells[k]
	if !ok {
		c = &HeatCell{}
		h.cells[k] = c
	}
	if ok && !h.active(c, ts) {
		c.HitCount = 0
	}
	c.HitCount++
	if ts > c.LastHitMs {
		c.LastHitMs = ts
	}
	h.dirty = true
}

func (h *Heatmap) active(c *HeatCell, now int64) bool {
	return now-c.LastHitMs < h.cfg.TTLMs
}

// ActiveZones returns the cells hit within the TTL, ordered by key.
// The returned slice is shared until the next mutation; callers must not modify it.
func (h *Heatmap) ActiveZones(now int64) []HeatZone {
	if !h.dirty && h.zonesAt == now {
		return h.zones
	}
	h.zones = h.zones[:0]
	for k, c := range h.cells {
		if !h.active(c, now) {
			continue
		}
		h.zones = append(h.zones, HeatZone{
			Key:       k,
			Center:    h.Center(k),
			Intensity: c.HitCount,
			LastHitMs: c.LastHitMs,
		})
	}
	sort.Slice(h.zones, func(i, j int) bool {
		a, b := h.zones[i].Key, h.zones[j].Key
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Z < b.Z
	})
	h.zonesAt = now
	h.dirty = false
	return h.zones
}

// Intensity returns the active hit count of the cell under pos, or 0.
func (h *Heatmap) Intensity(pos components.Vec2, now int64) int {
	c, ok := h.cells[h.Key(pos)]
	if !ok || !h.active(c, now) {
		return 0
	}
	return c.HitCount
}

// IsHot reports whether an active zone above the hot intensity lies within the hot radius.
func (h *Heatmap) IsHot(pos components.Vec2, now int64) bool {
	return h.IsHotWithin(pos, now, h.cfg.HotRadius, h.cfg.HotIntensity)
}

// IsHotWithin is IsHot with explicit thresholds.
func (h *Heatmap) IsHotWithin(pos components.Vec2, now int64, radius float64, minIntensity int) bool {
	for _, z := range h.ActiveZones(now) {
		if z.Intensity > minIntensity && r2.Norm(r2.Sub(z.Center, pos)) <= radius {
			return true
		}
	}
	return false
}

// HotZonesNear appends the hot zones within radius of pos to dst.
func (h *Heatmap) HotZonesNear(dst []HeatZone, pos components.Vec2, now int64, radius float64) []HeatZone {
	for _, z := range h.ActiveZones(now) {
		if z.Intensity > h.cfg.HotIntensity && r2.Norm(r2.Sub(z.Center, pos)) <= radius {
			dst = append(dst, z)
		}
	}
	return dst
}

// HottestZone returns the active zone with the highest intensity.
// Ties go to the most recent hit, then to key order.
func (h *Heatmap) HottestZone(now int64) (HeatZone, bool) {
	var best HeatZone
	found := false
	for _, z := range h.ActiveZones(now) {
		if !found || z.Intensity > best.Intensity ||
			(z.Intensity == best.Intensity && z.LastHitMs > best.LastHitMs) {
			best = z
			found = true
		}
	}
	return best, found
}

// MaybeCompact drops expired cells if the compaction interval has elapsed.
// Returns the number of cells removed.
func (h *Heatmap) MaybeCompact(now int64) int {
	if now-h.lastCompact < h.cfg.CompactIntervalMs {
		return 0
	}
	return h.Compact(now)
}

// Compact drops every expired cell.
func (h *Heatmap) Compact(now int64) int {
	h.lastCompact = now
	removed := 0
	for k, c := range h.cells {
		if !h.active(c, now) {
			delete(h.cells, k)
			removed++
		}
	}
	if removed > 0 {
		h.dirty = true
	}
	return removed
}

// Len returns the number of stored cells, expired or not.
func (h *Heatmap) Len() int {
	return len(h.cells)
}

// Reset clears every cell.
func (h *Heatmap) Reset() {
	clear(h.cells)
	h.zones = h.zones[:0]
	h.lastCompact = 0
	h.dirty = true
}
