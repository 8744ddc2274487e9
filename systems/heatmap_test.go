package systems

import (
	"testing"

	"github.com/pthm-cable/swarmmind/components"
	"github.com/pthm-cable/swarmmind/config"
)

func TestHeatmap_IntensityCountsHitsAndExpires(t *testing.T) {
	h := NewHeatmap(config.Default().Heatmap)
	pos := components.V(2.5, 3.5)

	for i, ts := range []int64{0, 500, 1000, 1500} {
		h.RecordHit(pos, ts)
		zones := h.ActiveZones(ts)
		if len(zones) != 1 {
			t.Fatalf("expected 1 active zone, got %d", len(zones))
		}
		if zones[0].Intensity != i+1 {
			t.Errorf("after %d hits intensity = %d", i+1, zones[0].Intensity)
		}
	}

	zones := h.ActiveZones(2000)
	if zones[0].Key != (CellKey{X: 2, Z: 3}) {
		t.Errorf("expected cell (2,3), got %+v", zones[0].Key)
	}
	if zones[0].Intensity != 4 {
		t.Errorf("expected intensity 4, got %d", zones[0].Intensity)
	}

	if got := h.ActiveZones(1500 + 11000); len(got) != 0 {
		t.Errorf("cell should have expired, got %+v", got)
	}
}

func TestHeatmap_ExpiresAtTTL(t *testing.T) {
	cfg := config.Default().Heatmap
	h := NewHeatmap(cfg)
	h.RecordHit(components.V(0, 0), 1000)

	if len(h.ActiveZones(1000+cfg.TTLMs-1)) != 1 {
		t.Error("cell should be active just before TTL")
	}
	if len(h.ActiveZones(1000+cfg.TTLMs+1)) != 0 {
		t.Error("cell should be excluded after TTL")
	}
}

func TestHeatmap_HitOnExpiredCellRestartsCount(t *testing.T) {
	cfg := config.Default().Heatmap
	h := NewHeatmap(cfg)
	pos := components.V(0.2, 0.2)
	heatUp(h, pos, 5, 0)

	later := cfg.TTLMs + 500
	h.RecordHit(pos, later)
	if got := h.Intensity(pos, later); got != 1 {
		t.Errorf("expected count to restart at 1, got %d", got)
	}
}

func TestHeatmap_NegativeCoordinatesQuantize(t *testing.T) {
	h := NewHeatmap(config.Default().Heatmap)
	if k := h.Key(components.V(-0.5, -1.2)); k != (CellKey{X: -1, Z: -2}) {
		t.Errorf("expected (-1,-2), got %+v", k)
	}
	if c := h.Center(CellKey{X: -1, Z: 0}); c.X != -0.5 || c.Y != 0.5 {
		t.Errorf("unexpected centre %+v", c)
	}
}

func TestHeatmap_IsHotRequiresIntensityAboveThreshold(t *testing.T) {
	cfg := config.Default().Heatmap
	tests := []struct {
		name string
		hits int
		at   components.Vec2
		want bool
	}{
		{"at threshold", cfg.HotIntensity, components.V(0.5, 0.5), false},
		{"above threshold", cfg.HotIntensity + 1, components.V(0.5, 0.5), true},
		{"within radius", cfg.HotIntensity + 1, components.V(2.0, 0.5), true},
		{"outside radius", cfg.HotIntensity + 1, components.V(3.0, 0.5), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHeatmap(cfg)
			heatUp(h, components.V(0.5, 0.5), tt.hits, 100)
			if got := h.IsHot(tt.at, 200); got != tt.want {
				t.Errorf("IsHot = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHeatmap_HottestZone(t *testing.T) {
	h := NewHeatmap(config.Default().Heatmap)
	if _, ok := h.HottestZone(0); ok {
		t.Fatal("empty heatmap should have no hottest zone")
	}

	heatUp(h, components.V(0.5, 0.5), 3, 100)
	heatUp(h, components.V(5.5, 5.5), 5, 200)
	heatUp(h, components.V(-4.5, 2.5), 5, 300)

	z, ok := h.HottestZone(400)
	if !ok {
		t.Fatal("expected a hottest zone")
	}
	// Equal intensity: the most recent hit wins.
	if z.Key != (CellKey{X: -5, Z: 2}) {
		t.Errorf("expected cell (-5,2), got %+v", z.Key)
	}
}

func TestHeatmap_CompactionIsPeriodic(t *testing.T) {
	cfg := config.Default().Heatmap
	h := NewHeatmap(cfg)
	h.RecordHit(components.V(0, 0), 0)
	h.RecordHit(components.V(10, 10), cfg.TTLMs)

	now := cfg.TTLMs + 100
	if removed := h.Compact(now); removed != 1 {
		t.Errorf("expected 1 expired cell removed, got %d", removed)
	}
	if h.Len() != 1 {
		t.Errorf("expected 1 cell left, got %d", h.Len())
	}

	h.RecordHit(components.V(20, 20), now)
	if removed := h.MaybeCompact(now + cfg.CompactIntervalMs - 1); removed != 0 {
		t.Errorf("compaction ran before its interval, removed %d", removed)
	}
	if removed := h.MaybeCompact(now + 3*cfg.TTLMs); removed != 2 {
		t.Errorf("expected 2 cells removed, got %d", removed)
	}
	if h.Len() != 0 {
		t.Errorf("expected empty heatmap, got %d cells", h.Len())
	}
}

func TestHeatmap_Reset(t *testing.T) {
	h := NewHeatmap(config.Default().Heatmap)
	heatUp(h, components.V(1, 1), 4, 0)
	h.ActiveZones(0)
	h.Reset()
	if h.Len() != 0 || len(h.ActiveZones(0)) != 0 {
		t.Error("reset should clear every cell")
	}
}
