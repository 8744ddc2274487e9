package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Simulation.TickMs != 100 {
		t.Errorf("tick_ms %d, want 100", cfg.Simulation.TickMs)
	}
	if cfg.Heatmap.TTLMs != 10000 || cfg.Heatmap.CompactIntervalMs != 5000 {
		t.Errorf("heatmap timers %d/%d", cfg.Heatmap.TTLMs, cfg.Heatmap.CompactIntervalMs)
	}
	if cfg.Heatmap.HotIntensity != 3 || cfg.Heatmap.HotRadius != 2 {
		t.Errorf("hot zone %d within %v", cfg.Heatmap.HotIntensity, cfg.Heatmap.HotRadius)
	}
	if cfg.Strategy.MinIntervalMs != 3000 || cfg.Strategy.MaxIntervalMs != 7000 {
		t.Errorf("strategy interval %d-%d", cfg.Strategy.MinIntervalMs, cfg.Strategy.MaxIntervalMs)
	}
	if cfg.Environment.WinterMiteHeal != 0.1 {
		t.Errorf("winter_mite_heal %v", cfg.Environment.WinterMiteHeal)
	}
	if len(cfg.Session.Archetypes) == 0 {
		t.Fatal("no session archetypes")
	}

	var sum float64
	for _, a := range cfg.Session.Archetypes {
		if a.Weight <= 0 || a.Behavior == "" {
			t.Errorf("archetype %q not normalised: %+v", a.Type, a)
		}
		sum += a.Weight
	}
	if cfg.Derived.ArchetypeWeight != sum {
		t.Errorf("derived archetype weight %v, want %v", cfg.Derived.ArchetypeWeight, sum)
	}
}

func TestLoad_OverrideMergesOverDefaults(t *testing.T) {
	path := writeFile(t, `
heatmap:
  hot_intensity: 7
session:
  archetypes:
    - type: ant
      weight: 0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Heatmap.HotIntensity != 7 {
		t.Errorf("hot_intensity %d, want override 7", cfg.Heatmap.HotIntensity)
	}
	if cfg.Heatmap.TTLMs != 10000 {
		t.Errorf("ttl_ms %d, want default kept", cfg.Heatmap.TTLMs)
	}
	if len(cfg.Session.Archetypes) != 1 {
		t.Fatalf("archetypes %d, want override list of 1", len(cfg.Session.Archetypes))
	}
	a := cfg.Session.Archetypes[0]
	if a.Weight != 1 || a.Behavior != "normal" {
		t.Errorf("archetype defaults not filled: %+v", a)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad yaml", "heatmap: [", "parsing config file"},
		{"zero cell", "heatmap:\n  cell_size: 0\n", "heatmap.cell_size"},
		{"empty window", "profile:\n  window: 0\n", "profile.window"},
		{"inverted interval", "strategy:\n  min_interval_ms: 5000\n  max_interval_ms: 1000\n", "strategy.max_interval_ms"},
		{"inverted burrow", "strategy:\n  burrow_min_ms: 5000\n  burrow_max_ms: 1000\n", "strategy.burrow_max_ms"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Movement.AvoidWeight = 0.42
	cfg.Swarm.Radius = 5.5

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if back.Movement.AvoidWeight != 0.42 || back.Swarm.Radius != 5.5 {
		t.Errorf("round trip lost values: avoid %v radius %v", back.Movement.AvoidWeight, back.Swarm.Radius)
	}
	if len(back.Session.Archetypes) != len(cfg.Session.Archetypes) {
		t.Errorf("archetypes %d, want %d", len(back.Session.Archetypes), len(cfg.Session.Archetypes))
	}
}

func TestInit_Global(t *testing.T) {
	if err := Init(""); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if Cfg().Simulation.TickMs != 100 {
		t.Errorf("global tick_ms %d", Cfg().Simulation.TickMs)
	}
	if Default() == Cfg() {
		t.Error("Default should return a fresh copy")
	}
}

func TestTraits(t *testing.T) {
	cfg := Default()
	if got := cfg.Traits("no-such-pest"); got != (PestTraits{}) {
		t.Errorf("unknown pest traits %+v", got)
	}
	for name, want := range cfg.PestTypes {
		if got := cfg.Traits(name); got != want {
			t.Errorf("%s: %+v, want %+v", name, got, want)
		}
	}
}
