package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/swarmmind/config"
	"github.com/pthm-cable/swarmmind/game"
)

func TestParamVector_DefaultsMatchConfig(t *testing.T) {
	pv := NewParamVector()
	got := pv.ExtractFromConfig(config.Default())
	for i, spec := range pv.Specs {
		if math.Abs(got[i]-spec.Default) > 1e-9 {
			t.Errorf("%s: config default %v, spec default %v", spec.Path, got[i], spec.Default)
		}
	}
}

func TestParamVector_NormalizeRoundTrip(t *testing.T) {
	pv := NewParamVector()
	raw := pv.DefaultVector()
	back := pv.Denormalize(pv.Normalize(raw))
	for i := range raw {
		if math.Abs(back[i]-raw[i]) > 1e-9 {
			t.Errorf("%s: %v round-tripped to %v", pv.Specs[i].Name, raw[i], back[i])
		}
	}
}

func TestParamVector_ApplyClampsAndRounds(t *testing.T) {
	pv := NewParamVector()
	cfg := config.Default()
	pv.ApplyToConfig(cfg, []float64{5, -1, 3.0, 4.6})

	if cfg.Movement.AvoidWeight != 1.0 {
		t.Errorf("avoid_weight %v, want clamp to 1.0", cfg.Movement.AvoidWeight)
	}
	if cfg.Movement.FlankWeight != 0.1 {
		t.Errorf("flank_weight %v, want clamp to 0.1", cfg.Movement.FlankWeight)
	}
	if cfg.Swarm.Radius != 3.0 {
		t.Errorf("swarm radius %v", cfg.Swarm.Radius)
	}
	if cfg.Heatmap.HotIntensity != 5 {
		t.Errorf("hot_intensity %d, want 5", cfg.Heatmap.HotIntensity)
	}
}

func TestComputeFitness(t *testing.T) {
	good := game.SessionStats{Ticks: 100, Spawned: 10, Reached: 8, HeatExposure: 50}
	bad := game.SessionStats{Ticks: 100, Spawned: 10, Reached: 1, HeatExposure: 400}

	tests := []struct {
		name    string
		results []game.SessionStats
	}{
		{"single seed", []game.SessionStats{good}},
		{"two seeds", []game.SessionStats{good, good}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, summary := computeFitness(tt.results)
			if math.IsNaN(f) {
				t.Fatal("fitness is NaN")
			}
			if math.Abs(summary.ReachRate-0.8) > 1e-9 {
				t.Errorf("reach rate %v", summary.ReachRate)
			}
			if math.Abs(summary.ExposureRate-0.05) > 1e-9 {
				t.Errorf("exposure rate %v", summary.ExposureRate)
			}
		})
	}

	fGood, _ := computeFitness([]game.SessionStats{good, good})
	fBad, _ := computeFitness([]game.SessionStats{bad, bad})
	fMixed, _ := computeFitness([]game.SessionStats{good, bad})
	if fGood >= fBad {
		t.Errorf("good runs scored %v, bad runs %v", fGood, fBad)
	}
	if fMixed <= (fGood+fBad)/2 {
		t.Errorf("seed spread not penalised: mixed %v", fMixed)
	}

	if f, _ := computeFitness(nil); f != 0 {
		t.Errorf("empty fitness %v", f)
	}
}

func TestEvaluate_TracksBest(t *testing.T) {
	pv := NewParamVector()
	fe := NewFitnessEvaluator(pv, 50, []int64{1, 2}, config.Default())

	f := fe.Evaluate(pv.DefaultVector())
	if math.IsNaN(f) || math.IsInf(f, 0) {
		t.Fatalf("fitness %v", f)
	}
	stats := fe.BestStats()
	if len(stats) != 2 {
		t.Fatalf("best stats for %d seeds, want 2", len(stats))
	}
	for _, s := range stats {
		if s.Ticks != 50 {
			t.Errorf("session ran %d ticks, want 50", s.Ticks)
		}
	}
}
