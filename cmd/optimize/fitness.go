package main

import (
	"io"
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/swarmmind/config"
	"github.com/pthm-cable/swarmmind/game"
)

// Fitness weights. Reaching the target dominates; heat exposure is the
// penalty for walking through the player's kill zones.
const (
	reachWeight    = 1.0
	exposureWeight = 0.5
	spreadWeight   = 0.25 // penalises configs that only work on some seeds
)

// FitnessEvaluator runs headless sessions and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   int64
	seeds      []int64
	baseConfig *config.Config
	logger     *slog.Logger

	mu        sync.Mutex
	bestStats []game.SessionStats
	best      float64
	last      evalSummary
}

// evalSummary is the per-evaluation aggregate printed as progress.
type evalSummary struct {
	ReachRate    float64
	ExposureRate float64
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int64, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		maxTicks:   maxTicks,
		seeds:      seeds,
		baseConfig: baseCfg,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		best:       math.Inf(1),
	}
}

// Last returns the summary of the most recent evaluation.
func (fe *FitnessEvaluator) Last() evalSummary {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.last
}

// BestStats returns the per-seed session stats of the best evaluation.
func (fe *FitnessEvaluator) BestStats() []game.SessionStats {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestStats
}

// Evaluate computes fitness for a raw parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	// Seeds share the config read-only, so they run in parallel.
	results := make([]game.SessionStats, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runSession(cfg, s)
		}(i, seed)
	}
	wg.Wait()

	fitness, summary := computeFitness(results)

	fe.mu.Lock()
	if fitness < fe.best {
		fe.best = fitness
		fe.bestStats = results
	}
	fe.last = summary
	fe.mu.Unlock()

	return fitness
}

// runSession executes a single headless session.
func (fe *FitnessEvaluator) runSession(cfg *config.Config, seed int64) game.SessionStats {
	s := game.NewSession(cfg, game.Options{Seed: seed, Logger: fe.logger})
	for s.Stats().Ticks < fe.maxTicks {
		s.Step()
	}
	return s.Stats()
}

// copyConfig returns a copy of the base config. Only scalar fields are
// tuned, so the shared maps and slices stay read-only.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}

// computeFitness scores a set of per-seed runs (lower = better).
// Per seed: exposureWeight*exposure - reachWeight*reach, where reach is the
// fraction of spawned pests that reached the target and exposure is the
// fraction of pest-ticks spent visible in a hot zone. The seed spread is
// added so that fitness prefers configs that are good on every seed.
func computeFitness(results []game.SessionStats) (float64, evalSummary) {
	if len(results) == 0 {
		return 0, evalSummary{}
	}

	scores := make([]float64, len(results))
	reach := make([]float64, len(results))
	exposure := make([]float64, len(results))
	for i, r := range results {
		reach[i] = reachRate(r)
		exposure[i] = exposureRate(r)
		scores[i] = exposureWeight*exposure[i] - reachWeight*reach[i]
	}

	mean, std := stat.MeanStdDev(scores, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return mean + spreadWeight*std, evalSummary{
		ReachRate:    stat.Mean(reach, nil),
		ExposureRate: stat.Mean(exposure, nil),
	}
}

func reachRate(r game.SessionStats) float64 {
	if r.Spawned == 0 {
		return 0
	}
	return float64(r.Reached) / float64(r.Spawned)
}

// exposureRate normalises heat exposure by the pest-ticks a session could
// have spent exposed: every spawned pest alive for the whole run.
func exposureRate(r game.SessionStats) float64 {
	if r.Spawned == 0 || r.Ticks == 0 {
		return 0
	}
	return math.Min(1, float64(r.HeatExposure)/(float64(r.Spawned)*float64(r.Ticks)))
}
