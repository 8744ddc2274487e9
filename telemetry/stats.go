package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated controller statistics for a window of ticks.
type WindowStats struct {
	WindowStartTick int64 `csv:"-"`
	WindowEndTick   int64 `csv:"window_end"`
	SimTimeMs       int64 `csv:"sim_time_ms"`

	// Controller state at window end
	Agents      int     `csv:"agents"`
	Grouped     int     `csv:"grouped"`
	ActiveZones int     `csv:"active_zones"`
	HottestZone int     `csv:"hottest_zone"`
	HeatCells   int     `csv:"heat_cells"`
	Aggression  float64 `csv:"aggression"`
	Accuracy    float64 `csv:"accuracy"`

	// Events during window
	Sprays  int `csv:"sprays"`
	Intents int `csv:"intents"`
	Hidden  int `csv:"hidden"`
	Swept   int `csv:"swept"`

	// Strategy transitions by target strategy
	Transitions         int `csv:"transitions"`
	ToDirectAttack      int `csv:"to_direct_attack"`
	ToFlank             int `csv:"to_flank"`
	ToRetreatHeal       int `csv:"to_retreat_heal"`
	ToWaitAmbush        int `csv:"to_wait_ambush"`
	ToSwarmCoordinate   int `csv:"to_swarm_coordinate"`
	ToHitAndRun         int `csv:"to_hit_and_run"`
	ToCircleStrafe      int `csv:"to_circle_strafe"`
	ToUndergroundEmerge int `csv:"to_underground_emerge"`

	// Ability intents
	Abilities int `csv:"abilities"`
	Heals     int `csv:"heals"`
	Traps     int `csv:"traps"`
	Berserks  int `csv:"berserks"`
	Spawns    int `csv:"spawns"`
	Teleports int `csv:"teleports"`
	Shields   int `csv:"shields"`

	// Movement tags over all intents in the window
	TagNormal      int `csv:"tag_normal"`
	TagAvoiding    int `csv:"tag_avoiding"`
	TagCoordinated int `csv:"tag_coordinated"`
	TagFlanking    int `csv:"tag_flanking"`
	TagZigzag      int `csv:"tag_zigzag"`

	// Health ratio distribution (sampled at window end)
	HealthMean float64 `csv:"health_mean"`
	HealthP10  float64 `csv:"health_p10"`
	HealthP50  float64 `csv:"health_p50"`
	HealthP90  float64 `csv:"health_p90"`
}

// AvoidingShare returns the fraction of intents tagged avoiding.
func (s WindowStats) AvoidingShare() float64 {
	if s.Intents == 0 {
		return 0
	}
	return float64(s.TagAvoiding) / float64(s.Intents)
}

// ComputeHealthStats calculates mean and empirical percentiles from health values.
func ComputeHealthStats(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}

	// Sort a copy; stat.Quantile requires increasing input
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean = stat.Mean(sorted, nil)
	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)

	return mean, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartTick),
		slog.Int64("window_end", s.WindowEndTick),
		slog.Int64("sim_time_ms", s.SimTimeMs),
		slog.Int("agents", s.Agents),
		slog.Int("grouped", s.Grouped),
		slog.Int("active_zones", s.ActiveZones),
		slog.Int("hottest_zone", s.HottestZone),
		slog.Int("heat_cells", s.HeatCells),
		slog.Float64("aggression", s.Aggression),
		slog.Float64("accuracy", s.Accuracy),
		slog.Int("sprays", s.Sprays),
		slog.Int("intents", s.Intents),
		slog.Int("hidden", s.Hidden),
		slog.Int("swept", s.Swept),
		slog.Int("transitions", s.Transitions),
		slog.Int("abilities", s.Abilities),
		slog.Int("tag_avoiding", s.TagAvoiding),
		slog.Int("tag_coordinated", s.TagCoordinated),
		slog.Int("tag_flanking", s.TagFlanking),
		slog.Int("tag_zigzag", s.TagZigzag),
		slog.Float64("health_mean", s.HealthMean),
		slog.Float64("health_p10", s.HealthP10),
		slog.Float64("health_p50", s.HealthP50),
		slog.Float64("health_p90", s.HealthP90),
	)
}

// LogStats logs the window stats using the given logger.
func (s WindowStats) LogStats(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time_ms", s.SimTimeMs,
		"agents", s.Agents,
		"grouped", s.Grouped,
		"active_zones", s.ActiveZones,
		"sprays", s.Sprays,
		"transitions", s.Transitions,
		"to_flank", s.ToFlank,
		"to_retreat_heal", s.ToRetreatHeal,
		"to_wait_ambush", s.ToWaitAmbush,
		"to_swarm_coordinate", s.ToSwarmCoordinate,
		"to_hit_and_run", s.ToHitAndRun,
		"abilities", s.Abilities,
		"avoiding_share", s.AvoidingShare(),
		"hidden", s.Hidden,
		"swept", s.Swept,
		"aggression", s.Aggression,
		"accuracy", s.Accuracy,
		"health_p50", s.HealthP50,
	)
}
