// Package config provides configuration loading and access for the AI controller.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all controller configuration parameters.
type Config struct {
	Simulation  SimulationConfig      `yaml:"simulation"`
	Heatmap     HeatmapConfig         `yaml:"heatmap"`
	Profile     ProfileConfig         `yaml:"profile"`
	Strategy    StrategyConfig        `yaml:"strategy"`
	Swarm       SwarmConfig           `yaml:"swarm"`
	Abilities   AbilitiesConfig       `yaml:"abilities"`
	Movement    MovementConfig        `yaml:"movement"`
	Environment EnvironmentConfig     `yaml:"environment"`
	PestTypes   map[string]PestTraits `yaml:"pest_types"`
	Session     SessionConfig         `yaml:"session"`
	Telemetry   TelemetryConfig       `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SimulationConfig holds tick rate and the defended target.
type SimulationConfig struct {
	TickMs int64     `yaml:"tick_ms"`
	Seed   int64     `yaml:"seed"` // 0 = time-based
	Target PointYAML `yaml:"target"`
}

// PointYAML is a world-space x/z point.
type PointYAML struct {
	X float64 `yaml:"x"`
	Z float64 `yaml:"z"`
}

// HeatmapConfig holds spatial heatmap parameters.
type HeatmapConfig struct {
	CellSize          float64 `yaml:"cell_size"`
	TTLMs             int64   `yaml:"ttl_ms"`
	CompactIntervalMs int64   `yaml:"compact_interval_ms"`
	HotRadius         float64 `yaml:"hot_radius"`
	HotIntensity      int     `yaml:"hot_intensity"` // zone is hot when hits exceed this
}

// ProfileConfig holds player profile window parameters.
type ProfileConfig struct {
	Window            int     `yaml:"window"`
	AngleBucketDeg    float64 `yaml:"angle_bucket_deg"`
	TopAngles         int     `yaml:"top_angles"`
	AggressionRateCap float64 `yaml:"aggression_rate_cap"` // sprays/sec mapped to aggression 1.0
}

// StrategyConfig holds strategy selection and per-strategy behavior parameters.
type StrategyConfig struct {
	MinIntervalMs       int64   `yaml:"min_interval_ms"`
	MaxIntervalMs       int64   `yaml:"max_interval_ms"`
	LowHealth           float64 `yaml:"low_health"`
	RetreatWeight       float64 `yaml:"retreat_weight"`
	HighAccuracy        float64 `yaml:"high_accuracy"`
	AmbushChance        float64 `yaml:"ambush_chance"`
	FastHitAndRunWeight float64 `yaml:"fast_hit_and_run_weight"`
	FlankMinDistance    float64 `yaml:"flank_min_distance"`
	FlankMaxDistance    float64 `yaml:"flank_max_distance"`
	FlankArriveDistance float64 `yaml:"flank_arrive_distance"`
	RetreatDistance     float64 `yaml:"retreat_distance"`
	RetreatSpeed        float64 `yaml:"retreat_speed"`
	AmbushSpeed         float64 `yaml:"ambush_speed"`
	AmbushNightOpacity  float64 `yaml:"ambush_night_opacity"`
	AmbushBreakChance   float64 `yaml:"ambush_break_chance"`
	AmbushBreakSpeed    float64 `yaml:"ambush_break_speed"`
	SwarmRadius         float64 `yaml:"swarm_radius"`
	SwarmMinNeighbors   int     `yaml:"swarm_min_neighbors"`
	SwarmCentroidScale  float64 `yaml:"swarm_centroid_scale"`
	SwarmSpeed          float64 `yaml:"swarm_speed"`
	HitApproachMs       int64   `yaml:"hit_approach_ms"`
	HitRetreatMs        int64   `yaml:"hit_retreat_ms"`
	HitRetreatSpeed     float64 `yaml:"hit_retreat_speed"`
	HitRetreatDistance  float64 `yaml:"hit_retreat_distance"`
	CircleStepRad       float64 `yaml:"circle_step_rad"`
	CircleMinRadius     float64 `yaml:"circle_min_radius"`
	BurrowChance        float64 `yaml:"burrow_chance"`
	BurrowMinMs         int64   `yaml:"burrow_min_ms"`
	BurrowMaxMs         int64   `yaml:"burrow_max_ms"`
	BurrowSpeed         float64 `yaml:"burrow_speed"`
	EmergeMinOffset     float64 `yaml:"emerge_min_offset"`
	EmergeMaxOffset     float64 `yaml:"emerge_max_offset"`
}

// SwarmConfig holds grouping and formation parameters.
type SwarmConfig struct {
	Radius          float64 `yaml:"radius"`
	Spacing         float64 `yaml:"spacing"`
	WedgeAngleDeg   float64 `yaml:"wedge_angle_deg"`
	LineMaxMembers  int     `yaml:"line_max_members"`
	WedgeMaxMembers int     `yaml:"wedge_max_members"`
}

// AbilitiesConfig holds special ability parameters.
type AbilitiesConfig struct {
	MaxCooldownMs      int64   `yaml:"max_cooldown_ms"`
	CompactIntervalMs  int64   `yaml:"compact_interval_ms"`
	HealRadius         float64 `yaml:"heal_radius"`
	HealInjuredRatio   float64 `yaml:"heal_injured_ratio"`
	HealFraction       float64 `yaml:"heal_fraction"`
	HealCastMs         int64   `yaml:"heal_cast_ms"`
	TrapDurationMs     int64   `yaml:"trap_duration_ms"`
	TrapRadius         float64 `yaml:"trap_radius"`
	BerserkHealthRatio float64 `yaml:"berserk_health_ratio"`
	BerserkSpeed       float64 `yaml:"berserk_speed"`
	BerserkDamage      float64 `yaml:"berserk_damage"`
	BerserkDurationMs  int64   `yaml:"berserk_duration_ms"`
	SpawnCount         int     `yaml:"spawn_count"`
	SpawnPopulationCap int     `yaml:"spawn_population_cap"`
	TeleportRadius     float64 `yaml:"teleport_radius"`
	TeleportCandidates int     `yaml:"teleport_candidates"`
	ShieldRadius       float64 `yaml:"shield_radius"`
	ShieldMinAllies    int     `yaml:"shield_min_allies"`
	ShieldReduction    float64 `yaml:"shield_reduction"`
	ShieldDurationMs   int64   `yaml:"shield_duration_ms"`
}

// MovementConfig holds movement blender weights.
type MovementConfig struct {
	AvoidRadius        float64 `yaml:"avoid_radius"`
	AvoidWeight        float64 `yaml:"avoid_weight"`
	AvoidSpeed         float64 `yaml:"avoid_speed"`
	FlankWindowDeg     float64 `yaml:"flank_window_deg"`
	FlankWeight        float64 `yaml:"flank_weight"`
	FlankSpeed         float64 `yaml:"flank_speed"`
	ZigzagPeriodMs     int64   `yaml:"zigzag_period_ms"`
	ZigzagAmplitudeRad float64 `yaml:"zigzag_amplitude_rad"`
}

// EnvironmentConfig holds weather, time of day, season and decoration multipliers.
type EnvironmentConfig struct {
	RainFlyingSpeed        float64 `yaml:"rain_flying_speed"`
	RainMiteSpeed          float64 `yaml:"rain_mite_speed"`
	WindTinyAmplitude      float64 `yaml:"wind_tiny_amplitude"`
	WindPeriodMs           int64   `yaml:"wind_period_ms"`
	FogOpacity             float64 `yaml:"fog_opacity"`
	FogSpeed               float64 `yaml:"fog_speed"`
	NightNocturnalSpeed    float64 `yaml:"night_nocturnal_speed"`
	NightNocturnalDamage   float64 `yaml:"night_nocturnal_damage"`
	NightOtherSpeed        float64 `yaml:"night_other_speed"`
	TwilightSpeed          float64 `yaml:"twilight_speed"`
	WinterMiteHeal         float64 `yaml:"winter_mite_heal"`
	WinterOtherSpeed       float64 `yaml:"winter_other_speed"`
	SummerHeatSpeed        float64 `yaml:"summer_heat_speed"`
	SummerHeatDamage       float64 `yaml:"summer_heat_damage"`
	DecorationRadius       float64 `yaml:"decoration_radius"`
	DecorationSlowPerBonus float64 `yaml:"decoration_slow_per_bonus"`
	DecorationMinSpeed     float64 `yaml:"decoration_min_speed"`
}

// PestTraits flags how a pest type reacts to the environment.
type PestTraits struct {
	Flying       bool `yaml:"flying"`
	Tiny         bool `yaml:"tiny"`
	Nocturnal    bool `yaml:"nocturnal"`
	Crepuscular  bool `yaml:"crepuscular"` // boosted at dawn and dusk
	HeatTolerant bool `yaml:"heat_tolerant"`
}

// SessionConfig drives the synthetic headless session (spawner + scripted player).
type SessionConfig struct {
	InitialAgents   int               `yaml:"initial_agents"`
	MaxAgents       int               `yaml:"max_agents"`
	SpawnIntervalMs int64             `yaml:"spawn_interval_ms"`
	SpawnMinRadius  float64           `yaml:"spawn_min_radius"`
	SpawnMaxRadius  float64           `yaml:"spawn_max_radius"`
	ReachDistance   float64           `yaml:"reach_distance"`
	BaseSpeed       float64           `yaml:"base_speed"`
	MaxHealth       float64           `yaml:"max_health"`
	PlayerAccuracy  float64           `yaml:"player_accuracy"`
	PlayerRange     float64           `yaml:"player_range"`
	SprayIntervalMs int64             `yaml:"spray_interval_ms"`
	SprayDamage     float64           `yaml:"spray_damage"`
	WeatherCycle    []string          `yaml:"weather_cycle"`
	WeatherPeriodMs int64             `yaml:"weather_period_ms"`
	StartHour       float64           `yaml:"start_hour"`
	MinutesPerTick  float64           `yaml:"minutes_per_tick"`
	Season          string            `yaml:"season"`
	Decorations     []DecorationYAML  `yaml:"decorations"`
	Archetypes      []ArchetypeConfig `yaml:"archetypes"`
}

// DecorationYAML places a defensive decoration.
type DecorationYAML struct {
	X            float64 `yaml:"x"`
	Z            float64 `yaml:"z"`
	DefenseBonus float64 `yaml:"defense_bonus"`
}

// ArchetypeConfig is a spawn template for the synthetic session.
type ArchetypeConfig struct {
	Type        string  `yaml:"type"`
	Behavior    string  `yaml:"behavior"`
	Ability     string  `yaml:"ability"`
	CooldownMs  int64   `yaml:"cooldown_ms"`
	Camouflaged bool    `yaml:"camouflaged"`
	Weight      float64 `yaml:"weight"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindowTicks     int     `yaml:"stats_window_ticks"`
	PerfCollectorWindow  int     `yaml:"perf_collector_window"`
	LogTransitionsPerSec float64 `yaml:"log_transitions_per_sec"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	ArchetypeWeight float64 // sum of archetype weights
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
// Tests and independent controllers use this instead of the global.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// validate rejects settings that would break timer or window arithmetic.
func (c *Config) validate() error {
	if c.Heatmap.CellSize <= 0 {
		return fmt.Errorf("heatmap.cell_size must be positive, got %v", c.Heatmap.CellSize)
	}
	if c.Profile.Window < 1 {
		return fmt.Errorf("profile.window must be at least 1, got %d", c.Profile.Window)
	}
	if c.Strategy.MaxIntervalMs < c.Strategy.MinIntervalMs {
		return fmt.Errorf("strategy.max_interval_ms (%d) below min_interval_ms (%d)",
			c.Strategy.MaxIntervalMs, c.Strategy.MinIntervalMs)
	}
	if c.Strategy.BurrowMaxMs < c.Strategy.BurrowMinMs {
		return fmt.Errorf("strategy.burrow_max_ms (%d) below burrow_min_ms (%d)",
			c.Strategy.BurrowMaxMs, c.Strategy.BurrowMinMs)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	if c.PestTypes == nil {
		c.PestTypes = make(map[string]PestTraits)
	}

	c.Derived.ArchetypeWeight = 0
	for i := range c.Session.Archetypes {
		arch := &c.Session.Archetypes[i]
		if arch.Weight <= 0 {
			arch.Weight = 1
		}
		if arch.Behavior == "" {
			arch.Behavior = "normal"
		}
		c.Derived.ArchetypeWeight += arch.Weight
	}
}

// Traits returns the environment traits for a pest type (zero value if unknown).
func (c *Config) Traits(pestType string) PestTraits {
	return c.PestTypes[pestType]
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
