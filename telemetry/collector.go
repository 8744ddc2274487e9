package telemetry

import "github.com/pthm-cable/swarmmind/components"

// Collector accumulates events within tick windows and produces WindowStats.
type Collector struct {
	windowDurationTicks int64
	tickMs              int64

	// Current window tracking
	windowStartTick int64

	// Event counters for current window
	sprays      int
	transitions map[string]int // keyed by target strategy
	abilities   map[string]int
	tags        map[string]int
	intents     int
	hidden      int
	swept       int
}

// NewCollector creates a new stats collector.
// windowTicks: how many controller ticks each stats window lasts
// tickMs: milliseconds per tick (used for tick-to-time conversion)
func NewCollector(windowTicks int, tickMs int64) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{
		windowDurationTicks: int64(windowTicks),
		tickMs:              tickMs,
		transitions:         make(map[string]int),
		abilities:           make(map[string]int),
		tags:                make(map[string]int),
	}
}

// Record counts a single event into the current window.
func (c *Collector) Record(e Event) {
	if c == nil {
		return
	}
	switch e.Type {
	case EventSpray:
		c.sprays++
	case EventTransition:
		c.transitions[e.To]++
	case EventAbility:
		c.abilities[e.Ability]++
	case EventIntent:
		c.intents++
		c.tags[e.Tag]++
		if e.Hidden {
			c.hidden++
		}
	case EventSweep:
		c.swept++
	}
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int64) bool {
	if c == nil {
		return false
	}
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Sample is the controller state observed at window end.
type Sample struct {
	Agents      int
	Grouped     int
	Healths     []float64 // health ratios of live agents
	ActiveZones int
	HottestZone int // hit count of the hottest zone
	HeatCells   int // heatmap cells currently stored, live or not
	Aggression  float64
	Accuracy    float64
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int64, s Sample) WindowStats {
	totalTransitions := 0
	for _, n := range c.transitions {
		totalTransitions += n
	}
	totalAbilities := 0
	for _, n := range c.abilities {
		totalAbilities += n
	}

	healthMean, healthP10, healthP50, healthP90 := ComputeHealthStats(s.Healths)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeMs:       currentTick * c.tickMs,

		Agents:      s.Agents,
		Grouped:     s.Grouped,
		ActiveZones: s.ActiveZones,
		HottestZone: s.HottestZone,
		HeatCells:   s.HeatCells,
		Aggression:  s.Aggression,
		Accuracy:    s.Accuracy,

		Sprays:  c.sprays,
		Intents: c.intents,
		Hidden:  c.hidden,
		Swept:   c.swept,

		Transitions:         totalTransitions,
		ToDirectAttack:      c.transitions[components.StrategyDirectAttack.String()],
		ToFlank:             c.transitions[components.StrategyFlank.String()],
		ToRetreatHeal:       c.transitions[components.StrategyRetreatHeal.String()],
		ToWaitAmbush:        c.transitions[components.StrategyWaitAmbush.String()],
		ToSwarmCoordinate:   c.transitions[components.StrategySwarmCoordinate.String()],
		ToHitAndRun:         c.transitions[components.StrategyHitAndRun.String()],
		ToCircleStrafe:      c.transitions[components.StrategyCircleStrafe.String()],
		ToUndergroundEmerge: c.transitions[components.StrategyUndergroundEmerge.String()],

		Abilities: totalAbilities,
		Heals:     c.abilities[string(components.AbilityHealer)],
		Traps:     c.abilities[string(components.AbilityTrapper)],
		Berserks:  c.abilities[string(components.AbilityBerserker)],
		Spawns:    c.abilities[string(components.AbilitySpawner)],
		Teleports: c.abilities[string(components.AbilityTeleporter)],
		Shields:   c.abilities[string(components.AbilityShield)],

		TagNormal:      c.tags[components.TagNormal.String()],
		TagAvoiding:    c.tags[components.TagAvoiding.String()],
		TagCoordinated: c.tags[components.TagCoordinated.String()],
		TagFlanking:    c.tags[components.TagFlanking.String()],
		TagZigzag:      c.tags[components.TagZigzag.String()],

		HealthMean: healthMean,
		HealthP10:  healthP10,
		HealthP50:  healthP50,
		HealthP90:  healthP90,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.sprays = 0
	c.intents = 0
	c.hidden = 0
	c.swept = 0
	clear(c.transitions)
	clear(c.abilities)
	clear(c.tags)

	return stats
}

// Reset discards the current window and restarts counting at tick 0.
func (c *Collector) Reset() {
	if c == nil {
		return
	}
	c.windowStartTick = 0
	c.sprays = 0
	c.intents = 0
	c.hidden = 0
	c.swept = 0
	clear(c.transitions)
	clear(c.abilities)
	clear(c.tags)
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int64 {
	return c.windowDurationTicks
}
