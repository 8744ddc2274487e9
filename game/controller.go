// Package game runs the swarm AI: the Controller tick pipeline and the
// synthetic Session used by the headless runner and the tuner.
package game

import (
	"log/slog"
	"math"
	"math/rand"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/swarmmind/components"
	"github.com/pthm-cable/swarmmind/config"
	"github.com/pthm-cable/swarmmind/systems"
	"github.com/pthm-cable/swarmmind/telemetry"
)

// Options configures a Controller.
type Options struct {
	Seed        int64 // 0 = simulation.seed, then time-based
	Logger      *slog.Logger
	Metrics     *telemetry.Metrics
	Perf        *telemetry.PerfCollector
	Output      *telemetry.OutputManager
	LogStats    bool
	SnapshotDir string // save a snapshot on every bookmark when set

	// StatsCallback receives every flushed stats window.
	StatsCallback func(telemetry.WindowStats)
}

// TickInput is everything the external game hands the controller for one tick.
type TickInput struct {
	Now         int64 // ms, caller-supplied clock
	Sprays      []components.SprayEvent
	Actions     []components.PlayerAction
	Env         components.EnvironmentSnapshot
	Agents      []*components.Agent
	Decorations []components.Decoration

	// Reference is the player/camera position used for flank detection.
	Reference components.Vec2

	// Target overrides simulation.target for this tick when HasTarget is set.
	Target    components.Vec2
	HasTarget bool
}

// TickOutput is the controller's result for one tick.
type TickOutput struct {
	Tick      int64
	Now       int64
	Intents   []components.Intent
	Abilities []components.AbilityIntent
	Snapshots []components.BehaviorSnapshot
	Swept     []components.AgentID // agents whose strategy state was released
}

// Controller owns every table of the swarm AI and runs the tick pipeline.
// It is not safe for concurrent use; independent controllers share nothing.
type Controller struct {
	cfg       *config.Config
	seed      int64
	sessionID uuid.UUID
	rng       *rand.Rand
	logger    *slog.Logger

	heat       *systems.Heatmap
	profile    *systems.BehaviorProfile
	strategies *systems.StrategyMachine
	swarm      *systems.SwarmCoordinator
	abilities  *systems.AbilityScheduler
	blender    *systems.MovementBlender
	env        *systems.EnvironmentPass
	grid       *systems.SpatialGrid

	target  components.Vec2
	frame   systems.Frame
	tick    int64
	lastNow int64
	last    TickOutput
	grouped int

	// Telemetry
	collector        *telemetry.Collector
	lifetime         *telemetry.LifetimeTracker
	bookmarks        *telemetry.BookmarkDetector
	metrics          *telemetry.Metrics
	perf             *telemetry.PerfCollector
	output           *telemetry.OutputManager
	logStats         bool
	snapshotDir      string
	statsCallback    func(telemetry.WindowStats)
	transitionLimit  *rate.Limiter
	droppedTransLogs int
}

// NewController creates a controller with empty tables.
func NewController(cfg *config.Config, opts Options) *Controller {
	seed := opts.Seed
	if seed == 0 {
		seed = cfg.Simulation.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Controller{
		cfg:       cfg,
		seed:      seed,
		sessionID: uuid.New(),
		rng:       rand.New(rand.NewSource(seed)),
		logger:    logger,

		heat:       systems.NewHeatmap(cfg.Heatmap),
		profile:    systems.NewBehaviorProfile(cfg.Profile),
		strategies: systems.NewStrategyMachine(cfg.Strategy),
		swarm:      systems.NewSwarmCoordinator(cfg.Swarm),
		abilities:  systems.NewAbilityScheduler(cfg.Abilities),
		blender:    systems.NewMovementBlender(cfg.Movement),
		env:        systems.NewEnvironmentPass(cfg.Environment, cfg.PestTypes),
		grid:       systems.NewSpatialGrid(gridCellSize(cfg)),

		target: components.V(cfg.Simulation.Target.X, cfg.Simulation.Target.Z),

		collector:     telemetry.NewCollector(cfg.Telemetry.StatsWindowTicks, cfg.Simulation.TickMs),
		lifetime:      telemetry.NewLifetimeTracker(),
		bookmarks:     telemetry.NewBookmarkDetector(10),
		metrics:       opts.Metrics,
		perf:          opts.Perf,
		output:        opts.Output,
		logStats:      opts.LogStats,
		snapshotDir:   opts.SnapshotDir,
		statsCallback: opts.StatsCallback,
	}
	c.transitionLimit = newTransitionLimiter(cfg.Telemetry.LogTransitionsPerSec)
	c.strategies.OnTransition = c.onTransition

	c.logger.Debug("controller created",
		"session", c.sessionID.String(),
		"seed", c.seed,
	)
	return c
}

// gridCellSize picks the largest neighbour query radius so every query
// touches at most the 3x3 block around the agent.
func gridCellSize(cfg *config.Config) float64 {
	size := cfg.Swarm.Radius
	for _, r := range []float64{
		cfg.Strategy.SwarmRadius,
		cfg.Abilities.HealRadius,
		cfg.Abilities.ShieldRadius,
	} {
		size = math.Max(size, r)
	}
	if size <= 0 {
		size = 1
	}
	return size
}

// Tick runs one controller step: ingest player input, then decide every live
// agent in slice order, then compact and sweep.
func (c *Controller) Tick(in TickInput) TickOutput {
	start := time.Now()
	c.tick++
	c.lastNow = in.Now

	c.perf.StartPhase(telemetry.PhaseIngest)
	for _, s := range in.Sprays {
		c.heat.RecordHit(s.Position, s.Timestamp)
		c.record(telemetry.NewSprayEvent(c.tick))
	}
	for _, a := range in.Actions {
		c.profile.RecordAction(a)
	}

	target := c.target
	if in.HasTarget {
		target = in.Target
	}
	c.frame = systems.Frame{
		Now:       in.Now,
		Tick:      c.tick,
		Target:    target,
		Reference: in.Reference,
		Env:       in.Env.Normalized(),
		Agents:    in.Agents,
		Grid:      c.grid,
		Heat:      c.heat,
		Profile:   c.profile.Current(),
		Rng:       c.rng,
	}

	c.perf.StartPhase(telemetry.PhaseSpatialGrid)
	c.grid.Rebuild(in.Agents)

	c.perf.StartPhase(telemetry.PhaseAgents)
	out := TickOutput{Tick: c.tick, Now: in.Now}
	c.grouped = 0
	for i, agent := range in.Agents {
		if !agent.Alive() {
			continue
		}
		c.stepAgent(i, agent, in.Decorations, &out)
	}

	c.perf.StartPhase(telemetry.PhaseCompaction)
	if n := c.heat.MaybeCompact(in.Now); n > 0 {
		c.logger.Debug("heatmap compacted", "removed", n, "cells", c.heat.Len())
	}
	c.abilities.MaybeCompact(in.Now)
	for _, id := range c.strategies.Sweep(c.tick) {
		c.abilities.Forget(id)
		c.logReleased(id, c.lifetime.Remove(uint32(id)))
		c.record(telemetry.NewSweepEvent(c.tick, uint32(id)))
		out.Swept = append(out.Swept, id)
	}

	c.last = out
	if c.metrics != nil {
		c.metrics.ObserveTick(time.Since(start), len(out.Intents), len(c.heat.ActiveZones(in.Now)), c.heat.Len())
	}

	c.perf.StartPhase(telemetry.PhaseTelemetry)
	c.flushTelemetry()
	return out
}

// stepAgent runs strategy, swarm, ability, blend and environment for one agent.
func (c *Controller) stepAgent(index int, agent *components.Agent, decorations []components.Decoration, out *TickOutput) {
	f := &c.frame
	id := uint32(agent.ID)
	c.lifetime.Track(id, c.tick)

	// Strategies and the environment lower opacity from a fully visible start.
	agent.Opacity = 1

	c.strategies.Evaluate(f, agent)
	so := c.strategies.Run(f, agent)
	if so.HasDelta {
		old := agent.Position
		agent.Position = r2.Add(agent.Position, so.PositionDelta)
		c.grid.Move(index, old)
	}

	var steer *systems.SwarmSteer
	role := components.RoleNone
	agent.SwarmGroupID = 0
	if agent.Behavior.IsSwarmType() {
		if g := c.swarm.ComputeGroup(f, agent); g != nil {
			s := c.swarm.Steer(g, agent)
			steer = &s
			role = s.Role
			agent.SwarmGroupID = g.GroupID
			c.grouped++
		}
	}

	if ai, ok := c.abilities.TryTrigger(f, agent); ok {
		out.Abilities = append(out.Abilities, ai)
		c.lifetime.RecordAbility(id)
		c.record(telemetry.NewAbilityEvent(c.tick, id, string(ai.Kind)))
	}

	mv := c.blender.Blend(f, systems.BlendInput{Agent: agent, Target: so.Target, Swarm: steer})
	mod := c.env.Modifiers(agent, f.Env, decorations, f.Now)

	speedMul := so.SpeedMul * mv.SpeedMul * mod.SpeedMul
	agent.Speed = agent.BaseSpeed * speedMul
	agent.Opacity = math.Max(0, math.Min(1, agent.Opacity*mod.OpacityMul))
	agent.Damage = mod.DamageMul

	out.Intents = append(out.Intents, components.Intent{
		AgentID:       agent.ID,
		Direction:     mv.Direction,
		SpeedMul:      speedMul,
		AIHint:        agent.AIHint,
		Tag:           mv.Tag,
		Role:          role,
		Strategy:      agent.Strategy,
		PositionDelta: so.PositionDelta,
		HasDelta:      so.HasDelta,
		Hidden:        so.Hidden,
		Heal:          mod.Heal,
	})
	out.Snapshots = append(out.Snapshots, components.BehaviorSnapshot{
		Tick:       c.tick,
		AgentID:    id,
		Type:       string(agent.Type),
		X:          agent.Position.X,
		Z:          agent.Position.Y,
		Health:     agent.Health,
		Strategy:   agent.Strategy.String(),
		Tag:        mv.Tag.String(),
		Role:       role.String(),
		GroupID:    agent.SwarmGroupID,
		Hint:       agent.AIHint,
		SpeedMul:   speedMul,
		Opacity:    agent.Opacity,
		Hidden:     so.Hidden,
		Ability:    string(agent.Ability),
		NextEvalMs: agent.NextStrategyChangeAt,
	})

	c.lifetime.Observe(id, c.tick, mv.Tag.String(), steer != nil, so.Hidden)
	c.record(telemetry.NewIntentEvent(c.tick, id, mv.Tag.String(), so.Hidden))
}

// Reset clears every table and restarts the RNG from the original seed.
// A new session id is issued.
func (c *Controller) Reset() {
	c.heat.Reset()
	c.profile.Reset()
	c.strategies.Reset()
	c.abilities.Reset()
	c.grid.Clear()

	c.rng = rand.New(rand.NewSource(c.seed))
	c.sessionID = uuid.New()
	c.frame = systems.Frame{}
	c.tick = 0
	c.lastNow = 0
	c.last = TickOutput{}
	c.grouped = 0

	c.collector.Reset()
	c.lifetime.Reset()
	c.bookmarks.Reset()
	c.droppedTransLogs = 0

	c.logger.Info("controller reset", "session", c.sessionID.String())
}

// SetStrategy forces a strategy on agent, bypassing the decision table.
func (c *Controller) SetStrategy(agent *components.Agent, kind components.StrategyKind) {
	f := c.frame
	f.Tick = c.tick
	f.Now = c.lastNow
	if f.Rng == nil {
		f.Rng = c.rng
	}
	c.strategies.SetStrategy(&f, agent, kind)
}

// TickCount returns the number of ticks run since creation or the last Reset.
func (c *Controller) TickCount() int64 {
	return c.tick
}

// SessionID identifies this controller run.
func (c *Controller) SessionID() uuid.UUID {
	return c.sessionID
}

// Seed returns the RNG seed in use.
func (c *Controller) Seed() int64 {
	return c.seed
}

// Config returns the controller configuration.
func (c *Controller) Config() *config.Config {
	return c.cfg
}

// Target returns the default defended target.
func (c *Controller) Target() components.Vec2 {
	return c.target
}

// Last returns the output of the most recent tick.
func (c *Controller) Last() TickOutput {
	return c.last
}

// Profile returns the current player profile.
func (c *Controller) Profile() systems.PlayerProfile {
	return c.profile.Current()
}

// ActiveZones returns a copy of the heat zones live at the last tick.
func (c *Controller) ActiveZones() []systems.HeatZone {
	return slices.Clone(c.heat.ActiveZones(c.lastNow))
}

// IsHot reports whether pos is near a hot zone at the last tick.
func (c *Controller) IsHot(pos components.Vec2) bool {
	return c.heat.IsHot(pos, c.lastNow)
}

// Strategy returns the tracked strategy state of an agent.
func (c *Controller) Strategy(id components.AgentID) (components.Strategy, bool) {
	return c.strategies.State(id)
}

// TrackedAgents returns how many agents hold strategy state.
func (c *Controller) TrackedAgents() int {
	return c.strategies.Len()
}

// Lifetime returns the lifetime tallies of an agent, or nil.
func (c *Controller) Lifetime(id components.AgentID) *telemetry.LifetimeStats {
	return c.lifetime.Get(uint32(id))
}
