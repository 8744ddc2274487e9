package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/swarmmind/components"
	"github.com/pthm-cable/swarmmind/config"
)

// AI hints written to Agent.AIHint by the strategy behaviors.
const (
	HintAttack       = "attack"
	HintFlank        = "flank"
	HintFlankStrike  = "flank_strike"
	HintRetreat      = "retreat"
	HintAmbush       = "ambush"
	HintAmbushStrike = "ambush_strike"
	HintAmbushCharge = "ambush_charge"
	HintSwarm        = "swarm"
	HintSwarmGather  = "swarm_gather"
	HintHitApproach  = "hit_approach"
	HintHitRetreat   = "hit_retreat"
	HintStrafe       = "strafe"
	HintSurface      = "surface"
	HintBurrow       = "burrow"
	HintUnderground  = "underground"
	HintEmerge       = "emerge"
)

// StrategyOutput is what the active behavior wants this tick.
type StrategyOutput struct {
	Target        components.Vec2
	SpeedMul      float64
	PositionDelta components.Vec2 // valid when HasDelta
	HasDelta      bool
	Hidden        bool
}

// TransitionFunc observes strategy changes.
type TransitionFunc func(agent *components.Agent, from, to components.StrategyKind)

// Picks used by the decision table.
var (
	accuratePicks = []components.StrategyKind{
		components.StrategyFlank,
		components.StrategyCircleStrafe,
		components.StrategyHitAndRun,
		components.StrategyWaitAmbush,
	}
	defaultPicks = []components.StrategyKind{
		components.StrategyDirectAttack,
		components.StrategyFlank,
		components.StrategyHitAndRun,
		components.StrategyCircleStrafe,
	}
)

// StrategyMachine holds per-agent strategy state in an ECS arena.
// Each agent is one entity carrying a Strategy component plus the variant
// component of its active strategy.
type StrategyMachine struct {
	cfg config.StrategyConfig

	world       *ecs.World
	strategies  *ecs.Map1[components.Strategy]
	flank       *ecs.Map[components.FlankState]
	ambush      *ecs.Map[components.AmbushState]
	hitRun      *ecs.Map[components.HitAndRunState]
	circle      *ecs.Map[components.CircleState]
	underground *ecs.Map[components.UndergroundState]
	filter      *ecs.Filter1[components.Strategy]

	index map[components.AgentID]ecs.Entity

	// OnTransition is called after an agent switches strategy.
	OnTransition TransitionFunc

	neighbors []Neighbor
}

// NewStrategyMachine creates an empty arena.
func NewStrategyMachine(cfg config.StrategyConfig) *StrategyMachine {
	m := &StrategyMachine{cfg: cfg}
	m.initWorld()
	return m
}

func (m *StrategyMachine) initWorld() {
	world := ecs.NewWorld()
	m.world = world
	m.strategies = ecs.NewMap1[components.Strategy](world)
	m.flank = ecs.NewMap[components.FlankState](world)
	m.ambush = ecs.NewMap[components.AmbushState](world)
	m.hitRun = ecs.NewMap[components.HitAndRunState](world)
	m.circle = ecs.NewMap[components.CircleState](world)
	m.underground = ecs.NewMap[components.UndergroundState](world)
	m.filter = ecs.NewFilter1[components.Strategy](world)
	m.index = make(map[components.AgentID]ecs.Entity)
}

// Len returns the number of agents with strategy state.
func (m *StrategyMachine) Len() int {
	return len(m.index)
}

// State returns a copy of the agent's strategy component.
func (m *StrategyMachine) State(id components.AgentID) (components.Strategy, bool) {
	e, ok := m.index[id]
	if !ok {
		return components.Strategy{}, false
	}
	return *m.strategies.Get(e), true
}

// FlankTarget returns the agent's pending flank point, if any.
func (m *StrategyMachine) FlankTarget(id components.AgentID) (components.Vec2, bool) {
	e, ok := m.index[id]
	if !ok || !m.flank.Has(e) {
		return components.Vec2{}, false
	}
	fs := m.flank.Get(e)
	return fs.Target, fs.HasTarget
}

// Reset discards every agent's state.
func (m *StrategyMachine) Reset() {
	m.initWorld()
}

// Forget discards one agent's state.
func (m *StrategyMachine) Forget(id components.AgentID) {
	if e, ok := m.index[id]; ok {
		m.world.RemoveEntity(e)
		delete(m.index, id)
	}
}

// Sweep removes state for agents not evaluated during tick and returns their ids.
func (m *StrategyMachine) Sweep(tick int64) []components.AgentID {
	// First pass: collect stale entities (must complete before modifying)
	type stale struct {
		entity ecs.Entity
		id     components.AgentID
	}
	var toRemove []stale

	query := m.filter.Query()
	for query.Next() {
		st := query.Get()
		if st.LastSeenTick < tick {
			toRemove = append(toRemove, stale{entity: query.Entity(), id: st.Agent})
		}
	}

	// Second pass: remove entities (query iteration complete)
	ids := make([]components.AgentID, 0, len(toRemove))
	for _, s := range toRemove {
		m.world.RemoveEntity(s.entity)
		delete(m.index, s.id)
		ids = append(ids, s.id)
	}
	return ids
}

// entity returns the agent's entity, creating it in direct_attack due for evaluation now.
func (m *StrategyMachine) entity(f *Frame, agent *components.Agent) ecs.Entity {
	if e, ok := m.index[agent.ID]; ok {
		return e
	}
	e := m.strategies.NewEntity(&components.Strategy{
		Agent:        agent.ID,
		Kind:         components.StrategyDirectAttack,
		NextChangeAt: f.Now,
		LastSeenTick: f.Tick,
	})
	m.index[agent.ID] = e
	return e
}

// Evaluate re-picks the agent's strategy when its timer has elapsed.
// Reports whether the strategy changed.
func (m *StrategyMachine) Evaluate(f *Frame, agent *components.Agent) bool {
	e := m.entity(f, agent)
	st := m.strategies.Get(e)
	st.LastSeenTick = f.Tick

	if f.Now < st.NextChangeAt {
		agent.Strategy = st.Kind
		agent.NextStrategyChangeAt = st.NextChangeAt
		return false
	}

	return m.transition(f, e, agent, m.choose(f, agent))
}

// SetStrategy forces kind on the agent and restarts its evaluation timer.
func (m *StrategyMachine) SetStrategy(f *Frame, agent *components.Agent, kind components.StrategyKind) {
	e := m.entity(f, agent)
	m.strategies.Get(e).LastSeenTick = f.Tick
	m.transition(f, e, agent, kind)
}

// transition switches the entity to next and schedules the next evaluation.
func (m *StrategyMachine) transition(f *Frame, e ecs.Entity, agent *components.Agent, next components.StrategyKind) bool {
	from := m.strategies.Get(e).Kind
	nextAt := f.Now + m.interval(f)

	if next != from {
		m.removeVariant(e, from)
		m.addVariant(e, next)
	}
	// Structural changes move the entity; fetch the component afterwards.
	st := m.strategies.Get(e)
	st.Kind = next
	st.NextChangeAt = nextAt

	agent.Strategy = st.Kind
	agent.NextStrategyChangeAt = st.NextChangeAt

	if next != from && m.OnTransition != nil {
		m.OnTransition(agent, from, next)
	}
	return next != from
}

// interval draws the time until the next evaluation.
func (m *StrategyMachine) interval(f *Frame) int64 {
	span := m.cfg.MaxIntervalMs - m.cfg.MinIntervalMs
	if span <= 0 {
		return m.cfg.MinIntervalMs
	}
	return m.cfg.MinIntervalMs + f.Rng.Int63n(span+1)
}

// choose walks the priority-ordered decision table.
func (m *StrategyMachine) choose(f *Frame, agent *components.Agent) components.StrategyKind {
	rng := f.Rng
	night := f.Env.TimeOfDay == components.TimeNight

	if agent.HealthRatio() < m.cfg.LowHealth {
		if rng.Float64() < m.cfg.RetreatWeight {
			return components.StrategyRetreatHeal
		}
		return components.StrategyHitAndRun
	}
	if f.Profile.Samples > 0 && f.Profile.Accuracy > m.cfg.HighAccuracy {
		return accuratePicks[rng.Intn(len(accuratePicks))]
	}
	if agent.Behavior == components.BehaviorSwarm || agent.Behavior == components.BehaviorSpreading {
		return components.StrategySwarmCoordinate
	}
	if agent.Behavior == components.BehaviorBurrowing || (night && agent.Camouflaged) {
		return components.StrategyUndergroundEmerge
	}
	if f.Env.Weather == components.WeatherFog || night {
		if rng.Float64() < m.cfg.AmbushChance {
			return components.StrategyWaitAmbush
		}
	}
	if agent.Behavior == components.BehaviorFast || agent.Behavior == components.BehaviorFlying {
		if rng.Float64() < m.cfg.FastHitAndRunWeight {
			return components.StrategyHitAndRun
		}
		return components.StrategyCircleStrafe
	}
	return defaultPicks[rng.Intn(len(defaultPicks))]
}

func (m *StrategyMachine) addVariant(e ecs.Entity, kind components.StrategyKind) {
	switch kind {
	case components.StrategyFlank:
		m.flank.Add(e, &components.FlankState{})
	case components.StrategyWaitAmbush:
		m.ambush.Add(e, &components.AmbushState{})
	case components.StrategyHitAndRun:
		m.hitRun.Add(e, &components.HitAndRunState{})
	case components.StrategyCircleStrafe:
		m.circle.Add(e, &components.CircleState{})
	case components.StrategyUndergroundEmerge:
		m.underground.Add(e, &components.UndergroundState{})
	}
}

func (m *StrategyMachine) removeVariant(e ecs.Entity, kind components.StrategyKind) {
	switch kind {
	case components.StrategyFlank:
		if m.flank.Has(e) {
			m.flank.Remove(e)
		}
	case components.StrategyWaitAmbush:
		if m.ambush.Has(e) {
			m.ambush.Remove(e)
		}
	case components.StrategyHitAndRun:
		if m.hitRun.Has(e) {
			m.hitRun.Remove(e)
		}
	case components.StrategyCircleStrafe:
		if m.circle.Has(e) {
			m.circle.Remove(e)
		}
	case components.StrategyUndergroundEmerge:
		if m.underground.Has(e) {
			m.underground.Remove(e)
		}
	}
}

// variant returns the entity's component from mp, adding a zero value if missing.
func variant[T any](mp *ecs.Map[T], e ecs.Entity) *T {
	if !mp.Has(e) {
		var zero T
		mp.Add(e, &zero)
	}
	return mp.Get(e)
}

// Run executes the active behavior for one tick.
func (m *StrategyMachine) Run(f *Frame, agent *components.Agent) StrategyOutput {
	e := m.entity(f, agent)
	switch m.strategies.Get(e).Kind {
	case components.StrategyFlank:
		return m.runFlank(f, agent, variant(m.flank, e))
	case components.StrategyRetreatHeal:
		return m.runRetreat(f, agent)
	case components.StrategyWaitAmbush:
		return m.runAmbush(f, agent, variant(m.ambush, e))
	case components.StrategySwarmCoordinate:
		return m.runSwarm(f, agent)
	case components.StrategyHitAndRun:
		return m.runHitAndRun(f, agent, variant(m.hitRun, e))
	case components.StrategyCircleStrafe:
		return m.runCircle(f, agent, variant(m.circle, e))
	case components.StrategyUndergroundEmerge:
		return m.runUnderground(f, agent, variant(m.underground, e))
	default:
		agent.AIHint = HintAttack
		return StrategyOutput{Target: f.Target, SpeedMul: 1}
	}
}

func (m *StrategyMachine) runFlank(f *Frame, agent *components.Agent, fs *components.FlankState) StrategyOutput {
	if !fs.HasTarget {
		angle := f.Rng.Float64() * 2 * math.Pi
		dist := m.cfg.FlankMinDistance + f.Rng.Float64()*(m.cfg.FlankMaxDistance-m.cfg.FlankMinDistance)
		fs.Target = r2.Add(f.Target, components.Polar(angle, dist))
		fs.HasTarget = true
	}
	if distance(agent.Position, fs.Target) < m.cfg.FlankArriveDistance {
		// Arrived: clear and strike the defended target; a new point is drawn next time.
		fs.HasTarget = false
		agent.AIHint = HintFlankStrike
		return StrategyOutput{Target: f.Target, SpeedMul: 1}
	}
	agent.AIHint = HintFlank
	return StrategyOutput{Target: fs.Target, SpeedMul: 1}
}

func (m *StrategyMachine) runRetreat(f *Frame, agent *components.Agent) StrategyOutput {
	away := bearing(f.Target, agent.Position) + math.Pi
	agent.AIHint = HintRetreat
	return StrategyOutput{
		Target:   r2.Add(f.Target, components.Polar(away, m.cfg.RetreatDistance)),
		SpeedMul: m.cfg.RetreatSpeed,
	}
}

func (m *StrategyMachine) runAmbush(f *Frame, agent *components.Agent, as *components.AmbushState) StrategyOutput {
	as.StrikeTick = false
	if as.Sprung {
		agent.AIHint = HintAmbushCharge
		return StrategyOutput{Target: f.Target, SpeedMul: 1}
	}
	if f.Rng.Float64() < m.cfg.AmbushBreakChance {
		as.Sprung = true
		as.StrikeTick = true
		agent.AIHint = HintAmbushStrike
		return StrategyOutput{Target: f.Target, SpeedMul: m.cfg.AmbushBreakSpeed}
	}
	if f.Env.TimeOfDay == components.TimeNight {
		agent.Opacity = math.Min(agent.Opacity, m.cfg.AmbushNightOpacity)
	}
	agent.AIHint = HintAmbush
	return StrategyOutput{Target: f.Target, SpeedMul: m.cfg.AmbushSpeed}
}

func (m *StrategyMachine) runSwarm(f *Frame, agent *components.Agent) StrategyOutput {
	m.neighbors = f.Neighbors(m.neighbors[:0], agent, m.cfg.SwarmRadius)
	if len(m.neighbors) < m.cfg.SwarmMinNeighbors {
		agent.AIHint = HintSwarmGather
		return StrategyOutput{Target: f.Target, SpeedMul: 1}
	}
	sum := agent.Position
	for _, n := range m.neighbors {
		sum = r2.Add(sum, n.Agent.Position)
	}
	centroid := r2.Scale(1/float64(len(m.neighbors)+1), sum)
	agent.AIHint = HintSwarm
	return StrategyOutput{
		Target:   r2.Add(f.Target, r2.Scale(m.cfg.SwarmCentroidScale, r2.Sub(centroid, f.Target))),
		SpeedMul: m.cfg.SwarmSpeed,
	}
}

func (m *StrategyMachine) runHitAndRun(f *Frame, agent *components.Agent, hs *components.HitAndRunState) StrategyOutput {
	if hs.PhaseEndsAt == 0 {
		hs.Phase = components.PhaseApproach
		hs.PhaseEndsAt = f.Now + m.cfg.HitApproachMs
	}
	if f.Now >= hs.PhaseEndsAt {
		if hs.Phase == components.PhaseApproach {
			hs.Phase = components.PhaseRetreat
			hs.PhaseEndsAt = f.Now + m.cfg.HitRetreatMs
		} else {
			hs.Phase = components.PhaseApproach
			hs.PhaseEndsAt = f.Now + m.cfg.HitApproachMs
		}
	}
	if hs.Phase == components.PhaseRetreat {
		away := unit(r2.Sub(agent.Position, f.Target), unitX)
		agent.AIHint = HintHitRetreat
		return StrategyOutput{
			Target:   r2.Add(agent.Position, r2.Scale(m.cfg.HitRetreatDistance, away)),
			SpeedMul: m.cfg.HitRetreatSpeed,
		}
	}
	agent.AIHint = HintHitApproach
	return StrategyOutput{Target: f.Target, SpeedMul: 1}
}

func (m *StrategyMachine) runCircle(f *Frame, agent *components.Agent, cs *components.CircleState) StrategyOutput {
	if !cs.Initialized {
		rel := r2.Sub(agent.Position, f.Target)
		cs.Radius = math.Max(r2.Norm(rel), m.cfg.CircleMinRadius)
		cs.Angle = heading(rel)
		cs.Initialized = true
	}
	cs.Angle = normalizeAngle(cs.Angle + m.cfg.CircleStepRad)
	agent.AIHint = HintStrafe
	return StrategyOutput{
		Target:   r2.Add(f.Target, components.Polar(cs.Angle, cs.Radius)),
		SpeedMul: 1,
	}
}

func (m *StrategyMachine) runUnderground(f *Frame, agent *components.Agent, us *components.UndergroundState) StrategyOutput {
	if us.Underground {
		if f.Now >= us.EmergeAt {
			us.Underground = false
			angle := f.Rng.Float64() * 2 * math.Pi
			dist := m.cfg.EmergeMinOffset + f.Rng.Float64()*(m.cfg.EmergeMaxOffset-m.cfg.EmergeMinOffset)
			agent.Opacity = 1
			agent.AIHint = HintEmerge
			return StrategyOutput{
				Target:        f.Target,
				SpeedMul:      1,
				PositionDelta: components.Polar(angle, dist),
				HasDelta:      true,
			}
		}
		agent.Opacity = 0
		agent.AIHint = HintUnderground
		return StrategyOutput{Target: f.Target, SpeedMul: m.cfg.BurrowSpeed, Hidden: true}
	}
	if f.Rng.Float64() < m.cfg.BurrowChance {
		span := m.cfg.BurrowMaxMs - m.cfg.BurrowMinMs
		us.Underground = true
		us.EmergeAt = f.Now + m.cfg.BurrowMinMs
		if span > 0 {
			us.EmergeAt += f.Rng.Int63n(span + 1)
		}
		agent.Opacity = 0
		agent.AIHint = HintBurrow
		return StrategyOutput{Target: f.Target, SpeedMul: m.cfg.BurrowSpeed, Hidden: true}
	}
	agent.AIHint = HintSurface
	return StrategyOutput{Target: f.Target, SpeedMul: 1}
}
