package game

import (
	"context"
	"log/slog"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/swarmmind/components"
	"github.com/pthm-cable/swarmmind/config"
	"github.com/pthm-cable/swarmmind/telemetry"
)

// SessionStats summarises a synthetic session.
type SessionStats struct {
	Ticks        int64
	Spawned      int
	Reached      int // pests that got within reach of the defended target
	Killed       int // pests killed by the scripted player
	HeatExposure int // agent-ticks spent visible inside a hot zone
	SprayHits    int
	SprayMisses  int
}

// LogValue implements slog.LogValuer for structured logging.
func (s SessionStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("ticks", s.Ticks),
		slog.Int("spawned", s.Spawned),
		slog.Int("reached", s.Reached),
		slog.Int("killed", s.Killed),
		slog.Int("heat_exposure", s.HeatExposure),
		slog.Int("spray_hits", s.SprayHits),
		slog.Int("spray_misses", s.SprayMisses),
	)
}

// pestState is what the session tracks per pest beyond the shared Agent.
type pestState struct {
	archetype int // index into session.archetypes, -1 = plain
	spawnedAt int64
	reached   bool

	boostSpeed float64 // berserk
	boostUntil int64

	shieldReduction float64
	shieldUntil     int64
}

// trapZone is an active trap slowing the player.
type trapZone struct {
	position components.Vec2
	radius   float64
	until    int64
}

// Session is a synthetic external game: it spawns pests on a ring around the
// target, plays a scripted sprayer, feeds the controller every tick and applies
// the resulting intents and ability effects.
type Session struct {
	cfg    *config.Config
	ctrl   *Controller
	rng    *rand.Rand
	logger *slog.Logger
	perf   *telemetry.PerfCollector

	agents      []*components.Agent
	byID        map[components.AgentID]*components.Agent
	state       map[components.AgentID]*pestState
	traps       []trapZone
	decorations []components.Decoration
	target      components.Vec2

	nextID    components.AgentID
	now       int64
	lastSpawn int64
	lastSpray int64
	pending   []components.PlayerAction
	stats     SessionStats
}

// NewSession creates a session and its controller and spawns the initial pests.
func NewSession(cfg *config.Config, opts Options) *Session {
	ctrl := NewController(cfg, opts)

	s := &Session{
		cfg:    cfg,
		ctrl:   ctrl,
		rng:    rand.New(rand.NewSource(ctrl.Seed() + 1)),
		logger: ctrl.logger,
		perf:   opts.Perf,
		byID:   make(map[components.AgentID]*components.Agent),
		state:  make(map[components.AgentID]*pestState),
		target: ctrl.Target(),
	}
	for _, d := range cfg.Session.Decorations {
		s.decorations = append(s.decorations, components.Decoration{
			Position:     components.V(d.X, d.Z),
			DefenseBonus: d.DefenseBonus,
		})
	}
	for i := 0; i < cfg.Session.InitialAgents; i++ {
		s.spawn(s.ringPoint(), s.pickArchetype())
	}
	return s
}

// Step advances the session by one controller tick.
func (s *Session) Step() TickOutput {
	s.perf.StartTick()
	s.now += s.cfg.Simulation.TickMs
	s.stats.Ticks++

	sprays, actions := s.playerTurn()
	out := s.ctrl.Tick(TickInput{
		Now:         s.now,
		Sprays:      sprays,
		Actions:     actions,
		Env:         s.environment(),
		Agents:      s.agents,
		Decorations: s.decorations,
		Reference:   s.target,
	})

	s.perf.StartPhase(telemetry.PhaseWorld)
	s.applyIntents(out.Intents)
	s.applyAbilities(out.Abilities)
	s.resolveArrivals()
	s.cleanupDead()
	s.maybeSpawn()
	s.perf.EndTick()

	return out
}

// Run steps until maxTicks (0 = until ctx is done) and returns the totals.
func (s *Session) Run(ctx context.Context, maxTicks int64) (SessionStats, error) {
	for maxTicks <= 0 || s.stats.Ticks < maxTicks {
		select {
		case <-ctx.Done():
			return s.stats, ctx.Err()
		default:
		}
		s.Step()
	}
	return s.stats, nil
}

// playerTurn runs the scripted sprayer: at most one spray per interval at the
// nearest visible pest in range.
func (s *Session) playerTurn() ([]components.SprayEvent, []components.PlayerAction) {
	actions := append([]components.PlayerAction(nil), s.pending...)
	s.pending = s.pending[:0]

	interval := s.cfg.Session.SprayIntervalMs
	if s.playerTrapped() {
		interval *= 2
	}
	if s.now-s.lastSpray < interval {
		return nil, actions
	}
	s.lastSpray = s.now

	victim := s.nearestVisible()
	if victim == nil {
		return nil, append(actions, components.PlayerAction{Kind: components.ActionMove, Timestamp: s.now})
	}

	hit := s.rng.Float64() < s.cfg.Session.PlayerAccuracy
	pos := victim.Position
	if hit {
		s.damage(victim, s.cfg.Session.SprayDamage)
		s.stats.SprayHits++
	} else {
		pos = r2.Add(pos, components.Polar(s.rng.Float64()*2*math.Pi, 0.5+s.rng.Float64()))
		s.stats.SprayMisses++
	}

	// Angle is the victim's approach bearing toward the player, the frame the
	// movement blender compares against.
	approach := r2.Sub(s.target, victim.Position)
	actions = append(actions, components.PlayerAction{
		Kind:       components.ActionSpray,
		Timestamp:  s.now,
		Angle:      math.Atan2(approach.Y, approach.X),
		HasAngle:   true,
		Hit:        hit,
		ReactionMs: float64(s.now - s.state[victim.ID].spawnedAt),
	})
	return []components.SprayEvent{{Position: pos, Timestamp: s.now}}, actions
}

// nearestVisible returns the closest live, visible pest in spray range.
func (s *Session) nearestVisible() *components.Agent {
	var best *components.Agent
	bestDist := s.cfg.Session.PlayerRange
	for _, a := range s.agents {
		if !a.Alive() || a.Opacity < 0.1 {
			continue
		}
		if d := r2.Norm(r2.Sub(a.Position, s.target)); d <= bestDist {
			best, bestDist = a, d
		}
	}
	return best
}

// playerTrapped reports whether an active trap covers the player, dropping expired traps.
func (s *Session) playerTrapped() bool {
	trapped := false
	live := s.traps[:0]
	for _, t := range s.traps {
		if t.until <= s.now {
			continue
		}
		live = append(live, t)
		if r2.Norm(r2.Sub(t.position, s.target)) <= t.radius {
			trapped = true
		}
	}
	s.traps = live
	return trapped
}

// damage applies spray damage, reduced by an active shield.
func (s *Session) damage(a *components.Agent, amount float64) {
	if st := s.state[a.ID]; st != nil && st.shieldUntil > s.now {
		amount *= 1 - st.shieldReduction
	}
	a.Health -= amount
}

// environment derives the weather, clock and season for the current tick.
func (s *Session) environment() components.EnvironmentSnapshot {
	sc := s.cfg.Session
	env := components.EnvironmentSnapshot{
		Season:  components.Season(sc.Season),
		Hour:    math.Mod(sc.StartHour+float64(s.stats.Ticks)*sc.MinutesPerTick/60, 24),
		HasHour: true,
	}
	if n := int64(len(sc.WeatherCycle)); n > 0 && sc.WeatherPeriodMs > 0 {
		env.Weather = components.Weather(sc.WeatherCycle[(s.now/sc.WeatherPeriodMs)%n])
	}
	return env
}

// applyIntents moves every pest along its intent and applies environmental healing.
func (s *Session) applyIntents(intents []components.Intent) {
	dt := float64(s.cfg.Simulation.TickMs) / 1000
	for _, in := range intents {
		a := s.byID[in.AgentID]
		if a == nil {
			continue
		}
		speed := a.Speed
		if st := s.state[a.ID]; st != nil && st.boostUntil > s.now {
			speed *= st.boostSpeed
		}
		a.Position = r2.Add(a.Position, r2.Scale(speed*dt, in.Direction))
		if in.Heal > 0 {
			a.Health = math.Min(a.MaxHealth, a.Health+in.Heal)
		}
		if !in.Hidden && s.ctrl.IsHot(a.Position) {
			s.stats.HeatExposure++
		}
	}
}

// applyAbilities carries out ability intents the way a gameplay layer would.
func (s *Session) applyAbilities(abilities []components.AbilityIntent) {
	for _, ai := range abilities {
		src := s.byID[ai.Source]
		if src == nil {
			continue
		}
		switch ai.Kind {
		case components.AbilityHealer:
			for _, id := range ai.Targets {
				if t := s.byID[id]; t.Alive() {
					t.Health = math.Min(t.MaxHealth, t.Health+ai.Amount)
				}
			}
		case components.AbilityTrapper:
			s.traps = append(s.traps, trapZone{position: ai.Position, radius: ai.Radius, until: s.now + ai.DurationMs})
		case components.AbilityBerserker:
			st := s.state[src.ID]
			st.boostSpeed = ai.SpeedMul
			st.boostUntil = s.now + ai.DurationMs
		case components.AbilitySpawner:
			arch := s.state[src.ID].archetype
			for i := 0; i < ai.Count; i++ {
				jitter := components.Polar(s.rng.Float64()*2*math.Pi, 0.5)
				if s.spawn(r2.Add(ai.Position, jitter), arch) == nil {
					break
				}
			}
		case components.AbilityTeleporter:
			src.Position = ai.Position
		case components.AbilityShield:
			for _, id := range ai.Targets {
				if st := s.state[id]; st != nil {
					st.shieldReduction = ai.Reduction
					st.shieldUntil = s.now + ai.DurationMs
				}
			}
		}
	}
}

// resolveArrivals removes pests that reached the target and reports the damage
// to the player profile on the next tick.
func (s *Session) resolveArrivals() {
	reach := s.cfg.Session.ReachDistance
	for _, a := range s.agents {
		if !a.Alive() || r2.Norm(r2.Sub(a.Position, s.target)) > reach {
			continue
		}
		s.state[a.ID].reached = true
		a.Health = 0
		s.stats.Reached++
		s.logger.Debug("pest reached target", "agent", uint32(a.ID), "type", string(a.Type), "now", s.now)
		s.pending = append(s.pending, components.PlayerAction{Kind: components.ActionDamaged, Timestamp: s.now})
	}
}

// cleanupDead removes dead pests from the session.
func (s *Session) cleanupDead() {
	// First pass: collect dead pests
	var toRemove []components.AgentID
	for _, a := range s.agents {
		if !a.Alive() {
			toRemove = append(toRemove, a.ID)
		}
	}
	if len(toRemove) == 0 {
		return
	}

	// Second pass: remove them, keeping spawn order
	for _, id := range toRemove {
		if st := s.state[id]; st != nil && !st.reached {
			s.stats.Killed++
		}
		delete(s.byID, id)
		delete(s.state, id)
	}
	live := s.agents[:0]
	for _, a := range s.agents {
		if a.Alive() {
			live = append(live, a)
		}
	}
	clear(s.agents[len(live):])
	s.agents = live
}

// maybeSpawn adds one pest per spawn interval while under the population cap.
func (s *Session) maybeSpawn() {
	if s.now-s.lastSpawn < s.cfg.Session.SpawnIntervalMs {
		return
	}
	if s.spawn(s.ringPoint(), s.pickArchetype()) != nil {
		s.lastSpawn = s.now
	}
}

// ringPoint draws a spawn point on the ring around the target.
func (s *Session) ringPoint() components.Vec2 {
	sc := s.cfg.Session
	dist := sc.SpawnMinRadius + s.rng.Float64()*(sc.SpawnMaxRadius-sc.SpawnMinRadius)
	return r2.Add(s.target, components.Polar(s.rng.Float64()*2*math.Pi, dist))
}

// pickArchetype draws an archetype index by weight, or -1 when none are configured.
func (s *Session) pickArchetype() int {
	archetypes := s.cfg.Session.Archetypes
	if len(archetypes) == 0 {
		return -1
	}
	r := s.rng.Float64() * s.cfg.Derived.ArchetypeWeight
	for i, arch := range archetypes {
		r -= arch.Weight
		if r < 0 {
			return i
		}
	}
	return len(archetypes) - 1
}

// spawn creates a pest from an archetype. Returns nil at the population cap.
func (s *Session) spawn(pos components.Vec2, archetype int) *components.Agent {
	sc := s.cfg.Session
	if len(s.agents) >= sc.MaxAgents {
		return nil
	}

	s.nextID++
	a := &components.Agent{
		ID:        s.nextID,
		Position:  pos,
		BaseSpeed: sc.BaseSpeed,
		Speed:     sc.BaseSpeed,
		Health:    sc.MaxHealth,
		MaxHealth: sc.MaxHealth,
		Damage:    1,
		Opacity:   1,
		Type:      "beetle",
		Behavior:  components.BehaviorNormal,
	}
	if archetype >= 0 {
		arch := sc.Archetypes[archetype]
		a.Type = components.PestType(arch.Type)
		a.Behavior = components.BehaviorClass(arch.Behavior)
		a.Ability = components.AbilityKind(arch.Ability)
		a.AbilityCooldownMs = arch.CooldownMs
		a.Camouflaged = arch.Camouflaged
	}

	s.agents = append(s.agents, a)
	s.byID[a.ID] = a
	s.state[a.ID] = &pestState{archetype: archetype, spawnedAt: s.now}
	s.stats.Spawned++
	return a
}

// Controller returns the session's controller.
func (s *Session) Controller() *Controller {
	return s.ctrl
}

// Agents returns the live pests in spawn order.
func (s *Session) Agents() []*components.Agent {
	return s.agents
}

// Stats returns the running totals.
func (s *Session) Stats() SessionStats {
	return s.stats
}

// Now returns the session clock in ms.
func (s *Session) Now() int64 {
	return s.now
}
