package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/swarmmind/components"
	"github.com/pthm-cable/swarmmind/config"
)

// Effect names carried by ability intents.
const (
	EffectSlow = "slow"
)

type abilityKey struct {
	agent   components.AgentID
	ability components.AbilityKind
}

type cooldownEntry struct {
	at       int64
	cooldown int64
}

// AbilityScheduler gates special abilities on per-agent cooldowns and picks targets.
// It only emits intents; the gameplay layer applies them.
type AbilityScheduler struct {
	cfg config.AbilitiesConfig

	lastTriggered map[abilityKey]cooldownEntry
	lastCompact   int64

	neighbors []Neighbor
}

// NewAbilityScheduler creates an empty cooldown table.
func NewAbilityScheduler(cfg config.AbilitiesConfig) *AbilityScheduler {
	return &AbilityScheduler{
		cfg:           cfg,
		lastTriggered: make(map[abilityKey]cooldownEntry),
	}
}

// TryTrigger fires the agent's ability if its cooldown has elapsed and its
// precondition holds. The cooldown is recorded only when an intent is emitted.
func (s *AbilityScheduler) TryTrigger(f *Frame, agent *components.Agent) (components.AbilityIntent, bool) {
	if !agent.Alive() || agent.Ability == components.AbilityNone {
		return components.AbilityIntent{}, false
	}
	key := abilityKey{agent: agent.ID, ability: agent.Ability}
	if last, ok := s.lastTriggered[key]; ok && f.Now-last.at < agent.AbilityCooldownMs {
		return components.AbilityIntent{}, false
	}

	var (
		intent components.AbilityIntent
		ok     bool
	)
	switch agent.Ability {
	case components.AbilityHealer:
		intent, ok = s.heal(f, agent)
	case components.AbilityTrapper:
		intent, ok = s.trap(f)
	case components.AbilityBerserker:
		intent, ok = s.berserk(agent)
	case components.AbilitySpawner:
		intent, ok = s.spawn(f, agent)
	case components.AbilityTeleporter:
		intent, ok = s.teleport(f, agent)
	case components.AbilityShield:
		intent, ok = s.shield(f, agent)
	}
	if !ok {
		return components.AbilityIntent{}, false
	}

	intent.Kind = agent.Ability
	intent.Source = agent.ID
	intent.At = f.Now
	s.lastTriggered[key] = cooldownEntry{at: f.Now, cooldown: agent.AbilityCooldownMs}
	return intent, true
}

// heal targets the most injured ally below the injured ratio; ties go to the lower id.
func (s *AbilityScheduler) heal(f *Frame, agent *components.Agent) (components.AbilityIntent, bool) {
	s.neighbors = f.Neighbors(s.neighbors[:0], agent, s.cfg.HealRadius)
	var target *components.Agent
	for _, n := range s.neighbors {
		ally := n.Agent
		ratio := ally.HealthRatio()
		if ratio >= s.cfg.HealInjuredRatio {
			continue
		}
		if target == nil || ratio < target.HealthRatio() ||
			(ratio == target.HealthRatio() && ally.ID < target.ID) {
			target = ally
		}
	}
	if target == nil {
		return components.AbilityIntent{}, false
	}
	return components.AbilityIntent{
		Targets: []components.AgentID{target.ID},
		Amount:  agent.MaxHealth * s.cfg.HealFraction,
		CastMs:  s.cfg.HealCastMs,
	}, true
}

// trap drops a slowing trap on the hottest active zone.
func (s *AbilityScheduler) trap(f *Frame) (components.AbilityIntent, bool) {
	if f.Heat == nil {
		return components.AbilityIntent{}, false
	}
	zone, ok := f.Heat.HottestZone(f.Now)
	if !ok {
		return components.AbilityIntent{}, false
	}
	return components.AbilityIntent{
		Position:   zone.Center,
		Radius:     s.cfg.TrapRadius,
		DurationMs: s.cfg.TrapDurationMs,
		Effect:     EffectSlow,
	}, true
}

func (s *AbilityScheduler) berserk(agent *components.Agent) (components.AbilityIntent, bool) {
	if agent.HealthRatio() >= s.cfg.BerserkHealthRatio {
		return components.AbilityIntent{}, false
	}
	return components.AbilityIntent{
		Targets:    []components.AgentID{agent.ID},
		SpeedMul:   s.cfg.BerserkSpeed,
		DamageMul:  s.cfg.BerserkDamage,
		DurationMs: s.cfg.BerserkDurationMs,
	}, true
}

func (s *AbilityScheduler) spawn(f *Frame, agent *components.Agent) (components.AbilityIntent, bool) {
	if f.LiveCount() >= s.cfg.SpawnPopulationCap {
		return components.AbilityIntent{}, false
	}
	return components.AbilityIntent{
		Position: agent.Position,
		Count:    s.cfg.SpawnCount,
	}, true
}

// teleport escapes a hot cell to the first cool point on a ring around the agent.
func (s *AbilityScheduler) teleport(f *Frame, agent *components.Agent) (components.AbilityIntent, bool) {
	if !f.IsHot(agent.Position) || s.cfg.TeleportCandidates < 1 {
		return components.AbilityIntent{}, false
	}
	step := 2 * math.Pi / float64(s.cfg.TeleportCandidates)
	for i := 0; i < s.cfg.TeleportCandidates; i++ {
		p := r2.Add(agent.Position, components.Polar(float64(i)*step, s.cfg.TeleportRadius))
		if !f.IsHot(p) {
			return components.AbilityIntent{Position: p}, true
		}
	}
	return components.AbilityIntent{}, false
}

func (s *AbilityScheduler) shield(f *Frame, agent *components.Agent) (components.AbilityIntent, bool) {
	s.neighbors = f.Neighbors(s.neighbors[:0], agent, s.cfg.ShieldRadius)
	if len(s.neighbors) < s.cfg.ShieldMinAllies {
		return components.AbilityIntent{}, false
	}
	targets := make([]components.AgentID, 0, len(s.neighbors)+1)
	targets = append(targets, agent.ID)
	for _, n := range s.neighbors {
		targets = append(targets, n.Agent.ID)
	}
	return components.AbilityIntent{
		Targets:    targets,
		Reduction:  s.cfg.ShieldReduction,
		DurationMs: s.cfg.ShieldDurationMs,
	}, true
}

// LastTriggered returns when an agent's ability last fired.
func (s *AbilityScheduler) LastTriggered(id components.AgentID, kind components.AbilityKind) (int64, bool) {
	e, ok := s.lastTriggered[abilityKey{agent: id, ability: kind}]
	return e.at, ok
}

// Forget drops every cooldown entry of a removed agent.
func (s *AbilityScheduler) Forget(id components.AgentID) {
	for _, kind := range components.AbilityKinds() {
		delete(s.lastTriggered, abilityKey{agent: id, ability: kind})
	}
}

// MaybeCompact runs Compact at most once per compaction interval.
func (s *AbilityScheduler) MaybeCompact(now int64) int {
	if now-s.lastCompact < s.cfg.CompactIntervalMs {
		return 0
	}
	return s.Compact(now)
}

// Compact drops entries whose own cooldown has elapsed. Entries are kept for
// at least MaxCooldownMs so short cooldowns do not churn the table.
func (s *AbilityScheduler) Compact(now int64) int {
	s.lastCompact = now
	removed := 0
	for k, e := range s.lastTriggered {
		if now-e.at >= max(e.cooldown, s.cfg.MaxCooldownMs) {
			delete(s.lastTriggered, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of cooldown entries.
func (s *AbilityScheduler) Len() int {
	return len(s.lastTriggered)
}

// Reset clears the cooldown table.
func (s *AbilityScheduler) Reset() {
	clear(s.lastTriggered)
	s.lastCompact = 0
}
