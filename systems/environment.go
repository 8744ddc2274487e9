package systems

import (
	"math"

	"github.com/pthm-cable/swarmmind/components"
	"github.com/pthm-cable/swarmmind/config"
)

// Modifiers are the environment multipliers for one agent on one tick.
type Modifiers struct {
	SpeedMul   float64
	OpacityMul float64
	DamageMul  float64
	Heal       float64 // health restored this tick
}

// EnvironmentPass applies weather, time of day, season and decorations.
// It holds no state between calls.
type EnvironmentPass struct {
	cfg    config.EnvironmentConfig
	traits map[string]config.PestTraits
}

// NewEnvironmentPass creates a pass using the given multipliers and pest trait table.
func NewEnvironmentPass(cfg config.EnvironmentConfig, traits map[string]config.PestTraits) *EnvironmentPass {
	return &EnvironmentPass{cfg: cfg, traits: traits}
}

// Modifiers computes the multipliers for agent. Empty environment fields fall
// back to clear weather, day and spring.
func (p *EnvironmentPass) Modifiers(agent *components.Agent, env components.EnvironmentSnapshot, decorations []components.Decoration, now int64) Modifiers {
	mod := Modifiers{SpeedMul: 1, OpacityMul: 1, DamageMul: 1}
	if !agent.Alive() {
		return mod
	}
	env = env.Normalized()
	tr := p.traits[string(agent.Type)]
	mite := agent.Type == components.PestSpiderMite

	switch env.Weather {
	case components.WeatherRain:
		if tr.Flying {
			mod.SpeedMul *= p.cfg.RainFlyingSpeed
		}
		if mite {
			mod.SpeedMul *= p.cfg.RainMiteSpeed
		}
	case components.WeatherWind:
		if tr.Tiny && p.cfg.WindPeriodMs > 0 {
			phase := 2 * math.Pi * float64(now%p.cfg.WindPeriodMs) / float64(p.cfg.WindPeriodMs)
			mod.SpeedMul *= 1 + p.cfg.WindTinyAmplitude*math.Sin(phase)
		}
	case components.WeatherFog:
		mod.OpacityMul *= p.cfg.FogOpacity
		mod.SpeedMul *= p.cfg.FogSpeed
	}

	switch env.TimeOfDay {
	case components.TimeNight:
		if tr.Nocturnal {
			mod.SpeedMul *= p.cfg.NightNocturnalSpeed
			mod.DamageMul *= p.cfg.NightNocturnalDamage
		} else {
			mod.SpeedMul *= p.cfg.NightOtherSpeed
		}
	case components.TimeDawn, components.TimeDusk:
		if tr.Crepuscular {
			mod.SpeedMul *= p.cfg.TwilightSpeed
		}
	}

	switch env.Season {
	case components.SeasonWinter:
		if mite {
			mod.Heal = p.cfg.WinterMiteHeal
		} else {
			mod.SpeedMul *= p.cfg.WinterOtherSpeed
		}
	case components.SeasonSummer:
		if tr.HeatTolerant {
			mod.SpeedMul *= p.cfg.SummerHeatSpeed
			mod.DamageMul *= p.cfg.SummerHeatDamage
		}
	}

	var slow float64
	for _, d := range decorations {
		if distance(d.Position, agent.Position) <= p.cfg.DecorationRadius {
			slow += p.cfg.DecorationSlowPerBonus * d.DefenseBonus
		}
	}
	if slow > 0 {
		mod.SpeedMul *= math.Max(p.cfg.DecorationMinSpeed, 1-slow)
	}
	return mod
}
