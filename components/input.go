package components

// SprayEvent is one player attack, consumed once by the heatmap.
type SprayEvent struct {
	Position  Vec2
	Timestamp int64 // ms
}

// ActionKind classifies a player action in the profile window.
type ActionKind uint8

const (
	ActionSpray   ActionKind = iota // player sprayed
	ActionMove                      // player moved the camera/avatar
	ActionAbility                   // player used a special tool
	ActionDamaged                   // the garden or player took damage
)

// PlayerAction is one entry of the rolling player profile window.
type PlayerAction struct {
	Kind       ActionKind
	Timestamp  int64   // ms
	Angle      float64 // aim angle in radians, valid when HasAngle
	HasAngle   bool
	Hit        bool    // spray connected with a pest
	ReactionMs float64 // time from pest appearance to reaction, 0 = unknown
}

// Weather is the current weather condition.
type Weather string

const (
	WeatherClear Weather = "clear"
	WeatherRain  Weather = "rain"
	WeatherWind  Weather = "wind"
	WeatherFog   Weather = "fog"
)

// TimeOfDay is the coarse day phase.
type TimeOfDay string

const (
	TimeDay   TimeOfDay = "day"
	TimeDawn  TimeOfDay = "dawn"
	TimeDusk  TimeOfDay = "dusk"
	TimeNight TimeOfDay = "night"
)

// Season is the current season.
type Season string

const (
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonAutumn Season = "autumn"
	SeasonWinter Season = "winter"
)

// EnvironmentSnapshot is provided by the environment system each tick.
// Empty fields fall back to clear / day / spring.
type EnvironmentSnapshot struct {
	Weather   Weather
	TimeOfDay TimeOfDay
	Hour      float64 // 0-24, used when TimeOfDay is empty
	HasHour   bool
	Season    Season
}

// Normalized returns a copy with every field resolved to a concrete value.
func (e EnvironmentSnapshot) Normalized() EnvironmentSnapshot {
	if e.Weather == "" {
		e.Weather = WeatherClear
	}
	if e.Season == "" {
		e.Season = SeasonSpring
	}
	if e.TimeOfDay == "" {
		e.TimeOfDay = TimeDay
		if e.HasHour {
			e.TimeOfDay = PhaseForHour(e.Hour)
		}
	}
	return e
}

// IsNight reports whether the snapshot resolves to night.
func (e EnvironmentSnapshot) IsNight() bool {
	return e.Normalized().TimeOfDay == TimeNight
}

// PhaseForHour maps a 24h clock hour onto a day phase.
func PhaseForHour(hour float64) TimeOfDay {
	switch {
	case hour >= 20 || hour < 5:
		return TimeNight
	case hour < 7:
		return TimeDawn
	case hour >= 18:
		return TimeDusk
	default:
		return TimeDay
	}
}

// Decoration is a defensive garden decoration that slows nearby pests.
type Decoration struct {
	Position     Vec2
	DefenseBonus float64
}
