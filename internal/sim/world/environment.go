package world

// Day phases and weather. Both are pure functions of tick and seed: the
// phase rotates on a fixed cadence and weather is re-drawn at fixed
// intervals from the tuning weights. Their gameplay effect is a pair of
// permille modifiers consumed by movement and combat, plus a construction
// pause during storms.

const (
	PhaseDawn  = "DAWN"
	PhaseDay   = "DAY"
	PhaseDusk  = "DUSK"
	PhaseNight = "NIGHT"

	WeatherClear = "CLEAR"
	WeatherRain  = "RAIN"
	WeatherStorm = "STORM"
	WeatherSnow  = "SNOW"
)

var phaseOrder = [4]string{PhaseDawn, PhaseDay, PhaseDusk, PhaseNight}

const weatherSalt = 0x57454154 // draw domain separator

// EnvironmentState is the per-tick environment with its derived modifiers.
type EnvironmentState struct {
	Phase   string
	Weather string

	// VisibilityPermille scales aggro ranges; MovementPermille scales unit
	// speed. 1000 means unmodified.
	VisibilityPermille int
	MovementPermille   int

	ConstructionPaused bool
}

func phaseVisibility(phase string) int {
	switch phase {
	case PhaseDay:
		return 1000
	case PhaseDawn, PhaseDusk:
		return 750
	case PhaseNight:
		return 500
	}
	return 1000
}

func weatherModifiers(weather string) (visibility, movement int, paused bool) {
	switch weather {
	case WeatherRain:
		return 800, 900, false
	case WeatherStorm:
		return 600, 750, true
	case WeatherSnow:
		return 700, 800, false
	default:
		return 1000, 1000, false
	}
}

// updateEnvironment advances phase and weather for tick and recomputes the
// modifiers. Weather persists between draw ticks and across save/load.
func (w *World) updateEnvironment(tick uint64) {
	pt := uint64(w.cfg.PhaseTicks)
	phase := phaseOrder[(tick/pt)%4]

	if tick%uint64(w.cfg.WeatherEveryTicks) == 0 {
		if pick := weightedPick(w.cfg.WeatherWeights, hash2(w.cfg.Seed, tick, weatherSalt)); pick != "" {
			w.weather = pick
		}
	}

	wvis, wmove, paused := weatherModifiers(w.weather)
	w.env = EnvironmentState{
		Phase:              phase,
		Weather:            w.weather,
		VisibilityPermille: phaseVisibility(phase) * wvis / 1000,
		MovementPermille:   wmove,
		ConstructionPaused: paused,
	}
}

// Environment returns the modifiers computed for the current tick.
func (w *World) Environment() EnvironmentState { return w.env }

// aggroCells scales a catalog aggro range by current visibility, keeping at
// least 1 cell for any nonzero base range.
func (w *World) aggroCells(base int) int {
	if base <= 0 {
		return 0
	}
	r := base * w.env.VisibilityPermille / 1000
	if r < 1 {
		r = 1
	}
	return r
}
