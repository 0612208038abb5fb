package engine

import "github.com/talgya/demesne/internal/rng"

// Weather and market multipliers come from dedicated streams so their draw
// counts never couple to any other subsystem.

const (
	weatherFloor   = 0.60
	weatherCeiling = 1.35
	marketFloor    = 0.70
	marketCeiling  = 1.40
	baseGrainPrice = 0.5 // coin per bushel at market multiplier 1.0
)

// rollWeather returns this turn's yield multiplier. Drainage halves the
// shortfall of a bad season; floor and ceiling clamps apply either way.
func (s *RunState) rollWeather() float64 {
	r := rng.New(s.Seed, StreamWeather, s.Turn, "")
	mult := 0.7 + r.Next()*0.6
	if mult < 1.0 && s.HasImprovement(ImpDrainage) {
		mult += (1.0 - mult) * 0.5
	}
	return clampFloat(mult, weatherFloor, weatherCeiling)
}

// rollMarket returns this turn's price multiplier.
func (s *RunState) rollMarket() float64 {
	r := rng.New(s.Seed, StreamMarket, s.Turn, "")
	return clampFloat(0.8+r.Next()*0.5, marketFloor, marketCeiling)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
