package scoring

import "math"

// EstimateOneRepMax estimates a one-rep max from a set of weight × reps.
// Reps above the configured ceiling are clamped to it before the formula is
// applied. A single rep returns the weight unchanged.
func EstimateOneRepMax(cfg *Config, weight float64, reps int) (float64, error) {
	if !finite(weight) || weight <= 0 {
		return 0, inputErr("weight", weight, "must be positive")
	}
	if reps < 1 {
		return 0, inputErr("reps", float64(reps), "must be at least 1")
	}
	if reps > cfg.OneRepMax.RepCeiling {
		reps = cfg.OneRepMax.RepCeiling
	}
	if reps == 1 {
		return weight, nil
	}

	r := float64(reps)
	var e1rm float64
	switch cfg.OneRepMax.Formula {
	case FormulaBrzycki:
		e1rm = weight * 36 / (37 - r)
	default:
		e1rm = weight * (1 + r/30)
	}

	// Neither formula goes below the lifted weight for reps >= 1.
	if math.IsNaN(e1rm) || math.IsInf(e1rm, 0) || e1rm < weight {
		return weight, nil
	}
	return e1rm, nil
}
