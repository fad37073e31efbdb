package scoring

import "math"

// NormalizeStrength turns an estimated 1RM into a body-weight-relative metric:
// e1rm / bodyWeight^exponent, scaled by the exercise standard and, when age
// adjustment is enabled, by the interpolated age factor.
func NormalizeStrength(cfg *Config, e1rm float64, profile BodyProfile, standard float64) (float64, error) {
	if !finite(e1rm) || e1rm <= 0 {
		return 0, inputErr("estimated 1RM", e1rm, "must be positive")
	}
	if !finite(profile.BodyWeight) || profile.BodyWeight <= 0 {
		return 0, inputErr("body weight", profile.BodyWeight, "must be positive")
	}
	if standard == 0 {
		standard = 1.0
	}
	if !finite(standard) || standard < 0 {
		return 0, inputErr("strength standard", standard, "must be positive")
	}

	metric := e1rm / math.Pow(profile.BodyWeight, cfg.AllometricExponent) * standard
	return metric * ageFactor(cfg, profile.Age), nil
}

func ageFactor(cfg *Config, age int) float64 {
	if !cfg.AgeAdjustment.Enabled || age <= 0 {
		return 1.0
	}
	return cfg.ageCurve.at(float64(age))
}

// PercentileScore maps a normalized strength metric to a population
// percentile for the given sex, then to a 0-100 score.
func PercentileScore(cfg *Config, metric float64, sex Sex) (float64, error) {
	p, err := Percentile(cfg, metric, sex)
	if err != nil {
		return 0, err
	}
	return clamp(cfg.curve.at(p), 0, 100), nil
}

// Percentile maps a normalized strength metric to a population percentile.
func Percentile(cfg *Config, metric float64, sex Sex) (float64, error) {
	if !finite(metric) || metric < 0 {
		return 0, inputErr("strength metric", metric, "must be a non-negative number")
	}
	bands, ok := cfg.bands[sex]
	if !ok {
		return 0, inputErr("sex", 0, "no percentile bands for "+string(sex))
	}
	return bands.at(metric), nil
}

// DecayScore applies exponential recency decay with the configured half-life.
func DecayScore(cfg *Config, score, daysSincePR float64) (float64, error) {
	if !finite(score) || score < 0 || score > 100 {
		return 0, inputErr("score", score, "must be within [0, 100]")
	}
	if !finite(daysSincePR) || daysSincePR < 0 {
		return 0, inputErr("days since PR", daysSincePR, "must not be negative")
	}
	decayed := score * math.Pow(2, -daysSincePR/cfg.Decay.HalfLifeDays)
	return math.Max(0, decayed), nil
}
