package scoring

import "math"

// HardSetMinRPE is the lowest recorded RPE that still counts as a hard set.
const HardSetMinRPE = 7.0

// IsHardSet reports whether a set counts toward weekly volume. Warmups never
// do; a set without a recorded RPE does.
func IsHardSet(s SetRecord) bool {
	if s.IsWarmup {
		return false
	}
	return s.RPE == nil || *s.RPE >= HardSetMinRPE
}

// Landmarks returns the volume landmarks that apply at a training age: the
// bracket with the greatest min_years not above it.
func Landmarks(cfg *Config, trainingAgeYears float64) VolumeLandmarks {
	l := cfg.brackets[0].VolumeLandmarks
	for _, b := range cfg.brackets[1:] {
		if b.MinYears > trainingAgeYears {
			break
		}
		l = b.VolumeLandmarks
	}
	return l
}

// VolumeScore scores weekly hard sets against the MEV/MAV/MRV landmarks of
// the lifter's training-age bracket.
func VolumeScore(cfg *Config, weeklyHardSets, trainingAgeYears float64) (float64, error) {
	if !finite(weeklyHardSets) || weeklyHardSets < 0 {
		return 0, inputErr("weekly hard sets", weeklyHardSets, "must not be negative")
	}
	if !finite(trainingAgeYears) || trainingAgeYears < 0 {
		return 0, inputErr("training age", trainingAgeYears, "must not be negative")
	}

	sets := math.Round(weeklyHardSets)
	l := Landmarks(cfg, trainingAgeYears)
	v := cfg.VolumeCurve

	switch {
	case sets < l.MEV:
		return sets / l.MEV * v.MEVScore, nil
	case sets < l.MAV:
		return v.MEVScore + (sets-l.MEV)/(l.MAV-l.MEV)*(v.MAVScore-v.MEVScore), nil
	case sets <= l.MRV:
		return v.MAVScore, nil
	}

	if v.AboveMRV == OverreachDecline {
		return math.Max(v.FloorScore, v.MAVScore-(sets-l.MRV)*v.DeclinePerSet), nil
	}
	return v.MAVScore, nil
}

// CompositeScore blends strength and volume with the configured weights.
func CompositeScore(cfg *Config, strength, volume float64) (float64, error) {
	if !finite(strength) || strength < 0 || strength > 100 {
		return 0, inputErr("strength score", strength, "must be within [0, 100]")
	}
	if !finite(volume) || volume < 0 || volume > 100 {
		return 0, inputErr("volume score", volume, "must be within [0, 100]")
	}
	w := cfg.CompositeWeights
	return clamp(strength*w.Strength+volume*w.Volume, 0, 100), nil
}
