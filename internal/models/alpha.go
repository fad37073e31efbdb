package models

import "time"

// UntrackedRIR marks a set whose reps-in-reserve were not recorded.
const UntrackedRIR = -1

// AlphaSession represents a parsed Alpha Progression workout session.
type AlphaSession struct {
	Name      string
	Date      time.Time
	Duration  string
	Exercises []AlphaExercise
}

// AlphaExercise represents a single exercise within a session.
type AlphaExercise struct {
	Number     int
	Name       string
	Equipment  string
	TargetReps int
	Sets       []AlphaSet
}

// AlphaSet represents a single set (working or warmup).
// For bodyweight-plus sets WeightKg is the added load only.
type AlphaSet struct {
	Number           int
	WeightKg         float64
	IsBodyweightPlus bool
	Reps             int
	RIR              float64
	IsWarmup         bool
}

// RPE converts reps in reserve to RPE (10 - RIR). Warmups and untracked RIR
// have no RPE.
func (s AlphaSet) RPE() *float64 {
	if s.IsWarmup || s.RIR <= UntrackedRIR {
		return nil
	}
	rpe := 10 - s.RIR
	if rpe < 0 {
		rpe = 0
	}
	return &rpe
}

// Load returns the total weight moved, adding body weight to bodyweight-plus
// sets when it is known.
func (s AlphaSet) Load(bodyWeightKg float64) float64 {
	if s.IsBodyweightPlus && bodyWeightKg > 0 {
		return bodyWeightKg + s.WeightKg
	}
	return s.WeightKg
}
