package scoring

import (
	"fmt"
	"strings"
	"time"
)

// Sex selects the percentile bands a lifter is compared against.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// ParseSex accepts "male"/"female" in any case, plus "m"/"f".
func ParseSex(s string) (Sex, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m":
		return SexMale, nil
	case "female", "f":
		return SexFemale, nil
	default:
		return "", fmt.Errorf("unknown sex %q", s)
	}
}

func (s Sex) valid() bool {
	return s == SexMale || s == SexFemale
}

// BodyProfile holds the body metrics strength scoring needs.
// BodyWeight must use the same unit as the lifted weights.
type BodyProfile struct {
	BodyWeight       float64 `json:"body_weight"`
	Sex              Sex     `json:"sex"`
	Age              int     `json:"age"`
	TrainingAgeYears float64 `json:"training_age_years"`
}

// complete reports whether strength can be scored from p. A nil profile, a zero
// body weight or an empty sex is missing data; negative weight or an unknown sex
// value is invalid input.
func (p *BodyProfile) complete() (bool, error) {
	if p == nil || p.BodyWeight == 0 || p.Sex == "" {
		return false, nil
	}
	if p.BodyWeight < 0 || isNaN(p.BodyWeight) {
		return false, inputErr("body weight", p.BodyWeight, "must be positive")
	}
	if !p.Sex.valid() {
		return false, inputErr("sex", 0, fmt.Sprintf("unknown value %q", p.Sex))
	}
	if p.Age < 0 {
		return false, inputErr("age", float64(p.Age), "must not be negative")
	}
	return true, nil
}

// AgeAt returns the age in whole years on the given day.
func AgeAt(birthDate, asOf time.Time) int {
	age := asOf.Year() - birthDate.Year()
	if asOf.Month() < birthDate.Month() ||
		(asOf.Month() == birthDate.Month() && asOf.Day() < birthDate.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// MuscleGroup is an entry of the static muscle catalog.
type MuscleGroup struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// MuscleContribution is how much of an exercise's work lands on one muscle group.
type MuscleContribution struct {
	MuscleGroupID string  `json:"muscle_group_id" yaml:"muscle"`
	Percentage    float64 `json:"percentage" yaml:"percentage"`
	IsPrimary     bool    `json:"is_primary" yaml:"primary"`
}

// ExerciseDefinition describes an exercise and the muscles it trains.
// Contributions are independent percentages and need not sum to 100.
type ExerciseDefinition struct {
	ID               string               `json:"id"`
	Name             string               `json:"name"`
	StrengthStandard float64              `json:"strength_standard"`
	Contributions    []MuscleContribution `json:"contributions"`
}

// Standard returns the strength standard multiplier, 1.0 when unset.
func (e ExerciseDefinition) Standard() float64 {
	if e.StrengthStandard == 0 {
		return 1.0
	}
	return e.StrengthStandard
}

// ContributionTo returns the exercise's contribution to a muscle group.
func (e ExerciseDefinition) ContributionTo(muscleGroupID string) (float64, bool) {
	for _, c := range e.Contributions {
		if c.MuscleGroupID == muscleGroupID {
			return c.Percentage, true
		}
	}
	return 0, false
}

// SetRecord is one logged set. A nil RPE means effort was not recorded.
type SetRecord struct {
	Weight   float64  `json:"weight"`
	Reps     int      `json:"reps"`
	RPE      *float64 `json:"rpe,omitempty"`
	IsWarmup bool     `json:"is_warmup"`
}

// LoggedSet is a set tagged with the exercise it belongs to.
type LoggedSet struct {
	ExerciseID string `json:"exercise_id"`
	SetRecord
}

// Session is one workout: every set logged at the same session time.
type Session struct {
	Date time.Time   `json:"date"`
	Sets []LoggedSet `json:"sets"`
}

// PersonalRecord is a PR candidate. Only records with Estimated1RM > 0 qualify.
type PersonalRecord struct {
	ExerciseID   string    `json:"exercise_id"`
	Weight       float64   `json:"weight"`
	Reps         int       `json:"reps"`
	Estimated1RM float64   `json:"estimated_1rm"`
	Date         time.Time `json:"date"`
}

// EvidenceWindow holds session counts over the trailing short and long windows.
type EvidenceWindow struct {
	Sessions28 int `json:"sessions_28d"`
	Sessions56 int `json:"sessions_56d"`
}
