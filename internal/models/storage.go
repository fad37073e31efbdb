package models

import "time"

// WorkoutSetRow is a row for the workout_sets table.
type WorkoutSetRow struct {
	UserID           int       `json:"user_id"`
	SessionName      string    `json:"session_name"`
	SessionDate      time.Time `json:"session_date"`
	SessionDuration  string    `json:"session_duration"`
	ExerciseNumber   int       `json:"exercise_number"`
	ExerciseName     string    `json:"exercise_name"`
	ExerciseID       *string   `json:"exercise_id"`
	Equipment        string    `json:"equipment"`
	TargetReps       int       `json:"target_reps"`
	IsWarmup         bool      `json:"is_warmup"`
	SetNumber        int       `json:"set_number"`
	WeightKg         float64   `json:"weight_kg"`
	IsBodyweightPlus bool      `json:"is_bodyweight_plus"`
	Reps             int       `json:"reps"`
	RIR              float64   `json:"rir"`
	RPE              *float64  `json:"rpe"`
}

// PersonalRecordRow is a row for the personal_records table: the best set of
// one exercise in one session.
type PersonalRecordRow struct {
	UserID       int       `json:"user_id"`
	ExerciseID   string    `json:"exercise_id"`
	SessionDate  time.Time `json:"session_date"`
	WeightKg     float64   `json:"weight_kg"`
	Reps         int       `json:"reps"`
	Estimated1RM float64   `json:"estimated_1rm"`
}

// BodyProfileRow is a row for the body_profiles table. Age and training age
// are stored as dates so they stay correct over time.
type BodyProfileRow struct {
	UserID        int        `json:"user_id"`
	BodyWeightKg  float64    `json:"body_weight_kg"`
	Sex           string     `json:"sex"`
	BirthDate     *time.Time `json:"birth_date,omitempty"`
	TrainingSince *time.Time `json:"training_since,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
