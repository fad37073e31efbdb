package storage

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/claude/reprank/internal/models"
	"github.com/claude/reprank/internal/scoring"
)

func strPtr(s string) *string { return &s }

func f64Ptr(f float64) *float64 { return &f }

// TestGroupSessions verifies rows become oldest-first sessions and that
// unmatched exercises are dropped without losing the session itself.
func TestGroupSessions(t *testing.T) {
	push := time.Date(2026, 2, 17, 5, 4, 0, 0, time.UTC)
	legs := time.Date(2026, 2, 19, 4, 54, 0, 0, time.UTC)

	rows := []models.WorkoutSetRow{
		{SessionDate: legs, ExerciseName: "Sumo Squats", WeightKg: 70, Reps: 8},
		{SessionDate: legs, ExerciseName: "Pull-Ups", ExerciseID: strPtr("pull_up"), WeightKg: 10, IsBodyweightPlus: true, Reps: 8, RPE: f64Ptr(9)},
		{SessionDate: push, ExerciseName: "Bench Press", ExerciseID: strPtr("bench_press"), WeightKg: 50, Reps: 10, IsWarmup: true},
		{SessionDate: push, ExerciseName: "Bench Press", ExerciseID: strPtr("bench_press"), WeightKg: 100, Reps: 6, RPE: f64Ptr(10)},
	}

	got := groupSessions(rows, 80)
	want := []scoring.Session{
		{
			Date: push,
			Sets: []scoring.LoggedSet{
				{ExerciseID: "bench_press", SetRecord: scoring.SetRecord{Weight: 50, Reps: 10, IsWarmup: true}},
				{ExerciseID: "bench_press", SetRecord: scoring.SetRecord{Weight: 100, Reps: 6, RPE: f64Ptr(10)}},
			},
		},
		{
			Date: legs,
			Sets: []scoring.LoggedSet{
				{ExerciseID: "pull_up", SetRecord: scoring.SetRecord{Weight: 90, Reps: 8, RPE: f64Ptr(9)}},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("groupSessions mismatch (-want +got):\n%s", diff)
	}
}

// TestGroupSessionsUnknownBodyWeight verifies bodyweight-plus sets keep the
// added load when body weight is unknown.
func TestGroupSessionsUnknownBodyWeight(t *testing.T) {
	rows := []models.WorkoutSetRow{
		{SessionDate: time.Date(2026, 2, 19, 0, 0, 0, 0, time.UTC), ExerciseID: strPtr("dips"), WeightKg: 20, IsBodyweightPlus: true, Reps: 8},
	}
	got := groupSessions(rows, 0)
	if got[0].Sets[0].Weight != 20 {
		t.Errorf("weight = %v, want 20", got[0].Sets[0].Weight)
	}
}

// TestPlaceholders verifies positional parameter lists for batch inserts.
func TestPlaceholders(t *testing.T) {
	if got := placeholders(0, 3); got != "($1,$2,$3)" {
		t.Errorf("placeholders(0, 3) = %q", got)
	}
	if got := placeholders(16, 2); got != "($17,$18)" {
		t.Errorf("placeholders(16, 2) = %q", got)
	}
}
