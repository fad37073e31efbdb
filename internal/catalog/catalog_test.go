package catalog

import (
	"path/filepath"
	"strings"
	"testing"
)

func loadTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Load(filepath.Join("testdata", "catalog.yaml"))
	if err != nil {
		t.Fatalf("loading catalog: %v", err)
	}
	return c
}

// TestLoadCatalog verifies the shipped catalog parses and keeps file order.
func TestLoadCatalog(t *testing.T) {
	c := loadTestCatalog(t)

	if len(c.MuscleGroups) != 14 {
		t.Errorf("muscle groups = %d, want 14", len(c.MuscleGroups))
	}
	if c.MuscleGroups[0].ID != "chest" {
		t.Errorf("first muscle group = %q, want chest", c.MuscleGroups[0].ID)
	}
	bench, ok := c.Exercise("bench_press")
	if !ok {
		t.Fatal("bench_press missing")
	}
	if pct, _ := bench.ContributionTo("chest"); pct != 70 {
		t.Errorf("bench chest contribution = %v, want 70", pct)
	}
	if !bench.Contributions[0].IsPrimary {
		t.Error("bench chest contribution should be primary")
	}
	if m, ok := c.MuscleGroup("front_delts"); !ok || m.Name != "Front Delts" {
		t.Errorf("front_delts = %+v, %v", m, ok)
	}
}

// TestResolve verifies alias matching against exported exercise names.
func TestResolve(t *testing.T) {
	c := loadTestCatalog(t)

	tests := []struct {
		name string
		want string
	}{
		{"Bench Press", "bench_press"},
		{"bench press", "bench_press"},
		{"bench_press", "bench_press"},
		{"Hack Squats", "hack_squat"},
		{"Hyperextensions on Roman Chair", "back_extension"},
		{"Pull-Ups", "pull_up"},
		{"pull ups", "pull_up"},
		{"  Reverse   Lunges ", "lunge"},
	}
	for _, tt := range tests {
		got, ok := c.Resolve(tt.name)
		if !ok || got != tt.want {
			t.Errorf("Resolve(%q) = %q, %v, want %q", tt.name, got, ok, tt.want)
		}
	}

	if _, ok := c.Resolve("Underwater Basket Weaving"); ok {
		t.Error("unknown exercise resolved")
	}
}

// TestExercisesFor verifies the per-muscle exercise listing.
func TestExercisesFor(t *testing.T) {
	c := loadTestCatalog(t)
	got := c.ExercisesFor("calves")
	if len(got) != 1 || got[0].ID != "calf_raise" {
		t.Errorf("ExercisesFor(calves) = %+v, want calf_raise only", got)
	}
}

// TestParseRejects verifies catalog validation.
func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			"unknown muscle",
			"muscle_groups: [{id: chest, name: Chest}]\nexercises:\n  - {id: a, name: A, contributions: [{muscle: quads, percentage: 50}]}\n",
			"unknown muscle group",
		},
		{
			"contribution range",
			"muscle_groups: [{id: chest, name: Chest}]\nexercises:\n  - {id: a, name: A, contributions: [{muscle: chest, percentage: 120}]}\n",
			"within [0, 100]",
		},
		{
			"duplicate exercise",
			"muscle_groups: [{id: chest, name: Chest}]\nexercises:\n  - {id: a, name: A}\n  - {id: a, name: B}\n",
			"duplicate exercise",
		},
		{
			"alias clash",
			"muscle_groups: [{id: chest, name: Chest}]\nexercises:\n  - {id: a, name: A, aliases: [Press]}\n  - {id: b, name: B, aliases: [press]}\n",
			"already used",
		},
		{
			"unknown key",
			"muscle_groups: [{id: chest, name: Chest, colour: red}]\n",
			"colour",
		},
		{
			"no muscles",
			"exercises: []\n",
			"no muscle groups",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}
