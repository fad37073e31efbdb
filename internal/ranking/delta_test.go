package ranking

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/claude/reprank/internal/scoring"
)

func result(overall float64, overallTier scoring.Tier, muscles ...scoring.MuscleResult) *scoring.Result {
	return &scoring.Result{
		OverallScore: overall,
		OverallRank:  scoring.Rank{Tier: overallTier},
		Muscles:      muscles,
	}
}

func muscle(id string, score float64, tier scoring.Tier) scoring.MuscleResult {
	return scoring.MuscleResult{MuscleGroupID: id, Score: score, Rank: scoring.Rank{Tier: tier}}
}

// TestCompare verifies promotions, demotions and unchanged muscles.
func TestCompare(t *testing.T) {
	before := result(30, scoring.TierSilver,
		muscle("chest", 45, scoring.TierSilver),
		muscle("lats", 62, scoring.TierGold),
		muscle("quads", 20, scoring.TierBronze),
	)
	after := result(35, scoring.TierSilver,
		muscle("chest", 52, scoring.TierGold),
		muscle("lats", 58, scoring.TierSilver),
		muscle("quads", 22, scoring.TierBronze),
	)

	d := Compare(before, after)
	if d.Promotions != 1 || d.Demotions != 1 {
		t.Errorf("promotions/demotions = %d/%d, want 1/1", d.Promotions, d.Demotions)
	}
	if d.Overall.Direction != "" || d.Overall.ScoreChange != 5 {
		t.Errorf("overall = %+v, want no tier change and +5", d.Overall)
	}

	want := []Change{
		{MuscleGroupID: "chest", FromTier: scoring.TierSilver, ToTier: scoring.TierGold, FromScore: 45, ToScore: 52, ScoreChange: 7, Direction: Promotion},
		{MuscleGroupID: "lats", FromTier: scoring.TierGold, ToTier: scoring.TierSilver, FromScore: 62, ToScore: 58, ScoreChange: -4, Direction: Demotion},
	}
	if diff := cmp.Diff(want, d.Changed()); diff != "" {
		t.Errorf("Changed() mismatch (-want +got):\n%s", diff)
	}
}

// TestCompareFirstEvaluation verifies a nil baseline compares against bronze zero.
func TestCompareFirstEvaluation(t *testing.T) {
	after := result(40, scoring.TierSilver,
		muscle("chest", 55, scoring.TierGold),
		muscle("quads", 10, scoring.TierBronze),
	)

	d := Compare(nil, after)
	if d.Promotions != 1 || d.Demotions != 0 {
		t.Errorf("promotions/demotions = %d/%d, want 1/0", d.Promotions, d.Demotions)
	}
	if d.Overall.Direction != Promotion {
		t.Errorf("overall direction = %q, want promotion", d.Overall.Direction)
	}
	if Compare(before(), nil) != nil {
		t.Error("Compare with nil after should be nil")
	}
}

func before() *scoring.Result { return result(0, scoring.TierBronze) }
