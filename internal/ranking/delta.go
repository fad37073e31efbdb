package ranking

import "github.com/claude/reprank/internal/scoring"

// Direction of a tier change.
const (
	Promotion = "promotion"
	Demotion  = "demotion"
)

// Change is the movement of one muscle group, or the overall rank, between
// two evaluations.
type Change struct {
	MuscleGroupID string       `json:"muscle_group_id,omitempty"`
	FromTier      scoring.Tier `json:"from_tier"`
	ToTier        scoring.Tier `json:"to_tier"`
	FromScore     float64      `json:"from_score"`
	ToScore       float64      `json:"to_score"`
	ScoreChange   float64      `json:"score_change"`
	Direction     string       `json:"direction,omitempty"`
}

// Delta summarizes how ranks moved between two evaluations.
type Delta struct {
	Overall    Change   `json:"overall"`
	Muscles    []Change `json:"muscles"`
	Promotions int      `json:"promotions"`
	Demotions  int      `json:"demotions"`
}

// Compare diffs two results. Muscles follow the order of after; a muscle
// missing from before is compared against a zero bronze score. Promotions
// and demotions count muscle groups only.
func Compare(before, after *scoring.Result) *Delta {
	if after == nil {
		return nil
	}
	if before == nil {
		before = &scoring.Result{OverallRank: scoring.Rank{Tier: scoring.TierBronze}}
	}

	d := &Delta{
		Overall: change("", before.OverallScore, before.OverallRank.Tier, after.OverallScore, after.OverallRank.Tier),
		Muscles: make([]Change, 0, len(after.Muscles)),
	}
	for _, m := range after.Muscles {
		prev, ok := before.Muscle(m.MuscleGroupID)
		if !ok {
			prev.Rank.Tier = scoring.TierBronze
		}
		c := change(m.MuscleGroupID, prev.Score, prev.Rank.Tier, m.Score, m.Rank.Tier)
		switch c.Direction {
		case Promotion:
			d.Promotions++
		case Demotion:
			d.Demotions++
		}
		d.Muscles = append(d.Muscles, c)
	}
	return d
}

func change(id string, fromScore float64, fromTier scoring.Tier, toScore float64, toTier scoring.Tier) Change {
	c := Change{
		MuscleGroupID: id,
		FromTier:      fromTier,
		ToTier:        toTier,
		FromScore:     fromScore,
		ToScore:       toScore,
		ScoreChange:   toScore - fromScore,
	}
	switch from, to := fromTier.Index(), toTier.Index(); {
	case to > from:
		c.Direction = Promotion
	case to < from:
		c.Direction = Demotion
	}
	return c
}

// Changed returns only the muscle groups whose tier moved.
func (d *Delta) Changed() []Change {
	if d == nil {
		return nil
	}
	var out []Change
	for _, c := range d.Muscles {
		if c.Direction != "" {
			out = append(out, c)
		}
	}
	return out
}
