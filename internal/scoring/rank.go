package scoring

// Rank is the tier a score falls in and the progress toward the next tier.
type Rank struct {
	Tier     Tier    `json:"tier"`
	Progress float64 `json:"progress"`
	Next     Tier    `json:"next,omitempty"`
}

// ResolveRank maps a 0-100 score to its tier. Progress is the percentage of
// the way from the tier's minimum to the next tier's minimum; Mythic is
// always reported at 100.
func ResolveRank(cfg *Config, score float64) (Rank, error) {
	if isNaN(score) || score < 0 || score > 100 {
		return Rank{}, inputErr("score", score, "must be within [0, 100]")
	}

	last := len(cfg.tiers) - 1
	for i, t := range cfg.tiers {
		if i < last && score >= t.Max {
			continue
		}
		if i == last {
			return Rank{Tier: t.tier, Progress: 100}, nil
		}
		next := cfg.tiers[i+1]
		progress := (score - t.Min) / (next.Min - t.Min) * 100
		return Rank{Tier: t.tier, Progress: clamp(progress, 0, 100), Next: next.tier}, nil
	}
	return Rank{}, configErr("rank_tiers", "no tier covers %v", score)
}
