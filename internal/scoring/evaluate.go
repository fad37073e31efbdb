package scoring

import (
	"fmt"
	"time"
)

// Input is everything one evaluation needs. WeeklyHardSets and Evidence are
// derived from Sessions when nil.
type Input struct {
	AsOf           time.Time
	Profile        *BodyProfile
	MuscleGroups   []MuscleGroup
	Exercises      []ExerciseDefinition
	Records        []PersonalRecord
	Sessions       []Session
	WeeklyHardSets map[string]float64
	Evidence       *EvidenceWindow
}

// Contributor is one exercise's share of a muscle group's strength score.
type Contributor struct {
	ExerciseID   string    `json:"exercise_id"`
	Contribution float64   `json:"contribution"`
	Estimated1RM float64   `json:"estimated_1rm"`
	PRDate       time.Time `json:"pr_date"`
	DaysSincePR  float64   `json:"days_since_pr"`
	RawScore     float64   `json:"raw_score"`
	DecayedScore float64   `json:"decayed_score"`
}

// MuscleResult is the scored state of one muscle group.
type MuscleResult struct {
	MuscleGroupID  string        `json:"muscle_group_id"`
	Name           string        `json:"name"`
	StrengthScore  float64       `json:"strength_score"`
	VolumeScore    float64       `json:"volume_score"`
	CompositeScore float64       `json:"composite_score"`
	Ceiling        float64       `json:"ceiling"`
	Score          float64       `json:"score"`
	WeeklyHardSets float64       `json:"weekly_hard_sets"`
	Rank           Rank          `json:"rank"`
	Contributors   []Contributor `json:"contributors,omitempty"`
}

// EvidenceSummary records which window gated the scores.
type EvidenceSummary struct {
	EvidenceWindow
	EffectiveSessions int `json:"effective_sessions"`
	WindowDays        int `json:"window_days"`
}

// Result is the outcome of one evaluation. Muscles keep catalog order.
type Result struct {
	AsOf            time.Time       `json:"as_of"`
	ConfigVersion   string          `json:"config_version"`
	Muscles         []MuscleResult  `json:"muscles"`
	OverallScore    float64         `json:"overall_score"`
	OverallRank     Rank            `json:"overall_rank"`
	Evidence        EvidenceSummary `json:"evidence"`
	Recovery        []RecoveryState `json:"recovery"`
	Streak          Streak          `json:"streak"`
	StrengthSkipped bool            `json:"strength_skipped"`
}

// Muscle returns the result for a muscle group id.
func (r *Result) Muscle(id string) (MuscleResult, bool) {
	for _, m := range r.Muscles {
		if m.MuscleGroupID == id {
			return m, true
		}
	}
	return MuscleResult{}, false
}

// Evaluate scores every muscle group in the catalog plus the overall rank.
// Missing data yields zero scores, not errors. Records dated after AsOf are
// ignored so past instants can be re-evaluated from a full history.
func Evaluate(cfg *Config, in Input) (*Result, error) {
	scoreStrength, err := in.Profile.complete()
	if err != nil {
		return nil, err
	}

	var profile BodyProfile
	if in.Profile != nil {
		profile = *in.Profile
	}

	records := make([]PersonalRecord, 0, len(in.Records))
	for _, r := range in.Records {
		if !r.Date.After(in.AsOf) {
			records = append(records, r)
		}
	}
	best := BestRecords(records)

	evidence := CountSessions(in.Sessions, in.AsOf)
	if in.Evidence != nil {
		evidence = *in.Evidence
	}
	if evidence.Sessions28 < 0 || evidence.Sessions56 < 0 {
		return nil, inputErr("session count", float64(min(evidence.Sessions28, evidence.Sessions56)), "must not be negative")
	}
	effective, window := EffectiveSessions(evidence)

	weekly := in.WeeklyHardSets
	if weekly == nil {
		weekly = WeeklyHardSets(cfg, in.Sessions, in.Exercises, in.AsOf)
	}

	res := &Result{
		AsOf:            in.AsOf,
		ConfigVersion:   cfg.Version,
		Muscles:         make([]MuscleResult, 0, len(in.MuscleGroups)),
		Evidence:        EvidenceSummary{EvidenceWindow: evidence, EffectiveSessions: effective, WindowDays: window},
		StrengthSkipped: !scoreStrength,
	}

	scores := make([]float64, 0, len(in.MuscleGroups))
	for _, m := range in.MuscleGroups {
		mr := MuscleResult{MuscleGroupID: m.ID, Name: m.Name, WeeklyHardSets: weekly[m.ID]}

		if scoreStrength {
			mr.StrengthScore, mr.Contributors, err = MuscleStrength(cfg, m.ID, in.Exercises, best, profile, in.AsOf)
			if err != nil {
				return nil, fmt.Errorf("muscle %s: %w", m.ID, err)
			}
		}
		if mr.VolumeScore, err = VolumeScore(cfg, mr.WeeklyHardSets, profile.TrainingAgeYears); err != nil {
			return nil, fmt.Errorf("muscle %s: %w", m.ID, err)
		}
		if mr.CompositeScore, err = CompositeScore(cfg, mr.StrengthScore, mr.VolumeScore); err != nil {
			return nil, fmt.Errorf("muscle %s: %w", m.ID, err)
		}

		gated, ceiling, err := ApplyEvidenceGate(cfg, mr.CompositeScore, evidence)
		if err != nil {
			return nil, err
		}
		mr.Ceiling = ceiling
		mr.Score = clamp(gated, 0, 100)
		if mr.Rank, err = ResolveRank(cfg, mr.Score); err != nil {
			return nil, err
		}

		scores = append(scores, mr.Score)
		res.Muscles = append(res.Muscles, mr)
	}

	res.OverallScore = OverallScore(scores)
	if res.OverallRank, err = ResolveRank(cfg, res.OverallScore); err != nil {
		return nil, err
	}
	res.Recovery = RecoveryStates(cfg, in.Sessions, in.Exercises, in.MuscleGroups, in.AsOf)
	res.Streak = TrainingStreak(cfg, in.Sessions, in.AsOf)
	return res, nil
}

// ExerciseStrength scores one exercise's best record: normalized, mapped to a
// percentile score and decayed by the days since the record was set.
func ExerciseStrength(cfg *Config, ex ExerciseDefinition, pr PersonalRecord, profile BodyProfile, asOf time.Time) (Contributor, error) {
	c := Contributor{
		ExerciseID:   ex.ID,
		Estimated1RM: pr.Estimated1RM,
		PRDate:       pr.Date,
		DaysSincePR:  DaysBetween(pr.Date, asOf),
	}
	metric, err := NormalizeStrength(cfg, pr.Estimated1RM, profile, ex.Standard())
	if err != nil {
		return c, err
	}
	if c.RawScore, err = PercentileScore(cfg, metric, profile.Sex); err != nil {
		return c, err
	}
	if c.DecayedScore, err = DecayScore(cfg, c.RawScore, c.DaysSincePR); err != nil {
		return c, err
	}
	return c, nil
}

// MuscleStrength is the contribution-weighted average of the decayed strength
// scores of every exercise with a qualifying record that contributes at least
// min_contribution to the muscle, scaled by min(1, maxContribution/full_credit).
// Exercises without a record drop out of both numerator and denominator.
func MuscleStrength(cfg *Config, muscleGroupID string, exercises []ExerciseDefinition, best map[string]PersonalRecord, profile BodyProfile, asOf time.Time) (float64, []Contributor, error) {
	var (
		sum, weights, maxContribution float64
		contributors                  []Contributor
	)
	for _, ex := range exercises {
		pct, ok := ex.ContributionTo(muscleGroupID)
		if !ok || pct < cfg.Aggregation.MinContribution {
			continue
		}
		if pct > 100 {
			return 0, nil, inputErr("contribution", pct, "must be within [0, 100]")
		}
		pr, ok := best[ex.ID]
		if !ok {
			continue
		}
		c, err := ExerciseStrength(cfg, ex, pr, profile, asOf)
		if err != nil {
			return 0, nil, fmt.Errorf("exercise %s: %w", ex.ID, err)
		}
		c.Contribution = pct

		w := pct / 100
		sum += c.DecayedScore * w
		weights += w
		if pct > maxContribution {
			maxContribution = pct
		}
		contributors = append(contributors, c)
	}
	if weights == 0 {
		return 0, contributors, nil
	}
	scale := min(1, maxContribution/cfg.Aggregation.FullCreditContribution)
	return clamp(sum/weights*scale, 0, 100), contributors, nil
}

// OverallScore is the plain mean of per-muscle scores; untrained muscles count as 0.
func OverallScore(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return clamp(sum/float64(len(scores)), 0, 100)
}
