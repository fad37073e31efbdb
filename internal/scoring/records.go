package scoring

import (
	"math"
	"time"
)

// DerivePersonalRecords returns one PR candidate per exercise per session:
// the working set with the highest estimated 1RM. Sets without a positive
// weight or at least one rep are skipped.
func DerivePersonalRecords(cfg *Config, sessions []Session) []PersonalRecord {
	var out []PersonalRecord
	for _, sess := range sessions {
		index := make(map[string]int)
		for _, s := range sess.Sets {
			if s.IsWarmup || s.ExerciseID == "" || !finite(s.Weight) || s.Weight <= 0 || s.Reps < 1 {
				continue
			}
			e1rm, err := EstimateOneRepMax(cfg, s.Weight, s.Reps)
			if err != nil {
				continue
			}
			pr := PersonalRecord{
				ExerciseID:   s.ExerciseID,
				Weight:       s.Weight,
				Reps:         s.Reps,
				Estimated1RM: e1rm,
				Date:         sess.Date,
			}
			i, seen := index[s.ExerciseID]
			if !seen {
				index[s.ExerciseID] = len(out)
				out = append(out, pr)
				continue
			}
			if e1rm > out[i].Estimated1RM {
				out[i] = pr
			}
		}
	}
	return out
}

// BestRecords reduces a PR history to the best record per exercise. Records
// without a positive estimated 1RM never qualify; ties keep the earliest date.
func BestRecords(records []PersonalRecord) map[string]PersonalRecord {
	best := make(map[string]PersonalRecord)
	for _, r := range records {
		if !finite(r.Estimated1RM) || r.Estimated1RM <= 0 {
			continue
		}
		cur, ok := best[r.ExerciseID]
		switch {
		case !ok, r.Estimated1RM > cur.Estimated1RM:
			best[r.ExerciseID] = r
		case r.Estimated1RM == cur.Estimated1RM && r.Date.Before(cur.Date):
			best[r.ExerciseID] = r
		}
	}
	return best
}

// DaysBetween returns whole days from since to asOf, never negative.
func DaysBetween(since, asOf time.Time) float64 {
	d := math.Floor(asOf.Sub(since).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
