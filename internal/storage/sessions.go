package storage

import (
	"context"
	"sort"
	"time"

	"github.com/claude/reprank/internal/models"
	"github.com/claude/reprank/internal/scoring"
)

// QuerySessions loads stored sets in [start, end) as scoring sessions, oldest
// first. Sets without a catalog exercise are left out. Body-weight-plus sets
// get bodyWeightKg added when it is known.
func (db *DB) QuerySessions(ctx context.Context, start, end time.Time, userID int, bodyWeightKg float64) ([]scoring.Session, error) {
	rows, err := db.QueryWorkoutSets(ctx, SetFilter{Start: start, End: end}, userID)
	if err != nil {
		return nil, err
	}
	return groupSessions(rows, bodyWeightKg), nil
}

func groupSessions(rows []models.WorkoutSetRow, bodyWeightKg float64) []scoring.Session {
	byDate := make(map[time.Time]*scoring.Session)
	var dates []time.Time

	for _, r := range rows {
		key := r.SessionDate.UTC()
		sess, ok := byDate[key]
		if !ok {
			sess = &scoring.Session{Date: key}
			byDate[key] = sess
			dates = append(dates, key)
		}
		if r.ExerciseID == nil {
			continue
		}
		weight := r.WeightKg
		if r.IsBodyweightPlus && bodyWeightKg > 0 {
			weight += bodyWeightKg
		}
		sess.Sets = append(sess.Sets, scoring.LoggedSet{
			ExerciseID: *r.ExerciseID,
			SetRecord: scoring.SetRecord{
				Weight:   weight,
				Reps:     r.Reps,
				RPE:      r.RPE,
				IsWarmup: r.IsWarmup,
			},
		})
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	out := make([]scoring.Session, 0, len(dates))
	for _, d := range dates {
		out = append(out, *byDate[d])
	}
	return out
}
