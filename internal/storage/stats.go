package storage

import (
	"context"
	"fmt"
	"time"
)

// DataStats holds aggregate statistics about a user's stored training data.
type DataStats struct {
	TotalSessions   int64          `json:"total_sessions"`
	TotalSets       int64          `json:"total_sets"`
	UnmatchedSets   int64          `json:"unmatched_sets"`
	PersonalRecords int64          `json:"personal_records"`
	EarliestSession *time.Time     `json:"earliest_session"`
	LatestSession   *time.Time     `json:"latest_session"`
	SetsByExercise  []ExerciseStat `json:"sets_by_exercise"`
}

// ExerciseStat holds summary stats for a single exercise.
type ExerciseStat struct {
	ExerciseID  string  `json:"exercise_id"`
	WorkingSets int64   `json:"working_sets"`
	TotalVolume float64 `json:"total_volume_kg"`
	BestE1RM    float64 `json:"best_estimated_1rm"`
}

// GetDataStats returns aggregate statistics for a user's stored data.
func (db *DB) GetDataStats(ctx context.Context, userID int) (*DataStats, error) {
	stats := &DataStats{}

	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT session_date), COUNT(*), COUNT(*) FILTER (WHERE exercise_id IS NULL),
		 MIN(session_date), MAX(session_date)
		 FROM workout_sets WHERE user_id = $1`, userID,
	).Scan(&stats.TotalSessions, &stats.TotalSets, &stats.UnmatchedSets,
		&stats.EarliestSession, &stats.LatestSession)
	if err != nil {
		return nil, fmt.Errorf("counting sets: %w", err)
	}

	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM personal_records WHERE user_id = $1`, userID,
	).Scan(&stats.PersonalRecords)
	if err != nil {
		return nil, fmt.Errorf("counting personal records: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT s.exercise_id, COUNT(*), COALESCE(SUM(s.weight_kg * s.reps), 0),
		 COALESCE((SELECT MAX(p.estimated_1rm) FROM personal_records p
		           WHERE p.user_id = $1 AND p.exercise_id = s.exercise_id), 0)
		 FROM workout_sets s
		 WHERE s.user_id = $1 AND s.exercise_id IS NOT NULL AND NOT s.is_warmup
		 GROUP BY s.exercise_id
		 ORDER BY COUNT(*) DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying sets by exercise: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s ExerciseStat
		if err := rows.Scan(&s.ExerciseID, &s.WorkingSets, &s.TotalVolume, &s.BestE1RM); err != nil {
			return nil, fmt.Errorf("scanning exercise stat: %w", err)
		}
		stats.SetsByExercise = append(stats.SetsByExercise, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
