package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/claude/reprank/internal/models"
)

const workoutSetColumns = 16

// InsertWorkoutSets batch-inserts set data. Returns count inserted.
func (db *DB) InsertWorkoutSets(ctx context.Context, rows []models.WorkoutSetRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `INSERT INTO workout_sets (user_id, session_name, session_date, session_duration,
		exercise_number, exercise_name, exercise_id, equipment, target_reps, is_warmup, set_number,
		weight_kg, is_bodyweight_plus, reps, rir, rpe) VALUES `
	args := make([]any, 0, len(rows)*workoutSetColumns)
	valueStrings := make([]string, 0, len(rows))

	for i, r := range rows {
		valueStrings = append(valueStrings, placeholders(i*workoutSetColumns, workoutSetColumns))
		args = append(args, r.UserID, r.SessionName, r.SessionDate, r.SessionDuration,
			r.ExerciseNumber, r.ExerciseName, r.ExerciseID, r.Equipment, r.TargetReps,
			r.IsWarmup, r.SetNumber, r.WeightKg, r.IsBodyweightPlus, r.Reps, r.RIR, r.RPE)
	}

	query += strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING"

	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting workout sets: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteWorkoutSets removes every set and PR candidate of one session so a
// re-import replaces it.
func (db *DB) DeleteWorkoutSets(ctx context.Context, sessionDate time.Time, userID int) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`DELETE FROM workout_sets WHERE session_date = $1 AND user_id = $2`,
		sessionDate, userID); err != nil {
		return fmt.Errorf("deleting workout sets: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM personal_records WHERE session_date = $1 AND user_id = $2`,
		sessionDate, userID); err != nil {
		return fmt.Errorf("deleting personal records: %w", err)
	}
	return tx.Commit(ctx)
}

// SetFilter narrows QueryWorkoutSets. Empty fields match everything.
type SetFilter struct {
	Start, End time.Time
	ExerciseID string
	// WorkingOnly drops warmup sets.
	WorkingOnly bool
}

// QueryWorkoutSets retrieves workout sets in a date range.
func (db *DB) QueryWorkoutSets(ctx context.Context, f SetFilter, userID int) ([]models.WorkoutSetRow, error) {
	query := `SELECT user_id, session_name, session_date, session_duration,
		 exercise_number, exercise_name, exercise_id, equipment, target_reps,
		 is_warmup, set_number, weight_kg, is_bodyweight_plus, reps, rir, rpe
		 FROM workout_sets
		 WHERE session_date >= $1 AND session_date < $2 AND user_id = $3`
	args := []any{f.Start, f.End, userID}
	if f.ExerciseID != "" {
		args = append(args, f.ExerciseID)
		query += fmt.Sprintf(" AND exercise_id = $%d", len(args))
	}
	if f.WorkingOnly {
		query += " AND NOT is_warmup"
	}
	query += " ORDER BY session_date DESC, exercise_number ASC, is_warmup DESC, set_number ASC"

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying workout sets: %w", err)
	}
	defer rows.Close()

	var result []models.WorkoutSetRow
	for rows.Next() {
		var r models.WorkoutSetRow
		if err := rows.Scan(&r.UserID, &r.SessionName, &r.SessionDate, &r.SessionDuration,
			&r.ExerciseNumber, &r.ExerciseName, &r.ExerciseID, &r.Equipment, &r.TargetReps,
			&r.IsWarmup, &r.SetNumber, &r.WeightKg, &r.IsBodyweightPlus, &r.Reps, &r.RIR, &r.RPE); err != nil {
			return nil, fmt.Errorf("scanning workout set: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// placeholders returns "($n+1,...,$n+count)".
func placeholders(offset, count int) string {
	var b strings.Builder
	b.WriteByte('(')
	for i := 1; i <= count; i++ {
		if i > 1 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "$%d", offset+i)
	}
	b.WriteByte(')')
	return b.String()
}
