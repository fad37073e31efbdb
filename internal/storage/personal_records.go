package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/claude/reprank/internal/models"
	"github.com/claude/reprank/internal/scoring"
)

const personalRecordColumns = 6

// UpsertPersonalRecords stores PR candidates, one per exercise per session.
// A re-imported session overwrites its earlier candidate.
func (db *DB) UpsertPersonalRecords(ctx context.Context, rows []models.PersonalRecordRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `INSERT INTO personal_records (user_id, exercise_id, session_date, weight_kg, reps, estimated_1rm) VALUES `
	args := make([]any, 0, len(rows)*personalRecordColumns)
	valueStrings := make([]string, 0, len(rows))
	for i, r := range rows {
		valueStrings = append(valueStrings, placeholders(i*personalRecordColumns, personalRecordColumns))
		args = append(args, r.UserID, r.ExerciseID, r.SessionDate, r.WeightKg, r.Reps, r.Estimated1RM)
	}
	query += strings.Join(valueStrings, ",") + `
		ON CONFLICT (user_id, exercise_id, session_date) DO UPDATE
		SET weight_kg = EXCLUDED.weight_kg, reps = EXCLUDED.reps, estimated_1rm = EXCLUDED.estimated_1rm`

	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("upserting personal records: %w", err)
	}
	return tag.RowsAffected(), nil
}

// BestPersonalRecords returns the best record per exercise set on or before
// asOf. Ties keep the earliest session.
func (db *DB) BestPersonalRecords(ctx context.Context, userID int, asOf time.Time) ([]scoring.PersonalRecord, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT DISTINCT ON (exercise_id) exercise_id, weight_kg, reps, estimated_1rm, session_date
		 FROM personal_records
		 WHERE user_id = $1 AND session_date <= $2 AND estimated_1rm > 0
		 ORDER BY exercise_id, estimated_1rm DESC, session_date ASC`,
		userID, asOf)
	if err != nil {
		return nil, fmt.Errorf("querying personal records: %w", err)
	}
	defer rows.Close()

	var result []scoring.PersonalRecord
	for rows.Next() {
		var r scoring.PersonalRecord
		if err := rows.Scan(&r.ExerciseID, &r.Weight, &r.Reps, &r.Estimated1RM, &r.Date); err != nil {
			return nil, fmt.Errorf("scanning personal record: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// PersonalRecordHistory returns every stored candidate for one exercise, newest first.
func (db *DB) PersonalRecordHistory(ctx context.Context, userID int, exerciseID string, limit int) ([]models.PersonalRecordRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT user_id, exercise_id, session_date, weight_kg, reps, estimated_1rm
		 FROM personal_records
		 WHERE user_id = $1 AND exercise_id = $2
		 ORDER BY session_date DESC
		 LIMIT $3`,
		userID, exerciseID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying record history: %w", err)
	}
	defer rows.Close()

	var result []models.PersonalRecordRow
	for rows.Next() {
		var r models.PersonalRecordRow
		if err := rows.Scan(&r.UserID, &r.ExerciseID, &r.SessionDate, &r.WeightKg, &r.Reps, &r.Estimated1RM); err != nil {
			return nil, fmt.Errorf("scanning record history: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
