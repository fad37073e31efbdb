package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/claude/reprank/internal/models"
)

// GetBodyProfile returns the user's body profile, or nil when none is stored.
func (db *DB) GetBodyProfile(ctx context.Context, userID int) (*models.BodyProfileRow, error) {
	var p models.BodyProfileRow
	err := db.Pool.QueryRow(ctx,
		`SELECT user_id, body_weight_kg, sex, birth_date, training_since, updated_at
		 FROM body_profiles WHERE user_id = $1`, userID,
	).Scan(&p.UserID, &p.BodyWeightKg, &p.Sex, &p.BirthDate, &p.TrainingSince, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying body profile: %w", err)
	}
	return &p, nil
}

// UpsertBodyProfile creates or replaces the user's body profile.
func (db *DB) UpsertBodyProfile(ctx context.Context, p models.BodyProfileRow) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO body_profiles (user_id, body_weight_kg, sex, birth_date, training_since, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET
			body_weight_kg = EXCLUDED.body_weight_kg,
			sex = EXCLUDED.sex,
			birth_date = EXCLUDED.birth_date,
			training_since = EXCLUDED.training_since,
			updated_at = NOW()`,
		p.UserID, p.BodyWeightKg, p.Sex, p.BirthDate, p.TrainingSince)
	if err != nil {
		return fmt.Errorf("upserting body profile: %w", err)
	}
	return nil
}
