package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ImportLog represents a single import operation's outcome.
type ImportLog struct {
	ID               int64            `json:"id"`
	UserID           int              `json:"user_id"`
	CreatedAt        time.Time        `json:"created_at"`
	Source           string           `json:"source"`
	Status           string           `json:"status"`
	SessionsReceived int              `json:"sessions_received"`
	SetsReceived     int              `json:"sets_received"`
	SetsInserted     int64            `json:"sets_inserted"`
	RecordsStored    int64            `json:"records_stored"`
	DurationMs       *int             `json:"duration_ms"`
	ErrorMessage     *string          `json:"error_message"`
	Metadata         *json.RawMessage `json:"metadata"`
}

// InsertImportLog creates a new import log entry and returns its ID.
func (db *DB) InsertImportLog(ctx context.Context, log ImportLog) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO import_logs (user_id, source, status, sessions_received, sets_received,
		 sets_inserted, records_stored, duration_ms, error_message, metadata)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 RETURNING id`,
		log.UserID, log.Source, log.Status, log.SessionsReceived, log.SetsReceived,
		log.SetsInserted, log.RecordsStored, log.DurationMs, log.ErrorMessage, log.Metadata,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting import log: %w", err)
	}
	return id, nil
}

// QueryImportLogs returns the most recent import logs for a user.
func (db *DB) QueryImportLogs(ctx context.Context, userID, limit int) ([]ImportLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, created_at, source, status, sessions_received, sets_received,
		 sets_inserted, records_stored, duration_ms, error_message, metadata
		 FROM import_logs
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying import logs: %w", err)
	}
	defer rows.Close()

	var result []ImportLog
	for rows.Next() {
		var l ImportLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.CreatedAt, &l.Source, &l.Status,
			&l.SessionsReceived, &l.SetsReceived, &l.SetsInserted, &l.RecordsStored,
			&l.DurationMs, &l.ErrorMessage, &l.Metadata); err != nil {
			return nil, fmt.Errorf("scanning import log: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}
