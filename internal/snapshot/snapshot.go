package snapshot

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/claude/reprank/internal/scoring"
)

// timeLayout has fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Snapshot is one stored evaluation.
type Snapshot struct {
	ID            uuid.UUID       `json:"id"`
	CreatedAt     time.Time       `json:"created_at"`
	AsOf          time.Time       `json:"as_of"`
	SourceHash    string          `json:"source_hash,omitempty"`
	ConfigVersion string          `json:"config_version"`
	OverallScore  float64         `json:"overall_score"`
	OverallTier   scoring.Tier    `json:"overall_tier"`
	Result        *scoring.Result `json:"result,omitempty"`
}

// Store keeps rank snapshots in a local SQLite file so offline runs can
// report how ranks moved since the previous run. It also remembers which
// export files were already uploaded to a server.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the snapshot database at dir/snapshots.db.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "snapshots.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		id             TEXT PRIMARY KEY,
		created_at     TEXT NOT NULL,
		as_of          TEXT NOT NULL,
		source_hash    TEXT NOT NULL DEFAULT '',
		config_version TEXT NOT NULL,
		overall_score  REAL NOT NULL,
		overall_tier   TEXT NOT NULL,
		result         TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating snapshot table: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS uploaded_files (
		path        TEXT PRIMARY KEY,
		size        INTEGER NOT NULL,
		hash        TEXT NOT NULL,
		uploaded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating upload state table: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Save stores an evaluation. sourceHash identifies the export it was scored from.
func (s *Store) Save(res *scoring.Result, sourceHash string) (*Snapshot, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}

	snap := &Snapshot{
		ID:            uuid.New(),
		CreatedAt:     s.now().UTC(),
		AsOf:          res.AsOf.UTC(),
		SourceHash:    sourceHash,
		ConfigVersion: res.ConfigVersion,
		OverallScore:  res.OverallScore,
		OverallTier:   res.OverallRank.Tier,
		Result:        res,
	}
	_, err = s.db.Exec(
		`INSERT INTO snapshots (id, created_at, as_of, source_hash, config_version, overall_score, overall_tier, result)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID.String(), snap.CreatedAt.Format(timeLayout), snap.AsOf.Format(timeLayout),
		snap.SourceHash, snap.ConfigVersion, snap.OverallScore, string(snap.OverallTier), string(data),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting snapshot: %w", err)
	}
	return snap, nil
}

// Latest returns the most recently saved snapshot, or nil when none exist.
func (s *Store) Latest() (*Snapshot, error) {
	snaps, err := s.query(`ORDER BY created_at DESC, rowid DESC LIMIT 1`, true)
	if err != nil || len(snaps) == 0 {
		return nil, err
	}
	return &snaps[0], nil
}

// History lists snapshots newest first without their full results.
func (s *Store) History(limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.query(fmt.Sprintf(`ORDER BY created_at DESC, rowid DESC LIMIT %d`, limit), false)
}

func (s *Store) query(tail string, withResult bool) ([]Snapshot, error) {
	rows, err := s.db.Query(`SELECT id, created_at, as_of, source_hash, config_version, overall_score, overall_tier, result
		FROM snapshots ` + tail)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var (
			snap              Snapshot
			id, created, asOf string
			tier, result      string
		)
		if err := rows.Scan(&id, &created, &asOf, &snap.SourceHash, &snap.ConfigVersion,
			&snap.OverallScore, &tier, &result); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		if snap.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("snapshot id %q: %w", id, err)
		}
		if snap.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("snapshot %s created_at: %w", id, err)
		}
		if snap.AsOf, err = time.Parse(timeLayout, asOf); err != nil {
			return nil, fmt.Errorf("snapshot %s as_of: %w", id, err)
		}
		snap.OverallTier = scoring.Tier(tier)
		if withResult {
			snap.Result = new(scoring.Result)
			if err := json.Unmarshal([]byte(result), snap.Result); err != nil {
				return nil, fmt.Errorf("decoding snapshot %s: %w", id, err)
			}
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// IsUploaded checks if a file has already been uploaded with the same size and hash.
func (s *Store) IsUploaded(relPath string, size int64, hash string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM uploaded_files WHERE path = ? AND size = ? AND hash = ?`,
		relPath, size, hash,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkUploaded records that a file was successfully uploaded.
func (s *Store) MarkUploaded(relPath string, size int64, hash string) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO uploaded_files (path, size, hash) VALUES (?, ?, ?)`,
		relPath, size, hash,
	)
	return err
}

// Close closes the snapshot database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ErrEmptyFile is returned by HashFile for zero-length files.
var ErrEmptyFile = errors.New("file is empty")

// HashFile computes the SHA-256 hash of a file.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", fmt.Errorf("%s: %w", path, ErrEmptyFile)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
