package alpha

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/claude/reprank/internal/catalog"
	"github.com/claude/reprank/internal/ingest"
	"github.com/claude/reprank/internal/metrics"
	"github.com/claude/reprank/internal/models"
	"github.com/claude/reprank/internal/scoring"
)

// Store is the persistence the provider writes to.
type Store interface {
	DeleteWorkoutSets(ctx context.Context, sessionDate time.Time, userID int) error
	InsertWorkoutSets(ctx context.Context, rows []models.WorkoutSetRow) (int64, error)
	UpsertPersonalRecords(ctx context.Context, rows []models.PersonalRecordRow) (int64, error)
	GetBodyProfile(ctx context.Context, userID int) (*models.BodyProfileRow, error)
}

// Provider processes Alpha Progression CSV exports.
type Provider struct {
	store   Store
	catalog *catalog.Catalog
	scoring *scoring.Config
	metrics *metrics.Manager
	log     *slog.Logger
}

// NewProvider creates a new Alpha Progression ingest provider.
func NewProvider(store Store, cat *catalog.Catalog, cfg *scoring.Config, m *metrics.Manager, log *slog.Logger) *Provider {
	return &Provider{store: store, catalog: cat, scoring: cfg, metrics: m, log: log}
}

// Ingest parses a CSV export, replaces the stored sets of every session it
// contains and stores each session's best set per exercise as a PR candidate.
func (p *Provider) Ingest(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error) {
	sessions, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}

	var bodyWeight float64
	profile, err := p.store.GetBodyProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading body profile: %w", err)
	}
	if profile != nil {
		bodyWeight = profile.BodyWeightKg
	}

	result := &ingest.Result{SessionsReceived: len(sessions)}
	var allRows []models.WorkoutSetRow

	// Delete existing sets per session so re-imports always reflect the latest parser output.
	for _, s := range sessions {
		if err := p.store.DeleteWorkoutSets(ctx, s.Date, userID); err != nil {
			return nil, fmt.Errorf("deleting existing sets for session %s: %w", s.Date.Format("2006-01-02"), err)
		}
		for _, ex := range s.Exercises {
			var exerciseID *string
			if id, ok := p.catalog.Resolve(ex.Name); ok {
				exerciseID = &id
			}
			for _, set := range ex.Sets {
				allRows = append(allRows, models.WorkoutSetRow{
					UserID:           userID,
					SessionName:      s.Name,
					SessionDate:      s.Date,
					SessionDuration:  s.Duration,
					ExerciseNumber:   ex.Number,
					ExerciseName:     ex.Name,
					ExerciseID:       exerciseID,
					Equipment:        ex.Equipment,
					TargetReps:       ex.TargetReps,
					IsWarmup:         set.IsWarmup,
					SetNumber:        set.Number,
					WeightKg:         set.WeightKg,
					IsBodyweightPlus: set.IsBodyweightPlus,
					Reps:             set.Reps,
					RIR:              set.RIR,
					RPE:              set.RPE(),
				})
			}
		}
	}

	if len(allRows) > 0 {
		inserted, err := p.store.InsertWorkoutSets(ctx, allRows)
		if err != nil {
			return nil, fmt.Errorf("inserting sets: %w", err)
		}
		result.SetsReceived = len(allRows)
		result.SetsInserted = inserted
		result.SetsSkipped = int64(len(allRows)) - inserted
		p.metrics.SetsIngested(ingest.SourceAlpha, inserted)
	}

	scored, unknown := ToSessions(sessions, p.catalog, bodyWeight)
	result.UnknownExercises = unknown
	if len(unknown) > 0 {
		p.log.Warn("exercises not in catalog", "names", unknown)
	}

	candidates := scoring.DerivePersonalRecords(p.scoring, scored)
	if len(candidates) > 0 {
		rows := make([]models.PersonalRecordRow, 0, len(candidates))
		for _, c := range candidates {
			rows = append(rows, models.PersonalRecordRow{
				UserID:       userID,
				ExerciseID:   c.ExerciseID,
				SessionDate:  c.Date,
				WeightKg:     c.Weight,
				Reps:         c.Reps,
				Estimated1RM: c.Estimated1RM,
			})
		}
		stored, err := p.store.UpsertPersonalRecords(ctx, rows)
		if err != nil {
			return nil, fmt.Errorf("storing personal records: %w", err)
		}
		result.RecordsStored = stored
	}

	p.log.Info("alpha import", "user_id", userID, "sessions", len(sessions),
		"sets", result.SetsInserted, "records", result.RecordsStored)
	return result, nil
}
