package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/reprank/internal/catalog"
	"github.com/claude/reprank/internal/metrics"
	"github.com/claude/reprank/internal/models"
	"github.com/claude/reprank/internal/scoring"
)

// HistoryDays is how far back sessions are loaded for one evaluation. It
// covers the evidence windows, the volume lookback and a year of streaks.
const HistoryDays = 365

// Store is the persistence an evaluation reads from.
type Store interface {
	GetBodyProfile(ctx context.Context, userID int) (*models.BodyProfileRow, error)
	BestPersonalRecords(ctx context.Context, userID int, asOf time.Time) ([]scoring.PersonalRecord, error)
	QuerySessions(ctx context.Context, start, end time.Time, userID int, bodyWeightKg float64) ([]scoring.Session, error)
}

// Service evaluates ranks from stored training data.
type Service struct {
	store   Store
	catalog *catalog.Catalog
	scoring *scoring.Config
	metrics *metrics.Manager
	log     *slog.Logger
}

// NewService creates a ranking service.
func NewService(store Store, cat *catalog.Catalog, cfg *scoring.Config, m *metrics.Manager, log *slog.Logger) *Service {
	return &Service{store: store, catalog: cat, scoring: cfg, metrics: m, log: log}
}

// Config returns the scoring configuration the service evaluates with.
func (s *Service) Config() *scoring.Config { return s.scoring }

// Catalog returns the exercise catalog the service evaluates against.
func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

// Evaluate scores a user's ranks as of the given instant.
func (s *Service) Evaluate(ctx context.Context, userID int, asOf time.Time) (res *scoring.Result, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveEvaluation(start, err) }()

	in, err := s.Input(ctx, userID, asOf)
	if err != nil {
		return nil, err
	}
	res, err = scoring.Evaluate(s.scoring, in)
	if err != nil {
		return nil, fmt.Errorf("evaluating user %d: %w", userID, err)
	}
	s.log.Debug("ranks evaluated", "user_id", userID, "as_of", asOf,
		"overall", res.OverallRank.Tier, "score", res.OverallScore, "took", time.Since(start))
	return res, nil
}

// Input loads everything an evaluation needs from the store.
func (s *Service) Input(ctx context.Context, userID int, asOf time.Time) (scoring.Input, error) {
	row, err := s.store.GetBodyProfile(ctx, userID)
	if err != nil {
		return scoring.Input{}, fmt.Errorf("loading body profile: %w", err)
	}
	profile, err := ProfileFromRow(row, asOf)
	if err != nil {
		return scoring.Input{}, err
	}

	records, err := s.store.BestPersonalRecords(ctx, userID, asOf)
	if err != nil {
		return scoring.Input{}, fmt.Errorf("loading personal records: %w", err)
	}

	var bodyWeight float64
	if profile != nil {
		bodyWeight = profile.BodyWeight
	}
	// The store range is end-exclusive; a session at asOf still counts.
	sessions, err := s.store.QuerySessions(ctx, asOf.AddDate(0, 0, -HistoryDays), asOf.Add(time.Nanosecond), userID, bodyWeight)
	if err != nil {
		return scoring.Input{}, fmt.Errorf("loading sessions: %w", err)
	}

	return scoring.Input{
		AsOf:         asOf,
		Profile:      profile,
		MuscleGroups: s.catalog.MuscleGroups,
		Exercises:    s.catalog.Exercises,
		Records:      records,
		Sessions:     sessions,
	}, nil
}

// ProfileFromRow converts a stored body profile into the engine's profile.
// Age and training age are taken on the day of asOf. A nil row yields a nil
// profile, which skips strength scoring.
func ProfileFromRow(row *models.BodyProfileRow, asOf time.Time) (*scoring.BodyProfile, error) {
	if row == nil {
		return nil, nil
	}
	sex, err := scoring.ParseSex(row.Sex)
	if err != nil {
		return nil, fmt.Errorf("body profile: %w", err)
	}
	p := &scoring.BodyProfile{BodyWeight: row.BodyWeightKg, Sex: sex}
	if row.BirthDate != nil {
		p.Age = scoring.AgeAt(*row.BirthDate, asOf)
	}
	if row.TrainingSince != nil && row.TrainingSince.Before(asOf) {
		p.TrainingAgeYears = asOf.Sub(*row.TrainingSince).Hours() / 24 / 365.25
	}
	return p, nil
}
