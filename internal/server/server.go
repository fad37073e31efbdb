package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/claude/reprank/internal/catalog"
	"github.com/claude/reprank/internal/ingest"
	"github.com/claude/reprank/internal/metrics"
	"github.com/claude/reprank/internal/models"
	"github.com/claude/reprank/internal/scoring"
	"github.com/claude/reprank/internal/storage"
)

// Store is the persistence the HTTP handlers use directly.
type Store interface {
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)
	GetBodyProfile(ctx context.Context, userID int) (*models.BodyProfileRow, error)
	UpsertBodyProfile(ctx context.Context, p models.BodyProfileRow) error
	QueryWorkoutSets(ctx context.Context, f storage.SetFilter, userID int) ([]models.WorkoutSetRow, error)
	PersonalRecordHistory(ctx context.Context, userID int, exerciseID string, limit int) ([]models.PersonalRecordRow, error)
	GetDataStats(ctx context.Context, userID int) (*storage.DataStats, error)
	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
	QueryImportLogs(ctx context.Context, userID, limit int) ([]storage.ImportLog, error)
}

// Ranker evaluates a user's ranks. *ranking.Service implements it.
type Ranker interface {
	Evaluate(ctx context.Context, userID int, asOf time.Time) (*scoring.Result, error)
	Config() *scoring.Config
	Catalog() *catalog.Catalog
}

// Ingester imports a workout export for a user.
type Ingester interface {
	Ingest(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	db      Store
	ranks   Ranker
	alpha   Ingester
	metrics *metrics.Manager
	log     *slog.Logger
	apiKey  string
	router  chi.Router
	now     func() time.Time

	mu    sync.RWMutex
	whois WhoIsClient
}

// New creates a new Server with all routes configured. m may be nil.
func New(db Store, ranks Ranker, alphaProvider Ingester, apiKey string, m *metrics.Manager, log *slog.Logger) *Server {
	s := &Server{
		db:      db,
		ranks:   ranks,
		alpha:   alphaProvider,
		metrics: m,
		log:     log,
		apiKey:  apiKey,
		router:  chi.NewRouter(),
		now:     time.Now,
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(RequestMetrics(s.metrics))
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.identity)

		// Writes require the API key.
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/ingest/alpha", s.handleAlphaIngest)
			r.Put("/profile", s.handlePutProfile)
		})

		// Reads are open; tsnet handles access.
		r.Get("/me", s.handleMe)
		r.Get("/ranks", s.handleRanks)
		r.Get("/ranks/{muscle}", s.handleMuscleRank)
		r.Get("/profile", s.handleGetProfile)
		r.Get("/catalog", s.handleCatalog)
		r.Get("/catalog/{muscle}", s.handleMuscleExercises)
		r.Get("/tiers", s.handleTiers)
		r.Post("/estimate", s.handleEstimate)
		r.Get("/workout-sets", s.handleWorkoutSets)
		r.Get("/records/{exercise}", s.handleRecordHistory)
		r.Get("/stats", s.handleStats)
		r.Get("/imports", s.handleImportLogs)
	})
}

// SetTailscale switches request identity from the local dev user to the
// tailnet user behind each connection.
func (s *Server) SetTailscale(lc WhoIsClient) {
	s.mu.Lock()
	s.whois = lc
	s.mu.Unlock()
}

// SetMetricsHandler exposes the registry's collectors at /metrics.
func (s *Server) SetMetricsHandler(g prometheus.Gatherer) {
	s.router.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}

// MountMCP serves an MCP handler at /mcp behind the same identity as the API.
func (s *Server) MountMCP(h http.Handler) {
	s.router.With(s.identity).Handle("/mcp", h)
}
