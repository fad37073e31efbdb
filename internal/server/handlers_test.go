package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/claude/reprank/internal/catalog"
	"github.com/claude/reprank/internal/ingest"
	"github.com/claude/reprank/internal/metrics"
	"github.com/claude/reprank/internal/models"
	"github.com/claude/reprank/internal/scoring"
	"github.com/claude/reprank/internal/storage"
)

const testAPIKey = "secret"

var testNow = time.Date(2026, 3, 18, 18, 0, 0, 0, time.UTC)

type fakeStore struct {
	mu       sync.Mutex
	profile  *models.BodyProfileRow
	saved    *models.BodyProfileRow
	logs     []storage.ImportLog
	filter   storage.SetFilter
	users    map[string]int
	setsRows []models.WorkoutSetRow
}

func (f *fakeStore) GetOrCreateUser(_ context.Context, login, _ string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.users == nil {
		f.users = make(map[string]int)
	}
	if id, ok := f.users[login]; ok {
		return id, nil
	}
	f.users[login] = len(f.users) + 2
	return f.users[login], nil
}

func (f *fakeStore) GetBodyProfile(_ context.Context, _ int) (*models.BodyProfileRow, error) {
	return f.profile, nil
}

func (f *fakeStore) UpsertBodyProfile(_ context.Context, p models.BodyProfileRow) error {
	f.saved = &p
	return nil
}

func (f *fakeStore) QueryWorkoutSets(_ context.Context, filter storage.SetFilter, _ int) ([]models.WorkoutSetRow, error) {
	f.filter = filter
	return f.setsRows, nil
}

func (f *fakeStore) PersonalRecordHistory(_ context.Context, _ int, _ string, _ int) ([]models.PersonalRecordRow, error) {
	return nil, nil
}

func (f *fakeStore) GetDataStats(_ context.Context, _ int) (*storage.DataStats, error) {
	return &storage.DataStats{TotalSessions: 3}, nil
}

func (f *fakeStore) InsertImportLog(_ context.Context, log storage.ImportLog) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, log)
	return int64(len(f.logs)), nil
}

func (f *fakeStore) QueryImportLogs(_ context.Context, _, _ int) ([]storage.ImportLog, error) {
	return f.logs, nil
}

// fakeRanker returns queued results in order, then repeats the last one.
type fakeRanker struct {
	cfg     *scoring.Config
	cat     *catalog.Catalog
	results []*scoring.Result
	err     error
	calls   int
	gotAsOf time.Time
	gotUser int
}

func (f *fakeRanker) Evaluate(_ context.Context, userID int, asOf time.Time) (*scoring.Result, error) {
	f.gotAsOf, f.gotUser = asOf, userID
	if f.err != nil {
		return nil, f.err
	}
	i := min(f.calls, len(f.results)-1)
	f.calls++
	return f.results[i], nil
}

func (f *fakeRanker) Config() *scoring.Config    { return f.cfg }
func (f *fakeRanker) Catalog() *catalog.Catalog { return f.cat }

type fakeIngester struct {
	body   string
	result *ingest.Result
	err    error
}

func (f *fakeIngester) Ingest(_ context.Context, r io.Reader, _ int) (*ingest.Result, error) {
	b, _ := io.ReadAll(r)
	f.body = string(b)
	return f.result, f.err
}

func newTestRanker(t *testing.T, results ...*scoring.Result) *fakeRanker {
	t.Helper()
	cfg, err := scoring.LoadConfig(filepath.Join("..", "..", "configs", "scoring.yaml"))
	if err != nil {
		t.Fatalf("loading scoring config: %v", err)
	}
	cat, err := catalog.Load(filepath.Join("..", "..", "configs", "catalog.yaml"))
	if err != nil {
		t.Fatalf("loading catalog: %v", err)
	}
	if len(results) == 0 {
		results = []*scoring.Result{rankResult(scoring.TierBronze)}
	}
	return &fakeRanker{cfg: cfg, cat: cat, results: results}
}

func rankResult(chestTier scoring.Tier) *scoring.Result {
	return &scoring.Result{
		AsOf:        testNow,
		OverallRank: scoring.Rank{Tier: scoring.TierBronze},
		Muscles: []scoring.MuscleResult{
			{MuscleGroupID: "chest", Name: "Chest", Rank: scoring.Rank{Tier: chestTier}},
		},
	}
}

func newTestServer(t *testing.T, store *fakeStore, ranks *fakeRanker, ing *fakeIngester) *Server {
	t.Helper()
	if ing == nil {
		ing = &fakeIngester{result: &ingest.Result{}}
	}
	s := New(store, ranks, ing, testAPIKey, metrics.NewTestManager(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return testNow }
	return s
}

func do(s *Server, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

// TestHandleMeDefault verifies the /api/v1/me endpoint returns the dev user
// identity when no Tailscale middleware is active.
func TestHandleMeDefault(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	ctx := context.WithValue(req.Context(), userInfoKey, UserInfo{Login: "local", DisplayName: "Local Dev User"})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	s.handleMe(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var info UserInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if info.Login != "local" {
		t.Errorf("login = %q, want %q", info.Login, "local")
	}
	if info.DisplayName != "Local Dev User" {
		t.Errorf("display_name = %q, want %q", info.DisplayName, "Local Dev User")
	}
}

// TestHandleMeTailscaleUser verifies the /api/v1/me endpoint returns the
// Tailscale user identity when set in context.
func TestHandleMeTailscaleUser(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	ctx := context.WithValue(req.Context(), userInfoKey, UserInfo{Login: "alice@example.com", DisplayName: "Alice"})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	s.handleMe(rec, req)

	var info UserInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if info.Login != "alice@example.com" {
		t.Errorf("login = %q, want %q", info.Login, "alice@example.com")
	}
	if info.DisplayName != "Alice" {
		t.Errorf("display_name = %q, want %q", info.DisplayName, "Alice")
	}
}

// TestRanksAsOf verifies a date-only as_of evaluates at the end of that day.
func TestRanksAsOf(t *testing.T) {
	ranks := newTestRanker(t)
	s := newTestServer(t, &fakeStore{}, ranks, nil)

	rec := do(s, http.MethodGet, "/api/v1/ranks?as_of=2026-01-10", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	want := time.Date(2026, 1, 10, 23, 59, 59, 999999999, time.UTC)
	if !ranks.gotAsOf.Equal(want) {
		t.Errorf("as_of = %v, want %v", ranks.gotAsOf, want)
	}
	if ranks.gotUser != 1 {
		t.Errorf("user = %d, want 1", ranks.gotUser)
	}

	rec = do(s, http.MethodGet, "/api/v1/ranks", "", nil)
	if rec.Code != http.StatusOK || !ranks.gotAsOf.Equal(testNow) {
		t.Errorf("default as_of = %v (status %d), want %v", ranks.gotAsOf, rec.Code, testNow)
	}
}

// TestRanksBadAsOf verifies an unparseable as_of is rejected.
func TestRanksBadAsOf(t *testing.T) {
	s := newTestServer(t, &fakeStore{}, newTestRanker(t), nil)
	if rec := do(s, http.MethodGet, "/api/v1/ranks?as_of=yesterday", "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestRanksErrorMapping verifies engine errors map to 400 and 500.
func TestRanksErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"input", &scoring.InputError{Field: "body weight", Value: -1, Reason: "must be positive"}, http.StatusBadRequest},
		{"config", &scoring.ConfigError{Field: "rank_tiers", Reason: "gap"}, http.StatusInternalServerError},
		{"store", errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranks := newTestRanker(t)
			ranks.err = tt.err
			s := newTestServer(t, &fakeStore{}, ranks, nil)
			if rec := do(s, http.MethodGet, "/api/v1/ranks", "", nil); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

// TestMuscleRank verifies the single-muscle endpoint and its 404.
func TestMuscleRank(t *testing.T) {
	s := newTestServer(t, &fakeStore{}, newTestRanker(t, rankResult(scoring.TierGold)), nil)

	rec := do(s, http.MethodGet, "/api/v1/ranks/chest", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var m scoring.MuscleResult
	if err := json.NewDecoder(rec.Body).Decode(&m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.MuscleGroupID != "chest" || m.Rank.Tier != scoring.TierGold {
		t.Errorf("muscle = %+v, want chest gold", m)
	}

	if rec := do(s, http.MethodGet, "/api/v1/ranks/forearms_of_steel", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown muscle status = %d, want 404", rec.Code)
	}
}

// TestEstimate verifies the 1RM calculator endpoint.
func TestEstimate(t *testing.T) {
	s := newTestServer(t, &fakeStore{}, newTestRanker(t), nil)

	rec := do(s, http.MethodPost, "/api/v1/estimate", `{"weight":100,"reps":5}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var got struct {
		Estimated1RM float64 `json:"estimated_1rm"`
		Formula      string  `json:"formula"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if math.Abs(got.Estimated1RM-116.666667) > 1e-4 || got.Formula != "epley" {
		t.Errorf("estimate = %+v, want 116.67 epley", got)
	}

	if rec := do(s, http.MethodPost, "/api/v1/estimate", `{"weight":100,"reps":0}`, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("zero reps status = %d, want 400", rec.Code)
	}
}

// TestTiers verifies the tier table is served in ascending order.
func TestTiers(t *testing.T) {
	s := newTestServer(t, &fakeStore{}, newTestRanker(t), nil)
	rec := do(s, http.MethodGet, "/api/v1/tiers", "", nil)

	var tiers []scoring.TierBand
	if err := json.NewDecoder(rec.Body).Decode(&tiers); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tiers) != len(scoring.Tiers) || tiers[0].Tier != scoring.TierBronze {
		t.Errorf("tiers = %+v", tiers)
	}
}

// TestAlphaIngestRequiresKey verifies uploads need the API key.
func TestAlphaIngestRequiresKey(t *testing.T) {
	s := newTestServer(t, &fakeStore{}, newTestRanker(t), nil)

	if rec := do(s, http.MethodPost, "/api/v1/ingest/alpha", "x", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("no key status = %d, want 401", rec.Code)
	}
	if rec := do(s, http.MethodPost, "/api/v1/ingest/alpha", "x", map[string]string{"X-API-Key": "nope"}); rec.Code != http.StatusForbidden {
		t.Errorf("bad key status = %d, want 403", rec.Code)
	}
}

// TestAlphaIngestDelta verifies an import reports the rank movement it caused
// and is written to the import log.
func TestAlphaIngestDelta(t *testing.T) {
	store := &fakeStore{}
	ranks := newTestRanker(t, rankResult(scoring.TierSilver), rankResult(scoring.TierGold))
	ing := &fakeIngester{result: &ingest.Result{
		SessionsReceived: 2, SetsReceived: 10, SetsInserted: 10, RecordsStored: 3,
		UnknownExercises: []string{"Zercher Carry"},
	}}
	s := newTestServer(t, store, ranks, ing)

	rec := do(s, http.MethodPost, "/api/v1/ingest/alpha", "csv body", map[string]string{"X-API-Key": testAPIKey})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if ing.body != "csv body" {
		t.Errorf("ingested body = %q", ing.body)
	}

	var resp struct {
		Import ingest.Result `json:"import"`
		Delta  struct {
			Promotions int `json:"promotions"`
			Demotions  int `json:"demotions"`
		} `json:"delta"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Delta.Promotions != 1 || resp.Delta.Demotions != 0 {
		t.Errorf("delta = %+v, want one promotion", resp.Delta)
	}
	if resp.Import.SetsInserted != 10 {
		t.Errorf("sets inserted = %d, want 10", resp.Import.SetsInserted)
	}

	if len(store.logs) != 1 {
		t.Fatalf("import logs = %d, want 1", len(store.logs))
	}
	l := store.logs[0]
	if l.Status != "success" || l.Source != ingest.SourceAlpha || l.RecordsStored != 3 {
		t.Errorf("import log = %+v", l)
	}
	if l.Metadata == nil || !strings.Contains(string(*l.Metadata), "Zercher Carry") {
		t.Errorf("metadata = %v, want unknown exercises", l.Metadata)
	}
}

// TestAlphaIngestFailureLogged verifies a failed import is logged as an error.
func TestAlphaIngestFailureLogged(t *testing.T) {
	store := &fakeStore{}
	ing := &fakeIngester{err: errors.New("parsing CSV: line 3: exercise without session")}
	s := newTestServer(t, store, newTestRanker(t), ing)

	rec := do(s, http.MethodPost, "/api/v1/ingest/alpha", "bad", map[string]string{"X-API-Key": testAPIKey})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if len(store.logs) != 1 || store.logs[0].Status != "error" || store.logs[0].ErrorMessage == nil {
		t.Errorf("import logs = %+v, want one error entry", store.logs)
	}
}

// TestPutProfile verifies profile validation and storage.
func TestPutProfile(t *testing.T) {
	store := &fakeStore{}
	s := newTestServer(t, store, newTestRanker(t), nil)
	key := map[string]string{"X-API-Key": testAPIKey}

	bad := []string{
		`{"body_weight_kg":0,"sex":"male"}`,
		`{"body_weight_kg":80,"sex":"robot"}`,
		`{"body_weight_kg":80,"sex":"male","birth_date":"01/02/1990"}`,
		`not json`,
	}
	for _, body := range bad {
		if rec := do(s, http.MethodPut, "/api/v1/profile", body, key); rec.Code != http.StatusBadRequest {
			t.Errorf("PUT %s: status = %d, want 400", body, rec.Code)
		}
	}

	rec := do(s, http.MethodPut, "/api/v1/profile", `{"body_weight_kg":82.5,"sex":"M","birth_date":"1990-06-01"}`, key)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if store.saved == nil || store.saved.Sex != "male" || store.saved.BodyWeightKg != 82.5 || store.saved.BirthDate == nil {
		t.Errorf("saved = %+v", store.saved)
	}
	if store.saved.TrainingSince != nil {
		t.Errorf("training_since = %v, want nil", store.saved.TrainingSince)
	}
}

// TestGetProfileMissing verifies a missing profile is a 404.
func TestGetProfileMissing(t *testing.T) {
	s := newTestServer(t, &fakeStore{}, newTestRanker(t), nil)
	if rec := do(s, http.MethodGet, "/api/v1/profile", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// TestWorkoutSetsFilter verifies query parameters reach the store filter.
func TestWorkoutSetsFilter(t *testing.T) {
	store := &fakeStore{}
	s := newTestServer(t, store, newTestRanker(t), nil)

	rec := do(s, http.MethodGet, "/api/v1/workout-sets?start=2026-03-01&end=2026-03-07&exercise=squat&working=true", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	f := store.filter
	if f.ExerciseID != "squat" || !f.WorkingOnly {
		t.Errorf("filter = %+v", f)
	}
	if want := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC); !f.End.Equal(want) {
		t.Errorf("end = %v, want %v", f.End, want)
	}
}

// TestMuscleExercises verifies the per-muscle catalog listing and its 404.
func TestMuscleExercises(t *testing.T) {
	ranks := newTestRanker(t)
	s := newTestServer(t, &fakeStore{}, ranks, nil)

	rec := do(s, http.MethodGet, "/api/v1/catalog/chest", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got struct {
		Exercises []scoring.ExerciseDefinition `json:"exercises"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if want := len(ranks.cat.ExercisesFor("chest")); len(got.Exercises) != want || want == 0 {
		t.Errorf("exercises = %d, want %d (non-zero)", len(got.Exercises), want)
	}

	if rec := do(s, http.MethodGet, "/api/v1/catalog/tail", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown muscle status = %d, want 404", rec.Code)
	}
}
