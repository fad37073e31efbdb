package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/claude/reprank/internal/ingest"
	"github.com/claude/reprank/internal/models"
	"github.com/claude/reprank/internal/ranking"
	"github.com/claude/reprank/internal/scoring"
	"github.com/claude/reprank/internal/storage"
)

// maxUploadBytes caps an export upload.
const maxUploadBytes = 32 << 20

func (s *Server) handleAlphaIngest(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r)
	start := time.Now()

	before, err := s.ranks.Evaluate(r.Context(), uid, s.now())
	if err != nil {
		s.log.Warn("rank baseline failed", "user_id", uid, "error", err)
		before = nil
	}

	result, err := s.alpha.Ingest(r.Context(), http.MaxBytesReader(w, r.Body, maxUploadBytes), uid)
	s.logImport(uid, ingest.SourceAlpha, result, err, int(time.Since(start).Milliseconds()))
	if err != nil {
		s.log.Error("alpha ingest error", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	after, err := s.ranks.Evaluate(r.Context(), uid, s.now())
	if err != nil {
		s.log.Error("rank evaluation after import failed", "user_id", uid, "error", err)
		writeJSON(w, http.StatusOK, map[string]any{"import": result})
		return
	}
	delta := ranking.Compare(before, after)
	s.metrics.TierChanges(delta.Promotions, delta.Demotions)

	writeJSON(w, http.StatusOK, map[string]any{
		"import": result,
		"ranks":  after,
		"delta":  delta,
	})
}

func (s *Server) handleRanks(w http.ResponseWriter, r *http.Request) {
	asOf, err := s.parseAsOf(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	res, err := s.ranks.Evaluate(r.Context(), userIDFromContext(r), asOf)
	if err != nil {
		writeScoringError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleMuscleRank(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "muscle")
	if _, ok := s.ranks.Catalog().MuscleGroup(id); !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown muscle group " + id})
		return
	}
	asOf, err := s.parseAsOf(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	res, err := s.ranks.Evaluate(r.Context(), userIDFromContext(r), asOf)
	if err != nil {
		writeScoringError(w, err)
		return
	}
	m, _ := res.Muscle(id)
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.db.GetBodyProfile(r.Context(), userIDFromContext(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if p == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no body profile"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type profileRequest struct {
	BodyWeightKg  float64 `json:"body_weight_kg"`
	Sex           string  `json:"sex"`
	BirthDate     string  `json:"birth_date"`
	TrainingSince string  `json:"training_since"`
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.BodyWeightKg <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "body_weight_kg must be positive"})
		return
	}
	sex, err := scoring.ParseSex(req.Sex)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	row := models.BodyProfileRow{
		UserID:       userIDFromContext(r),
		BodyWeightKg: req.BodyWeightKg,
		Sex:          string(sex),
	}
	if row.BirthDate, err = parseOptionalDate(req.BirthDate); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "birth_date: " + err.Error()})
		return
	}
	if row.TrainingSince, err = parseOptionalDate(req.TrainingSince); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "training_since: " + err.Error()})
		return
	}

	if err := s.db.UpsertBodyProfile(r.Context(), row); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	row.UpdatedAt = s.now()
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	cat := s.ranks.Catalog()
	writeJSON(w, http.StatusOK, map[string]any{
		"muscle_groups": cat.MuscleGroups,
		"exercises":     cat.Exercises,
	})
}

func (s *Server) handleMuscleExercises(w http.ResponseWriter, r *http.Request) {
	cat := s.ranks.Catalog()
	id := chi.URLParam(r, "muscle")
	mg, ok := cat.MuscleGroup(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown muscle group " + id})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"muscle_group": mg,
		"exercises":    cat.ExercisesFor(id),
	})
}

func (s *Server) handleTiers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ranks.Config().TierTable())
}

type estimateRequest struct {
	Weight float64 `json:"weight"`
	Reps   int     `json:"reps"`
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	cfg := s.ranks.Config()
	e1rm, err := scoring.EstimateOneRepMax(cfg, req.Weight, req.Reps)
	if err != nil {
		writeScoringError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"estimated_1rm": e1rm,
		"formula":       cfg.OneRepMax.Formula,
	})
}

func (s *Server) handleWorkoutSets(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	q := r.URL.Query()
	f := storage.SetFilter{
		Start:       start,
		End:         end,
		ExerciseID:  q.Get("exercise"),
		WorkingOnly: q.Get("working") == "true",
	}
	rows, err := s.db.QueryWorkoutSets(r.Context(), f, userIDFromContext(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleRecordHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "exercise")
	if _, ok := s.ranks.Catalog().Exercise(id); !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown exercise " + id})
		return
	}
	rows, err := s.db.PersonalRecordHistory(r.Context(), userIDFromContext(r), id, queryLimit(r, 50))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeScoringError maps engine errors to status codes: bad input is the
// caller's fault, a bad scoring config is ours.
func writeScoringError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, scoring.ErrInvalidInput) {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// parseAsOf reads the as_of query parameter, defaulting to now.
func (s *Server) parseAsOf(r *http.Request) (time.Time, error) {
	v := r.URL.Query().Get("as_of")
	if v == "" {
		return s.now(), nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, err
	}
	// A date means the end of that day.
	return t.Add(24*time.Hour - time.Nanosecond), nil
}

func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func queryLimit(r *http.Request, def int) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}

func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" {
		// Default: last 28 days
		end = time.Now()
		start = end.AddDate(0, 0, -28)
		return
	}

	start, err = time.Parse(time.RFC3339, startStr)
	if err != nil {
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	if endStr == "" {
		end = time.Now()
	} else {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			end, err = time.Parse("2006-01-02", endStr)
			if err != nil {
				return time.Time{}, time.Time{}, err
			}
			// End of day for date-only
			end = end.Add(24 * time.Hour)
		}
	}
	return
}
