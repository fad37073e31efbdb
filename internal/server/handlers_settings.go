package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/claude/reprank/internal/ingest"
	"github.com/claude/reprank/internal/storage"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetDataStats(r.Context(), userIDFromContext(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.db.QueryImportLogs(r.Context(), userIDFromContext(r), queryLimit(r, 50))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// logImport records an import operation's result to the import_logs table.
// result may be nil when the import failed before producing one.
func (s *Server) logImport(uid int, source string, result *ingest.Result, importErr error, durationMs int) {
	status := "success"
	var errMsg *string
	if importErr != nil {
		status = "error"
		msg := importErr.Error()
		errMsg = &msg
	}

	log := storage.ImportLog{
		UserID:       uid,
		Source:       source,
		Status:       status,
		DurationMs:   &durationMs,
		ErrorMessage: errMsg,
	}
	if result != nil {
		log.SessionsReceived = result.SessionsReceived
		log.SetsReceived = result.SetsReceived
		log.SetsInserted = result.SetsInserted
		log.RecordsStored = result.RecordsStored
		if len(result.UnknownExercises) > 0 {
			if meta, err := json.Marshal(map[string]any{"unknown_exercises": result.UnknownExercises}); err == nil {
				raw := json.RawMessage(meta)
				log.Metadata = &raw
			}
		}
	}

	ctx, cancel := contextWithTimeout()
	defer cancel()

	if _, err := s.db.InsertImportLog(ctx, log); err != nil {
		s.log.Error("failed to log import", "source", source, "error", err)
	}
}

// contextWithTimeout returns a background context with a 5-second timeout for async logging.
func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second) //nolint:mnd
}
