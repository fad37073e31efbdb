package ingest

// Result holds the outcome of an ingest operation.
type Result struct {
	SessionsReceived int      `json:"sessions_received"`
	SetsReceived     int      `json:"sets_received"`
	SetsInserted     int64    `json:"sets_inserted"`
	SetsSkipped      int64    `json:"sets_skipped"`
	RecordsStored    int64    `json:"records_stored"`
	UnknownExercises []string `json:"unknown_exercises,omitempty"`

	Message string `json:"message,omitempty"`
}

// Source names recorded in import logs.
const (
	SourceAlpha = "alpha"
)
