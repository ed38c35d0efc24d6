// Package progress defines the progress-reporting schema the agent exposes
// to a consumer (typically a UI layer) during initialization.
//
// Within one initialization, successive Progress values are non-decreasing,
// terminating at 1.0 on success or remaining below 1.0 on failure.
package progress

// RAGUpdate carries ingestion-specific detail alongside a Report.
type RAGUpdate struct {
	Type       string `json:"type"`                 // e.g. "provider-sync"
	Total      int    `json:"total,omitempty"`      // total items once known
	Completed  int    `json:"completed,omitempty"`  // items ingested so far
	Errors     int    `json:"error,omitempty"`      // providers/items skipped on failure
	InProgress bool   `json:"inProgress,omitempty"` // true while ingestion runs
}

// Report is one progress update.
type Report struct {
	Message  string     `json:"message"`
	Progress float64    `json:"progress"` // in [0, 1]
	RAG      *RAGUpdate `json:"ragUpdate,omitempty"`
}

// Func receives progress updates. Implementations must be fast; they are
// called synchronously on the initialization path. A nil Func is allowed
// everywhere and means "no reporting".
type Func func(Report)

// Emit calls f with the report if f is non-nil.
func (f Func) Emit(r Report) {
	if f != nil {
		f(r)
	}
}
