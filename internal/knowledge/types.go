package knowledge

import "time"

// DocType classifies the origin of a document's content.
type DocType string

// Known document types.
const (
	TypeEmail    DocType = "email"
	TypeCalendar DocType = "calendar"
	TypeDocument DocType = "document"
	TypeNote     DocType = "note"
)

// Metadata carries provenance for a document and is inherited by its chunks.
type Metadata struct {
	Source       string    // e.g. "provider", "user"
	ProviderID   string    // set when Source == "provider"
	ProviderName string    // set when Source == "provider"
	Type         DocType   // email, calendar, document, note
	Timestamp    time.Time // ingestion time
}

// Document is an immutable unit of ingested text.
// Once created it is never mutated; chunks reference it by ID.
type Document struct {
	ID       string
	Content  string
	Metadata Metadata
}

// Chunk is a contiguous substring of a document, the unit stored and
// searched in the vector index.
type Chunk struct {
	DocumentID string
	Ordinal    int // position within the parent document, starting at 0
	Text       string
	Metadata   Metadata
}

// Result is a single search hit with its cosine similarity score.
type Result struct {
	Chunk Chunk
	Score float64
}
