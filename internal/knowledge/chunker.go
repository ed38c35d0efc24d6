package knowledge

import (
	"errors"
	"fmt"
)

// Default chunking parameters, tuned for short embedding contexts.
const (
	// DefaultChunkSize is the default number of characters per chunk.
	DefaultChunkSize = 500

	// DefaultChunkOverlap is the default number of overlapping characters
	// between consecutive chunks of the same document.
	DefaultChunkOverlap = 50
)

// ErrInvalidChunking indicates inconsistent chunk size/overlap parameters.
var ErrInvalidChunking = errors.New("invalid chunking parameters")

// Chunker splits document content into fixed-size overlapping chunks.
//
// Splitting is deterministic: identical (documents, chunkSize, overlap)
// always yields an identical chunk sequence.
type Chunker struct {
	chunkSize int
	overlap   int
}

// NewChunker creates a Chunker.
// chunkSize must be positive; overlap must satisfy 0 <= overlap < chunkSize.
func NewChunker(chunkSize, overlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidChunking, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidChunking, overlap, chunkSize)
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// ChunkSize returns the configured window size in characters.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured overlap in characters.
func (c *Chunker) Overlap() int { return c.overlap }

// Split chunks all documents in order.
// A window of chunkSize characters advances with stride chunkSize-overlap;
// the final chunk of a document may be shorter. Documents shorter than
// chunkSize produce exactly one chunk; empty content produces none.
func (c *Chunker) Split(docs []Document) []Chunk {
	var chunks []Chunk
	for _, doc := range docs {
		chunks = append(chunks, c.splitOne(doc)...)
	}
	return chunks
}

// splitOne chunks a single document. Operates on runes so multi-byte
// content never splits inside a character.
func (c *Chunker) splitOne(doc Document) []Chunk {
	content := []rune(doc.Content)
	if len(content) == 0 {
		return nil
	}

	stride := c.chunkSize - c.overlap
	estimated := len(content)/stride + 1
	chunks := make([]Chunk, 0, estimated)

	for start, ordinal := 0, 0; start < len(content); start, ordinal = start+stride, ordinal+1 {
		end := start + c.chunkSize
		if end > len(content) {
			end = len(content)
		}

		chunks = append(chunks, Chunk{
			DocumentID: doc.ID,
			Ordinal:    ordinal,
			Text:       string(content[start:end]),
			Metadata:   doc.Metadata,
		})

		if end == len(content) {
			break
		}
	}

	return chunks
}
