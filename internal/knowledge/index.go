package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/firebase/genkit/go/ai"
)

// ErrDimension indicates a vector dimension that does not match the index.
// This is a programming error, never silently recovered.
var ErrDimension = errors.New("vector dimension mismatch")

// entry is one stored (id, vector, chunk) triple.
// Entries are append-only; ids are never reused or removed.
type entry struct {
	id     int64
	vector []float32
	chunk  Chunk
}

// Index is an in-memory vector index over document chunks.
//
// The index is append-only: Add assigns monotonically increasing ids in
// input order and entries are never updated or deleted. Removal of stale
// documents is an administrative rebuild, not an index operation.
//
// The embedding dimension is fixed at construction; every stored vector
// and every query vector must match it.
//
// Index is safe for concurrent reads; writes are serialized by the single
// owner (the agent's ingestion pipeline).
type Index struct {
	mu       sync.RWMutex
	dim      int
	embedder ai.Embedder
	entries  []entry
	nextID   int64
	logger   *slog.Logger
}

// NewIndex creates an empty Index with a fixed embedding dimension.
func NewIndex(embedder ai.Embedder, dim int, logger *slog.Logger) (*Index, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension %d must be positive", ErrDimension, dim)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{
		dim:      dim,
		embedder: embedder,
		logger:   logger,
	}, nil
}

// Dimension returns the fixed embedding dimension of the index.
func (ix *Index) Dimension() int { return ix.dim }

// Size returns the number of stored entries.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// IsEmpty reports whether the index holds no entries.
// Callers use this to short-circuit retrieval without paying search cost.
func (ix *Index) IsEmpty() bool {
	return ix.Size() == 0
}

// Add embeds the chunks and appends them to the index in input order.
// Returns the assigned ids, one per chunk.
func (ix *Index) Add(ctx context.Context, chunks []Chunk) ([]int64, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	vectors, err := EmbedBatch(ctx, ix.embedder, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}

	for i, vec := range vectors {
		if len(vec) != ix.dim {
			return nil, fmt.Errorf("%w: embedding %d has dimension %d, index expects %d",
				ErrDimension, i, len(vec), ix.dim)
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ids := make([]int64, len(chunks))
	for i, ch := range chunks {
		id := ix.nextID
		ix.nextID++
		ix.entries = append(ix.entries, entry{id: id, vector: vectors[i], chunk: ch})
		ids[i] = id
	}

	ix.logger.Debug("added chunks to index", "count", len(chunks), "size", len(ix.entries))
	return ids, nil
}

// Search embeds the query text and returns the top-k most similar chunks.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if ix.IsEmpty() || k <= 0 {
		return nil, nil
	}

	vec, err := EmbedText(ctx, ix.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return ix.SearchVector(vec, k)
}

// SearchVector returns the top-min(k, size) entries ranked by cosine
// similarity to the query vector, scores descending. Ties are broken by
// ascending insertion id so results are deterministic.
// Searching an empty index returns an empty result, never an error.
func (ix *Index) SearchVector(query []float32, k int) ([]Result, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.entries) == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != ix.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index expects %d",
			ErrDimension, len(query), ix.dim)
	}

	type scored struct {
		id    int64
		score float64
		chunk Chunk
	}

	all := make([]scored, len(ix.entries))
	for i, e := range ix.entries {
		all[i] = scored{id: e.id, score: cosineSimilarity(query, e.vector), chunk: e.chunk}
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].id < all[j].id
	})

	if k > len(all) {
		k = len(all)
	}

	results := make([]Result, k)
	for i := 0; i < k; i++ {
		results[i] = Result{Chunk: all[i].chunk, Score: all[i].score}
	}
	return results, nil
}

// cosineSimilarity computes dot(a,b) / (|a|*|b|).
// A zero vector on either side scores 0.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
