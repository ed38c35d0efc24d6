package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedText(t *testing.T) {
	embedder := &mockEmbedder{dim: 2, vectors: map[string][]float32{"hello": {1, 2}}}

	vec, err := EmbedText(context.Background(), embedder, "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, vec)
}

func TestEmbedText_Error(t *testing.T) {
	embedder := &mockEmbedder{embedErr: errors.New("model unavailable")}

	_, err := EmbedText(context.Background(), embedder, "hello")
	assert.True(t, errors.Is(err, ErrEmbedding), "error = %v, want ErrEmbedding", err)
}

func TestEmbedBatch_PreservesOrder(t *testing.T) {
	embedder := &mockEmbedder{
		dim: 2,
		vectors: map[string][]float32{
			"one":   {1, 0},
			"two":   {2, 0},
			"three": {3, 0},
		},
	}

	vectors, err := EmbedBatch(context.Background(), embedder, []string{"one", "two", "three"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, []float32{1, 0}, vectors[0])
	assert.Equal(t, []float32{2, 0}, vectors[1])
	assert.Equal(t, []float32{3, 0}, vectors[2])
}

func TestEmbedBatch_EmptyInput(t *testing.T) {
	embedder := &mockEmbedder{}

	vectors, err := EmbedBatch(context.Background(), embedder, nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Equal(t, 0, embedder.callCount, "no embed call for empty input")
}

func TestEmbedBatch_Error(t *testing.T) {
	embedder := &mockEmbedder{embedErr: errors.New("model unavailable")}

	_, err := EmbedBatch(context.Background(), embedder, []string{"a", "b"})
	assert.True(t, errors.Is(err, ErrEmbedding), "error = %v, want ErrEmbedding", err)
}
