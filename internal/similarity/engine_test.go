package similarity

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder returns canned vectors and records call counts.
type stubEmbedder struct {
	dim   int
	calls int
	fail  bool
	vecs  map[string][]float32
}

func (s *stubEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.fail {
		return nil, eris.New("connection refused")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := s.vecs[t]; ok {
			out[i] = v
			continue
		}
		v := make([]float32, s.dim)
		v[0] = 1
		out[i] = v
	}
	return out, nil
}

func TestEmbedBatchAlignment(t *testing.T) {
	emb := &stubEmbedder{dim: 4}
	e := NewEngine(emb, 4)

	out, err := e.EmbedBatch(context.Background(), []string{"alpha", "", "beta"})
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.False(t, IsZero(out[0]))
	assert.True(t, IsZero(out[1]), "empty text degrades to zero vector")
	assert.Len(t, out[1], 4)
	assert.False(t, IsZero(out[2]))
}

func TestEmbedBatchUnavailableSignal(t *testing.T) {
	e := NewEngine(&stubEmbedder{dim: 4, fail: true}, 4)

	out, err := e.EmbedBatch(context.Background(), []string{"alpha", "beta"})
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestEmbedBatchWrongDimensionDegrades(t *testing.T) {
	emb := &stubEmbedder{dim: 4, vecs: map[string][]float32{"short": {1, 2}}}
	e := NewEngine(emb, 4)

	out, err := e.EmbedBatch(context.Background(), []string{"short"})
	require.NoError(t, err)
	assert.True(t, IsZero(out[0]))
	assert.Len(t, out[0], 4)
}

func TestEmbedBatchCachesByFingerprint(t *testing.T) {
	emb := &stubEmbedder{dim: 4}
	e := NewEngine(emb, 4)
	ctx := context.Background()

	_, err := e.EmbedBatch(ctx, []string{"Breaking News"})
	require.NoError(t, err)
	require.Equal(t, 1, emb.calls)

	// Same normalized text: whitespace and case differences hit the cache.
	_, err = e.EmbedBatch(ctx, []string{"  breaking   news "})
	require.NoError(t, err)
	assert.Equal(t, 1, emb.calls, "second embed should be served from cache")
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	// Opposite vectors clamp to 0, not -1.
	assert.Equal(t, 0.0, Cosine([]float32{1, 0}, []float32{-1, 0}))
	// Zero vectors and mismatched lengths never divide by zero.
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 1}))
	assert.Equal(t, 0.0, Cosine(nil, nil))
	assert.Equal(t, 0.0, Cosine([]float32{1}, []float32{1, 0}))
}

func TestFingerprintNormalization(t *testing.T) {
	assert.Equal(t, Fingerprint("AI Chip Deal"), Fingerprint("  ai   chip deal "))
	// Full-width forms collide with their half-width counterparts.
	assert.Equal(t, Fingerprint("ＡＩ"), Fingerprint("ai"))
	assert.NotEqual(t, Fingerprint("ai chip deal"), Fingerprint("ai chip deals"))
}

func TestGroupByAnchor(t *testing.T) {
	vecs := [][]float32{
		{1, 0, 0},
		{0.99, 0.1, 0}, // close to 0
		{0, 1, 0},
		{0, 0, 0}, // degraded: must stay a singleton
	}
	groups := GroupByAnchor(vecs, 0.85)

	require.Len(t, groups, 3)
	assert.Equal(t, []int{0, 1}, groups[0])
	assert.Equal(t, []int{2}, groups[1])
	assert.Equal(t, []int{3}, groups[2])
}

func TestGroupByAnchorIdempotent(t *testing.T) {
	// Re-grouping a set with no near-duplicates is a no-op.
	vecs := [][]float32{{1, 0}, {0, 1}}
	groups := GroupByAnchor(vecs, 0.85)
	assert.Len(t, groups, len(vecs))
}

func TestGroupByFingerprint(t *testing.T) {
	texts := []string{
		"Samsung unveils new AI chip",
		"samsung unveils new ai chip",   // fingerprint collision
		"Samsung unveils new AI chips!", // same char set, Jaccard > 0.8
		"Completely different story about farming",
	}
	groups := GroupByFingerprint(texts)

	require.Len(t, groups, 2)
	assert.Equal(t, []int{0, 1, 2}, groups[0])
	assert.Equal(t, []int{3}, groups[1])
}
