// Package similarity wraps the external embedding service with batching,
// caching, cosine scoring, and a deterministic text fingerprint used as the
// fallback dedup key.
package similarity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// ErrUnavailable is the failure signal for a fully unreachable embedding
// engine. Callers distinguish it from a degraded batch (zero vectors) and
// switch to the fingerprint fallback.
var ErrUnavailable = eris.New("similarity: embedding engine unavailable")

// Embedder is the minimal embedding provider contract: one vector per input
// text, in input order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Engine computes embeddings and similarity scores.
type Engine struct {
	embedder  Embedder
	dimension int

	mu    sync.Mutex
	cache map[string][]float32 // fingerprint → vector, per-run
}

// NewEngine creates an Engine with the given vector dimensionality.
func NewEngine(embedder Embedder, dimension int) *Engine {
	return &Engine{
		embedder:  embedder,
		dimension: dimension,
		cache:     make(map[string][]float32),
	}
}

// Dimension returns the configured vector dimensionality.
func (e *Engine) Dimension() int { return e.dimension }

// EmbedBatch embeds texts in one logical call, preserving index alignment
// with the input. Per-item degradation (empty text, wrong dimensionality)
// yields a zero vector at that index. A failure of the batch call itself
// returns ErrUnavailable so callers can tell "engine down" from "all items
// degraded". Results are cached by fingerprint within the run.
func (e *Engine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))

	var missIdx []int
	var missTexts []string

	e.mu.Lock()
	for i, text := range texts {
		keys[i] = Fingerprint(text)
		if strings.TrimSpace(text) == "" {
			out[i] = make([]float32, e.dimension)
			continue
		}
		if vec, ok := e.cache[keys[i]]; ok {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	e.mu.Unlock()

	if len(missIdx) == 0 {
		return out, nil
	}

	vecs, err := e.embedder.EmbedTexts(ctx, missTexts)
	if err != nil {
		zap.L().Warn("similarity: batch embed failed", zap.Int("texts", len(missTexts)), zap.Error(err))
		return nil, ErrUnavailable
	}
	if len(vecs) != len(missTexts) {
		zap.L().Warn("similarity: embed count mismatch",
			zap.Int("want", len(missTexts)),
			zap.Int("got", len(vecs)),
		)
		return nil, ErrUnavailable
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for j, i := range missIdx {
		vec := vecs[j]
		if len(vec) != e.dimension {
			vec = make([]float32, e.dimension)
		}
		out[i] = vec
		e.cache[keys[i]] = vec
	}
	return out, nil
}

// Cosine returns the cosine similarity of a and b clamped to [0, 1].
// Zero-length, mismatched, or all-zero vectors score 0; never divides by
// zero and never panics.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

// IsZero reports whether v is absent or entirely zero (a degraded embedding).
func IsZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Fingerprint returns a stable hash of text for exact-match dedup and cache
// keying. Normalization folds width variants (full-width vs half-width forms
// of the same headline must collide), applies NFKC, lowercases, and collapses
// whitespace.
func Fingerprint(text string) string {
	s := width.Fold.String(text)
	s = norm.NFKC.String(s)
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), " ")
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
