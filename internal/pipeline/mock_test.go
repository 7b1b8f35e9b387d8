package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/newswatch/pkg/anthropic"
	"github.com/sells-group/newswatch/pkg/naver"
	"github.com/sells-group/newswatch/pkg/newsapi"
)

// --- Anthropic mock ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// scriptedAI answers by inspecting the request, for multi-stage runs where
// per-call expectations would be unwieldy.
type scriptedAI struct {
	respond func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error)
}

func (s *scriptedAI) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	return s.respond(req)
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 20},
	}
}

// --- Provider stubs ---

type stubNaver struct {
	search func(query string, start, display int) (*naver.SearchResponse, error)
}

func (s *stubNaver) Search(_ context.Context, query string, start, display int) (*naver.SearchResponse, error) {
	return s.search(query, start, display)
}

type stubNewsAPI struct {
	everything func(query, from, to string, page, pageSize int) (*newsapi.EverythingResponse, error)
}

func (s *stubNewsAPI) Everything(_ context.Context, query, from, to string, page, pageSize int) (*newsapi.EverythingResponse, error) {
	return s.everything(query, from, to, page, pageSize)
}

// --- Embedder stub ---

// stubEmbedder returns canned vectors keyed by exact input text. Unknown
// texts get a zero vector of the configured width.
type stubEmbedder struct {
	dim   int
	vecs  map[string][]float32
	err   error
	calls int
}

func (s *stubEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := s.vecs[t]; ok {
			out[i] = v
			continue
		}
		out[i] = make([]float32, s.dim)
	}
	return out, nil
}

// oneHot builds a unit vector with a single nonzero component. Identical
// indices are cosine-1 duplicates; distinct indices are cosine-0.
func oneHot(dim, idx int) []float32 {
	v := make([]float32, dim)
	v[idx] = 1
	return v
}
