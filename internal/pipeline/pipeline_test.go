package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/newswatch/internal/checkpoint"
	"github.com/sells-group/newswatch/internal/config"
	"github.com/sells-group/newswatch/internal/extract"
	"github.com/sells-group/newswatch/internal/ratelimit"
	"github.com/sells-group/newswatch/internal/similarity"
	"github.com/sells-group/newswatch/pkg/anthropic"
	"github.com/sells-group/newswatch/pkg/naver"
)

// memStore records the snapshot the pipeline writes.
type memStore struct {
	snap *checkpoint.Snapshot
}

func (m *memStore) Write(_ context.Context, snap *checkpoint.Snapshot) error {
	m.snap = snap
	return nil
}

func (m *memStore) ReadLatest(_ context.Context, _ string) (*checkpoint.Snapshot, error) {
	if m.snap == nil {
		return nil, checkpoint.ErrNotFound
	}
	return m.snap, nil
}

// bodyByTitle extracts bodies deterministically from the article URL so the
// test can pre-register matching embedding vectors.
type bodyByTitle struct{}

func (bodyByTitle) Name() string { return "stub" }

func (bodyByTitle) Extract(_ context.Context, url string) (*extract.Result, error) {
	title := url[strings.LastIndex(url, "/")+1:]
	return &extract.Result{Text: "extended body for " + title, Method: "stub"}, nil
}

// stageAI answers each judgment stage by inspecting the system prompt and
// title markers embedded in the user prompt.
func stageAI() *scriptedAI {
	return &scriptedAI{respond: func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		system := ""
		if len(req.System) > 0 {
			system = req.System[0].Text
		}
		prompt := req.Messages[0].Content

		switch {
		case strings.Contains(system, "screen AI-industry news"):
			passed := !strings.Contains(prompt, "-nosignal")
			category := "technology"
			if strings.Contains(prompt, "-reg") {
				category = "regulation"
			}
			return textResponse(fmt.Sprintf(`{"passed": %t, "categories": ["%s"], "rationale": "scripted"}`, passed, category)), nil

		case strings.Contains(system, "actionable value"):
			hasValue := !strings.Contains(prompt, "-lowvalue")
			return textResponse(fmt.Sprintf(`{"has_value": %t, "rationale": "scripted"}`, hasValue)), nil

		case strings.Contains(system, "You analyze how"):
			relevance := "indirect"
			if strings.Contains(prompt, "story-00") {
				relevance = "direct"
			}
			return textResponse(fmt.Sprintf(`{"impact_type": "watchlist", "impact_areas": ["none"], "relevance": "%s", "rationale": "scripted"}`, relevance)), nil

		case strings.Contains(system, "briefing entries"):
			return textResponse(`{"summary": "Scripted summary.", "partners": [{"name": "Acme AI", "field": "retail", "recent_achievement": "launch", "collaboration_point": "targeting"}]}`), nil
		}
		return nil, fmt.Errorf("unexpected request")
	}}
}

// buildFunnelFixture constructs 40 collected articles that reduce to
// 34 after headline dedup, 24 after screening, 22 after content dedup, and
// 18 after value screening. Groups 0 and 1 are regulatory.
func buildFunnelFixture(t *testing.T) ([]naver.Item, *stubEmbedder) {
	t.Helper()

	titleFor := func(group int) string {
		title := fmt.Sprintf("story-%02d", group)
		if group <= 1 {
			title += "-reg"
		}
		if group >= 24 {
			title += "-nosignal"
		}
		if group >= 10 && group <= 13 {
			title += "-lowvalue"
		}
		return title
	}

	// Two content clusters merge a pair each: groups 3 and 5 share a body
	// vector with groups 2 and 4 respectively.
	contentGroup := func(group int) int {
		switch group {
		case 3:
			return 2
		case 5:
			return 4
		default:
			return group
		}
	}

	embedder := &stubEmbedder{dim: testDim, vecs: map[string][]float32{}}
	var items []naver.Item

	pubDate := "Sun, 01 Jun 2025 14:00:00 +0900"
	for group := 0; group < 34; group++ {
		title := titleFor(group)
		lead := "a much longer lead describing " + title

		items = append(items, naver.Item{
			Title:        title,
			OriginalLink: "https://press.example/" + title,
			Description:  lead,
			PubDate:      pubDate,
		})
		embedder.vecs[title+" "+lead] = oneHot(testDim, group)
		embedder.vecs["extended body for "+title] = oneHot(testDim, contentGroup(group))

		// The first six groups get a near-duplicate from another outlet.
		if group < 6 {
			dupTitle := title + "-dup"
			items = append(items, naver.Item{
				Title:        dupTitle,
				OriginalLink: "https://mirror.example/" + dupTitle,
				Description:  "short",
				PubDate:      pubDate,
			})
			embedder.vecs[dupTitle+" short"] = oneHot(testDim, group)
		}
	}

	require.Len(t, items, 40)
	return items, embedder
}

func funnelPipeline(t *testing.T, items []naver.Item, embedder *stubEmbedder, store checkpoint.Store) *Pipeline {
	t.Helper()

	cfg := &config.Config{
		Collect: testCollectConfig(),
		Pipeline: config.PipelineConfig{
			RateLimitPerMinute: 600,
			HeadlineThreshold:  0.85,
			ContentThreshold:   0.90,
			MinContentChars:    10,
		},
	}

	nv := &stubNaver{search: func(_ string, start, _ int) (*naver.SearchResponse, error) {
		if start > 1 {
			return &naver.SearchResponse{}, nil
		}
		return &naver.SearchResponse{Items: items}, nil
	}}

	collector, err := NewCollector(nv, nil, cfg.Collect)
	require.NoError(t, err)
	collector.now, _ = fixedNow(t)

	ai := stageAI()
	limiter := ratelimit.New(cfg.Pipeline.RateLimitPerMinute)
	workers := cfg.Pipeline.Workers()
	engine := similarity.NewEngine(embedder, testDim)
	chain := extract.NewChain(cfg.Pipeline.MinContentChars, bodyByTitle{})

	p := New(
		cfg,
		collector,
		engine,
		NewClassifier(ai, limiter, "test-model", workers),
		NewContentFetcher(chain),
		NewValidator(ai, limiter, "test-model", workers),
		NewAnalyzer(ai, limiter, "test-model", workers),
		NewComposer(ai, limiter, "test-model", workers),
		store,
	)
	p.now = func() time.Time {
		loc, _ := time.LoadLocation("Asia/Seoul")
		return time.Date(2025, 6, 2, 10, 0, 0, 0, loc)
	}
	return p
}

func TestPipelineFunnelEndToEnd(t *testing.T) {
	items, embedder := buildFunnelFixture(t)
	store := &memStore{}
	p := funnelPipeline(t, items, embedder, store)

	var events []Event
	p.SetObserver(func(e Event) { events = append(events, e) })

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusDone, result.Status)
	assert.Equal(t, "2025-06-01", result.DateKey)

	var stages []RunStatus
	for _, e := range events {
		assert.NoError(t, e.Err)
		assert.Equal(t, result.RunID, e.RunID)
		stages = append(stages, e.Stage)
	}
	assert.Equal(t, []RunStatus{
		StatusCollecting, StatusDeduping, StatusClassifying,
		StatusFetching, StatusValidating, StatusAnalyzing, StatusComposing,
	}, stages)

	assert.Equal(t, 40, result.Stats.Collected)
	assert.Equal(t, 34, result.Stats.AfterDedup1)
	assert.Equal(t, 24, result.Stats.AfterFilter)
	assert.Equal(t, 22, result.Stats.AfterDedup2)
	assert.Equal(t, 18, result.Stats.AfterValidation)
	assert.Equal(t, 18, result.Stats.FinalOutput)

	assert.Equal(t, 2, result.Stats.RegulatoryFound)
	assert.Equal(t, 2, result.Stats.RegulatoryRetained)
	assert.False(t, result.Stats.RetentionViolated())

	assert.Len(t, result.Messages, 18)
	assert.Len(t, result.Analyses, 18)

	// Exactly one direct item gets a generated summary; the rest are
	// templated one-liners.
	var direct, indirect int
	for _, m := range result.Messages {
		switch {
		case m.Summary == "Scripted summary.":
			direct++
		case strings.HasPrefix(m.Summary, "["):
			indirect++
		}
	}
	assert.Equal(t, 1, direct)
	assert.Equal(t, 17, indirect)

	assert.Len(t, result.Partners, 1)
	assert.Equal(t, "Acme AI", result.Partners[0].Name)

	// Checkpoint snapshot matches the result.
	require.NotNil(t, store.snap)
	assert.Equal(t, result.RunID, store.snap.RunID)
	assert.Equal(t, "2025-06-01", store.snap.DateKey)
	assert.Len(t, store.snap.Messages, 18)
	require.NotNil(t, store.snap.Stats.EndedAt)
}

func TestPipelineShortCircuitsOnEmptyCollection(t *testing.T) {
	nvEmpty := &stubNaver{search: func(_ string, _, _ int) (*naver.SearchResponse, error) {
		return &naver.SearchResponse{}, nil
	}}

	cfg := &config.Config{
		Collect:  testCollectConfig(),
		Pipeline: config.PipelineConfig{RateLimitPerMinute: 600, HeadlineThreshold: 0.85, ContentThreshold: 0.90},
	}
	collector, err := NewCollector(nvEmpty, nil, cfg.Collect)
	require.NoError(t, err)
	collector.now, _ = fixedNow(t)

	store := &memStore{}
	ai := stageAI()
	limiter := ratelimit.New(600)
	engine := similarity.NewEngine(&stubEmbedder{dim: testDim}, testDim)
	chain := extract.NewChain(10, bodyByTitle{})

	p := New(cfg, collector, engine,
		NewClassifier(ai, limiter, "m", 2),
		NewContentFetcher(chain),
		NewValidator(ai, limiter, "m", 2),
		NewAnalyzer(ai, limiter, "m", 2),
		NewComposer(ai, limiter, "m", 2),
		store,
	)

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusDone, result.Status)
	assert.Zero(t, result.Stats.Collected)
	assert.Empty(t, result.Messages)
	require.NotNil(t, result.Stats.EndedAt)

	// The empty run still checkpoints so the send phase can tell "ran and
	// found nothing" from "never ran".
	require.NotNil(t, store.snap)
	assert.Empty(t, store.snap.Messages)
}

func TestPipelineCompletesWhenEmbeddingEngineDown(t *testing.T) {
	items, _ := buildFunnelFixture(t)
	store := &memStore{}
	down := &stubEmbedder{dim: testDim, err: assert.AnError}
	p := funnelPipeline(t, items, down, store)

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusDone, result.Status)
	assert.Equal(t, 40, result.Stats.Collected)
	// The fingerprint fallback groups differently than embeddings would,
	// but the run must still complete end to end and produce output.
	assert.Positive(t, result.Stats.AfterDedup1)
	assert.Positive(t, result.Stats.FinalOutput)
	require.NotNil(t, store.snap)
}
