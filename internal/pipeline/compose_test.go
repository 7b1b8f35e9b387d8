package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/newswatch/internal/model"
)

func analysis(title string, relevance model.Relevance, category string) model.ImpactAnalysis {
	return model.ImpactAnalysis{
		Article: model.Article{
			Title:   title,
			URL:     "https://news.example/" + title,
			Content: "body of " + title,
		},
		ImpactType:  model.ImpactOpportunity,
		ImpactAreas: []model.ImpactArea{model.AreaTargeting},
		Relevance:   relevance,
		Category:    category,
	}
}

func TestComposerDirectGetsSummaryIndirectGetsOneLiner(t *testing.T) {
	ai := new(mockAnthropicClient)
	ai.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(`{"summary": "A platform launch relevant to our targeting stack.", "partners": []}`), nil).
		Once()

	c := NewComposer(ai, testLimiter(), "test-model", 2)
	messages, _, _, err := c.Run(context.Background(), []model.ImpactAnalysis{
		analysis("direct-item", model.RelevanceDirect, "solution"),
		analysis("indirect-item", model.RelevanceIndirect, "technology"),
	})
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, "A platform launch relevant to our targeting stack.", messages[0].Summary)
	assert.Equal(t, model.RelevanceDirect, messages[0].Relevance)

	assert.Equal(t, "[technology] indirect-item", messages[1].Summary)
	assert.Equal(t, model.RelevanceIndirect, messages[1].Relevance)

	// Exactly one call: the indirect item must not spend tokens.
	ai.AssertNumberOfCalls(t, "CreateMessage", 1)
}

func TestComposerFallsBackToExcerptOnFailure(t *testing.T) {
	ai := new(mockAnthropicClient)
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	c := NewComposer(ai, testLimiter(), "test-model", 2)
	messages, _, _, err := c.Run(context.Background(), []model.ImpactAnalysis{
		analysis("direct-item", model.RelevanceDirect, "solution"),
	})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0].Summary, "direct-item")
	assert.Contains(t, messages[0].Summary, "body of direct-item")
}

func TestComposerCollectsAndDedupesPartners(t *testing.T) {
	responses := []string{
		`{"summary": "First item.", "partners": [{"name": "Acme AI", "field": "retail media", "recent_achievement": "launched v2", "collaboration_point": "targeting"}]}`,
		`{"summary": "Second item.", "partners": [{"name": "acme ai", "field": "retail media", "recent_achievement": "launched v2 with 40% better match rates across three markets", "collaboration_point": "targeting"}, {"name": "Beta Labs", "field": "embeddings", "recent_achievement": "benchmark win", "collaboration_point": "dedup"}]}`,
	}
	ai := new(mockAnthropicClient)
	ai.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(responses[0]), nil).Once()
	ai.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(responses[1]), nil).Once()

	c := NewComposer(ai, testLimiter(), "test-model", 1)
	_, partners, _, err := c.Run(context.Background(), []model.ImpactAnalysis{
		analysis("first", model.RelevanceDirect, "solution"),
		analysis("second", model.RelevanceDirect, "solution"),
	})
	require.NoError(t, err)
	require.Len(t, partners, 2)

	byName := map[string]model.PartnerEntry{}
	for _, p := range partners {
		byName[p.Name] = p
	}
	// The duplicate with the longer achievement wins, case-insensitively.
	acme, ok := byName["acme ai"]
	if !ok {
		acme = byName["Acme AI"]
	}
	assert.Contains(t, acme.RecentAchievement, "40% better match rates")
	assert.Contains(t, byName, "Beta Labs")
}

// relevantItem is a test-local HasRelevance implementation, proving the
// message builders need only the capability, not the full analysis type.
type relevantItem struct {
	relevance model.Relevance
	article   model.Article
	category  string
}

func (r relevantItem) GetRelevance() model.Relevance { return r.relevance }
func (r relevantItem) GetArticle() model.Article     { return r.article }
func (r relevantItem) GetCategory() string           { return r.category }

func TestMessageBuildersAcceptAnyRelevantItem(t *testing.T) {
	item := relevantItem{
		relevance: model.RelevanceIndirect,
		article:   model.Article{Title: "capability check", URL: "https://news.example/c", Content: "short body"},
		category:  "case",
	}

	oneLiner := indirectMessage(item)
	assert.Equal(t, "[case] capability check", oneLiner.Summary)
	assert.Equal(t, model.RelevanceIndirect, oneLiner.Relevance)

	fallback := fallbackMessage(item)
	assert.Contains(t, fallback.Summary, "capability check")
	assert.Contains(t, fallback.Summary, "short body")
	assert.Equal(t, model.RelevanceDirect, fallback.Relevance)
}

func TestComposerMessageFormat(t *testing.T) {
	m := model.BriefMessage{
		ArticleURL: "https://news.example/a",
		Summary:    "Something happened.",
	}
	formatted := m.Format()
	assert.Contains(t, formatted, "AI News Brief")
	assert.Contains(t, formatted, "Something happened.")
	assert.Contains(t, formatted, "https://news.example/a")
}
