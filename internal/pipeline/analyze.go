package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/newswatch/internal/model"
	"github.com/sells-group/newswatch/internal/ratelimit"
	"github.com/sells-group/newswatch/pkg/anthropic"
)

const analyzeSystemPrompt = `You analyze how an AI-industry news article affects a loyalty-membership and advertising data business.

impact_type: opportunity | threat | mixed | watchlist (no immediate impact, worth monitoring)
impact_areas (one or more): membership_data, targeting, ad_business, online_offline, compliance, none
relevance: direct (the business should act or respond) | indirect (background awareness only)

Respond with a valid JSON object:
{"impact_type": "<type>", "impact_areas": ["<area>", ...], "relevance": "<relevance>", "rationale": "<one or two sentences>"}`

const analyzeUserPrompt = `Title: %s
Categories: %s

Article:
%s`

// analyzeDefaultRationale is applied when the analyzer's answer could not
// be obtained or parsed. The defaults are the most conservative values:
// monitor-only, no claimed impact areas, indirect relevance.
const analyzeDefaultRationale = "analyzer unavailable; defaulted to watchlist"

const analyzeBodyLimit = 6000

// Analyzer is the business-context analysis stage.
type Analyzer struct {
	ai      anthropic.Client
	limiter *ratelimit.Limiter
	model   string
	workers int
}

// NewAnalyzer creates the context-analysis stage.
func NewAnalyzer(ai anthropic.Client, limiter *ratelimit.Limiter, model string, workers int) *Analyzer {
	return &Analyzer{ai: ai, limiter: limiter, model: model, workers: workers}
}

// Run analyzes every validated article concurrently. Analysis never drops
// an article; a failed call yields the conservative default.
func (a *Analyzer) Run(ctx context.Context, verdicts []model.ValueVerdict) ([]model.ImpactAnalysis, anthropic.TokenUsage, error) {
	out := make([]model.ImpactAnalysis, len(verdicts))

	var mu sync.Mutex
	var usage anthropic.TokenUsage

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	systemBlocks := anthropic.BuildCachedSystemBlocks(analyzeSystemPrompt)

	for i, vv := range verdicts {
		g.Go(func() error {
			if err := a.limiter.Admit(gCtx); err != nil {
				return err
			}

			body := clipBody(vv.Article.BodyText(), analyzeBodyLimit)
			prompt := fmt.Sprintf(analyzeUserPrompt, vv.Article.Title, categoryList(vv.Categories), body)

			resp, err := a.ai.CreateMessage(gCtx, anthropic.MessageRequest{
				Model:     a.model,
				MaxTokens: 512,
				System:    systemBlocks,
				Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
			})
			if err != nil {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				zap.L().Warn("analyze: call failed, applying default analysis",
					zap.String("url", vv.Article.URL), zap.Error(err))
				out[i] = defaultAnalysis(vv)
				return nil
			}

			mu.Lock()
			usage.Add(resp.Usage)
			mu.Unlock()

			out[i] = parseAnalysis(vv, resp.Text())
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, usage, err
	}

	usage.LogCost(a.model, "analyze")
	return out, usage, nil
}

func defaultAnalysis(vv model.ValueVerdict) model.ImpactAnalysis {
	return model.ImpactAnalysis{
		Article:      vv.Article,
		ImpactType:   model.ImpactWatchlist,
		ImpactAreas:  []model.ImpactArea{model.AreaNone},
		Rationale:    analyzeDefaultRationale,
		Relevance:    model.RelevanceIndirect,
		Category:     primaryCategory(vv.Categories),
		Categories:   vv.Categories,
		IsRegulatory: vv.IsRegulatory,
	}
}

// parseAnalysis decodes the analyzer's JSON answer, coercing every enum to
// a safe value rather than failing.
func parseAnalysis(vv model.ValueVerdict, text string) model.ImpactAnalysis {
	var raw struct {
		ImpactType  string   `json:"impact_type"`
		ImpactAreas []string `json:"impact_areas"`
		Relevance   string   `json:"relevance"`
		Rationale   string   `json:"rationale"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(text)), &raw); err != nil {
		zap.L().Warn("analyze: unparseable answer, applying default analysis",
			zap.String("url", vv.Article.URL), zap.Error(err))
		return defaultAnalysis(vv)
	}

	analysis := defaultAnalysis(vv)
	analysis.Rationale = raw.Rationale

	for _, t := range model.AllImpactTypes() {
		if string(t) == raw.ImpactType {
			analysis.ImpactType = t
			break
		}
	}

	var areas []model.ImpactArea
	for _, rawArea := range raw.ImpactAreas {
		for _, known := range model.AllImpactAreas() {
			if string(known) == rawArea {
				areas = append(areas, known)
				break
			}
		}
	}
	if len(areas) > 0 {
		analysis.ImpactAreas = areas
	}

	if raw.Relevance == string(model.RelevanceDirect) {
		analysis.Relevance = model.RelevanceDirect
	}

	return analysis
}

func primaryCategory(categories []model.Category) string {
	if len(categories) == 0 {
		return string(model.CategoryTechnology)
	}
	return string(categories[0])
}
