package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/newswatch/internal/model"
	"github.com/sells-group/newswatch/internal/ratelimit"
	"github.com/sells-group/newswatch/pkg/anthropic"
)

const composeSystemPrompt = `You write briefing entries for an AI-industry news digest read by a loyalty-membership and advertising data business. Given an article, produce a concise 2-3 sentence summary focused on what matters to that business, and list any organizations mentioned that could be partnership candidates.

Respond with a valid JSON object:
{"summary": "<2-3 sentences>", "partners": [{"name": "<org>", "field": "<what they do>", "recent_achievement": "<what the article says they did>", "collaboration_point": "<why they could matter to us>"}]}

The partners array may be empty. Only list organizations the article actually names.`

const composeUserPrompt = `Title: %s
Category: %s
Impact: %s (%s)

Article:
%s`

const composeBodyLimit = 8000

// summaryFallbackLimit caps the excerpt used when summary generation fails.
const summaryFallbackLimit = 300

// Composer turns analyses into delivery-ready messages and the partner
// index. Direct-relevance articles get a generated summary; indirect ones
// get a templated one-liner without spending tokens.
type Composer struct {
	ai      anthropic.Client
	limiter *ratelimit.Limiter
	model   string
	workers int
}

// NewComposer creates the output-composition stage.
func NewComposer(ai anthropic.Client, limiter *ratelimit.Limiter, model string, workers int) *Composer {
	return &Composer{ai: ai, limiter: limiter, model: model, workers: workers}
}

// Run composes one message per analysis, in input order, plus the
// deduplicated partner index drawn from direct-relevance articles.
func (c *Composer) Run(ctx context.Context, analyses []model.ImpactAnalysis) ([]model.BriefMessage, []model.PartnerEntry, anthropic.TokenUsage, error) {
	messages := make([]model.BriefMessage, len(analyses))
	partnersPer := make([][]model.PartnerEntry, len(analyses))

	var mu sync.Mutex
	var usage anthropic.TokenUsage

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	systemBlocks := anthropic.BuildCachedSystemBlocks(composeSystemPrompt)

	for i, analysis := range analyses {
		if analysis.GetRelevance() != model.RelevanceDirect {
			messages[i] = indirectMessage(analysis)
			continue
		}

		g.Go(func() error {
			if err := c.limiter.Admit(gCtx); err != nil {
				return err
			}

			body := clipBody(analysis.Article.BodyText(), composeBodyLimit)
			prompt := fmt.Sprintf(composeUserPrompt,
				analysis.Article.Title,
				analysis.Category,
				analysis.ImpactType,
				analysis.Rationale,
				body,
			)

			resp, err := c.ai.CreateMessage(gCtx, anthropic.MessageRequest{
				Model:     c.model,
				MaxTokens: 1024,
				System:    systemBlocks,
				Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
			})
			if err != nil {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				zap.L().Warn("compose: summary call failed, using excerpt",
					zap.String("url", analysis.Article.URL), zap.Error(err))
				messages[i] = fallbackMessage(analysis)
				return nil
			}

			mu.Lock()
			usage.Add(resp.Usage)
			mu.Unlock()

			summary, partners := parseComposition(analysis, resp.Text())
			messages[i] = model.BriefMessage{
				ArticleURL: analysis.Article.URL,
				Summary:    summary,
				Relevance:  model.RelevanceDirect,
				Category:   analysis.Category,
			}
			partnersPer[i] = partners
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, usage, err
	}

	var all []model.PartnerEntry
	for _, entries := range partnersPer {
		all = append(all, entries...)
	}
	partners := dedupPartners(all)

	usage.LogCost(c.model, "compose")
	zap.L().Info("compose: output ready",
		zap.Int("messages", len(messages)),
		zap.Int("partners", len(partners)),
	)
	return messages, partners, usage, nil
}

// indirectMessage renders the templated one-liner for any relevant item
// without spending a judgment call.
func indirectMessage(item model.HasRelevance) model.BriefMessage {
	art := item.GetArticle()
	return model.BriefMessage{
		ArticleURL: art.URL,
		Summary:    fmt.Sprintf("[%s] %s", item.GetCategory(), art.Title),
		Relevance:  model.RelevanceIndirect,
		Category:   item.GetCategory(),
	}
}

func fallbackMessage(item model.HasRelevance) model.BriefMessage {
	art := item.GetArticle()
	excerpt := art.BodyText()
	if len(excerpt) > summaryFallbackLimit {
		excerpt = clipBody(excerpt, summaryFallbackLimit) + "…"
	}
	return model.BriefMessage{
		ArticleURL: art.URL,
		Summary:    art.Title + "\n\n" + excerpt,
		Relevance:  model.RelevanceDirect,
		Category:   item.GetCategory(),
	}
}

// parseComposition decodes the composer's answer. An unusable answer falls
// back to the excerpt summary; partner entries without a name are dropped.
func parseComposition(analysis model.ImpactAnalysis, text string) (string, []model.PartnerEntry) {
	var raw struct {
		Summary  string `json:"summary"`
		Partners []struct {
			Name               string `json:"name"`
			Field              string `json:"field"`
			RecentAchievement  string `json:"recent_achievement"`
			CollaborationPoint string `json:"collaboration_point"`
		} `json:"partners"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(text)), &raw); err != nil || strings.TrimSpace(raw.Summary) == "" {
		zap.L().Warn("compose: unparseable answer, using excerpt",
			zap.String("url", analysis.Article.URL))
		return fallbackMessage(analysis).Summary, nil
	}

	var partners []model.PartnerEntry
	for _, p := range raw.Partners {
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		partners = append(partners, model.PartnerEntry{
			Name:               strings.TrimSpace(p.Name),
			Field:              p.Field,
			RecentAchievement:  p.RecentAchievement,
			CollaborationPoint: p.CollaborationPoint,
			SourceURL:          analysis.Article.URL,
		})
	}
	return strings.TrimSpace(raw.Summary), partners
}

// dedupPartners merges entries naming the same organization (case-
// insensitive), keeping the one with the most substantial recent
// achievement. Output preserves first-seen order.
func dedupPartners(entries []model.PartnerEntry) []model.PartnerEntry {
	index := make(map[string]int)
	var out []model.PartnerEntry

	for _, entry := range entries {
		key := strings.ToLower(entry.Name)
		if i, ok := index[key]; ok {
			if len(entry.RecentAchievement) > len(out[i].RecentAchievement) {
				out[i] = entry
			}
			continue
		}
		index[key] = len(out)
		out = append(out, entry)
	}
	return out
}
