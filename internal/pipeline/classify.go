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

const classifySystemPrompt = `You screen AI-industry news for a loyalty-membership and advertising data business. Given a headline and lead, decide whether the article is worth deeper review and assign topical categories.

Categories (one or more): solution (AI products or platforms), case (real-world AI adoption by companies), technology (model or infrastructure advances), regulation (laws, policy, compliance, government action on AI or data).

Respond with a valid JSON object:
{"passed": <true|false>, "categories": ["<category>", ...], "rationale": "<one sentence>"}

Pass articles with concrete business signal. Fail listicles, event promos, stock commentary, and opinion pieces with no new facts. Anything touching regulation must pass.`

const classifyUserPrompt = `Title: %s
Lead: %s
Publisher: %s`

// classifyDefaultRationale is attached when the classifier's answer could
// not be obtained or parsed. Articles are retained on failure so a flaky
// judgment service can only over-deliver, never silently drop news.
const classifyDefaultRationale = "classifier unavailable; retained by default"

// Classifier is the category screening stage.
type Classifier struct {
	ai      anthropic.Client
	limiter *ratelimit.Limiter
	model   string
	workers int
}

// NewClassifier creates the screening stage.
func NewClassifier(ai anthropic.Client, limiter *ratelimit.Limiter, model string, workers int) *Classifier {
	return &Classifier{ai: ai, limiter: limiter, model: model, workers: workers}
}

// Run classifies every article concurrently, bounded by the worker count,
// with rate-limit admission before each call. The verdict slice is aligned
// with the input; no article is ever missing from the output.
func (c *Classifier) Run(ctx context.Context, articles []model.Article) ([]model.ClassificationVerdict, anthropic.TokenUsage, error) {
	verdicts := make([]model.ClassificationVerdict, len(articles))

	var mu sync.Mutex
	var usage anthropic.TokenUsage

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	systemBlocks := anthropic.BuildCachedSystemBlocks(classifySystemPrompt)

	for i, article := range articles {
		g.Go(func() error {
			if err := c.limiter.Admit(gCtx); err != nil {
				return err
			}

			prompt := fmt.Sprintf(classifyUserPrompt, article.Title, article.Lead, article.MediaName)
			resp, err := c.ai.CreateMessage(gCtx, anthropic.MessageRequest{
				Model:     c.model,
				MaxTokens: 256,
				System:    systemBlocks,
				Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
			})
			if err != nil {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				zap.L().Warn("classify: call failed, applying default verdict",
					zap.String("url", article.URL), zap.Error(err))
				verdicts[i] = defaultClassification(article)
				return nil
			}

			mu.Lock()
			usage.Add(resp.Usage)
			mu.Unlock()

			verdicts[i] = parseClassification(article, resp.Text())
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, usage, err
	}

	usage.LogCost(c.model, "classify")
	return verdicts, usage, nil
}

func defaultClassification(article model.Article) model.ClassificationVerdict {
	return model.ClassificationVerdict{
		Article:    article,
		Passed:     true,
		Categories: []model.Category{model.CategoryTechnology},
		Rationale:  classifyDefaultRationale,
	}
}

// parseClassification decodes the classifier's JSON answer, coercing
// unknown categories away and falling back to the default verdict when the
// answer is unusable. Regulatory articles are forced to pass regardless of
// the model's verdict.
func parseClassification(article model.Article, text string) model.ClassificationVerdict {
	var raw struct {
		Passed     bool     `json:"passed"`
		Categories []string `json:"categories"`
		Rationale  string   `json:"rationale"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(text)), &raw); err != nil {
		zap.L().Warn("classify: unparseable answer, applying default verdict",
			zap.String("url", article.URL), zap.Error(err))
		return defaultClassification(article)
	}

	var categories []model.Category
	for _, c := range raw.Categories {
		if cat, ok := model.ParseCategory(c); ok {
			categories = append(categories, cat)
		}
	}
	if len(categories) == 0 {
		categories = []model.Category{model.CategoryTechnology}
	}

	verdict := model.ClassificationVerdict{
		Article:    article,
		Passed:     raw.Passed,
		Categories: categories,
		Rationale:  raw.Rationale,
	}
	if !verdict.Passed && verdict.IsRegulatory() {
		verdict.Passed = true
		verdict.Rationale = "Regulatory article retained. Original: " + raw.Rationale
	}
	return verdict
}
