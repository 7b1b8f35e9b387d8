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

const validateSystemPrompt = `You judge whether an AI-industry news article has actionable value for a loyalty-membership and advertising data business. Valuable articles describe something the business could act on: a technology to evaluate, a competitor move to respond to, a partner to approach, or a rule to comply with.

Respond with a valid JSON object:
{"has_value": <true|false>, "rationale": "<one sentence>"}`

const validateUserPrompt = `Title: %s
Categories: %s

Article:
%s`

// validateDefaultRationale is applied when the validator's answer could
// not be obtained or parsed; articles are retained on failure.
const validateDefaultRationale = "validator unavailable; retained by default"

// validateBodyLimit truncates long bodies before judgment to cap cost.
const validateBodyLimit = 6000

// Validator is the business-value screening stage.
type Validator struct {
	ai      anthropic.Client
	limiter *ratelimit.Limiter
	model   string
	workers int
}

// NewValidator creates the value-screening stage.
func NewValidator(ai anthropic.Client, limiter *ratelimit.Limiter, model string, workers int) *Validator {
	return &Validator{ai: ai, limiter: limiter, model: model, workers: workers}
}

// Run judges every verdict concurrently. Regulatory articles keep their
// place even when judged valueless; the override is recorded in the
// rationale.
func (v *Validator) Run(ctx context.Context, verdicts []model.ClassificationVerdict) ([]model.ValueVerdict, anthropic.TokenUsage, error) {
	out := make([]model.ValueVerdict, len(verdicts))

	var mu sync.Mutex
	var usage anthropic.TokenUsage

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(v.workers)

	systemBlocks := anthropic.BuildCachedSystemBlocks(validateSystemPrompt)

	for i, cv := range verdicts {
		g.Go(func() error {
			if err := v.limiter.Admit(gCtx); err != nil {
				return err
			}

			body := clipBody(cv.Article.BodyText(), validateBodyLimit)
			prompt := fmt.Sprintf(validateUserPrompt, cv.Article.Title, categoryList(cv.Categories), body)

			resp, err := v.ai.CreateMessage(gCtx, anthropic.MessageRequest{
				Model:     v.model,
				MaxTokens: 256,
				System:    systemBlocks,
				Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
			})
			if err != nil {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				zap.L().Warn("validate: call failed, applying default verdict",
					zap.String("url", cv.Article.URL), zap.Error(err))
				out[i] = defaultValueVerdict(cv)
				return nil
			}

			mu.Lock()
			usage.Add(resp.Usage)
			mu.Unlock()

			out[i] = parseValueVerdict(cv, resp.Text())
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, usage, err
	}

	usage.LogCost(v.model, "validate")
	return out, usage, nil
}

func defaultValueVerdict(cv model.ClassificationVerdict) model.ValueVerdict {
	return model.ValueVerdict{
		Article:      cv.Article,
		HasValue:     true,
		Rationale:    validateDefaultRationale,
		Categories:   cv.Categories,
		IsRegulatory: cv.IsRegulatory(),
	}
}

func parseValueVerdict(cv model.ClassificationVerdict, text string) model.ValueVerdict {
	var raw struct {
		HasValue  bool   `json:"has_value"`
		Rationale string `json:"rationale"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(text)), &raw); err != nil {
		zap.L().Warn("validate: unparseable answer, applying default verdict",
			zap.String("url", cv.Article.URL), zap.Error(err))
		return defaultValueVerdict(cv)
	}

	verdict := model.ValueVerdict{
		Article:      cv.Article,
		HasValue:     raw.HasValue,
		Rationale:    raw.Rationale,
		Categories:   cv.Categories,
		IsRegulatory: cv.IsRegulatory(),
	}
	if !verdict.HasValue && verdict.IsRegulatory {
		verdict.HasValue = true
		verdict.Rationale = "Regulatory article retained. Original: " + raw.Rationale
	}
	return verdict
}

func categoryList(categories []model.Category) string {
	var out string
	for i, c := range categories {
		if i > 0 {
			out += ", "
		}
		out += string(c)
	}
	return out
}
