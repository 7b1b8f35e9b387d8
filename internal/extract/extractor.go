// Package extract provides chained best-effort article body extraction:
// structured extraction first, then generic markup scraping over a list of
// known content containers. Failures never abort a run; callers fall back
// to the lead excerpt or title.
package extract

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Result holds extracted article text with the method that produced it.
type Result struct {
	Text   string
	Method string // e.g. "readability", "selectors"
}

// Extractor produces article body text for a URL.
type Extractor interface {
	Extract(ctx context.Context, url string) (*Result, error)
	Name() string
}

// Chain tries extractors in priority order, returning the first result with
// at least minChars characters.
type Chain struct {
	extractors []Extractor
	minChars   int
}

// NewChain creates a Chain. Extractors are tried in order.
func NewChain(minChars int, extractors ...Extractor) *Chain {
	if minChars <= 0 {
		minChars = 200
	}
	return &Chain{extractors: extractors, minChars: minChars}
}

// Extract tries each extractor in order. Results shorter than the minimum
// are treated as failures and the next extractor is tried.
func (c *Chain) Extract(ctx context.Context, url string) (*Result, error) {
	var lastErr error
	for _, e := range c.extractors {
		result, err := e.Extract(ctx, url)
		if err != nil {
			zap.L().Debug("extract: extractor failed, trying next",
				zap.String("extractor", e.Name()),
				zap.String("url", url),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		if result == nil || len(result.Text) < c.minChars {
			zap.L().Debug("extract: result below minimum, trying next",
				zap.String("extractor", e.Name()),
				zap.String("url", url),
			)
			continue
		}
		return result, nil
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "extract: all extractors failed")
	}
	return nil, eris.Errorf("extract: no usable content for %s", url)
}
