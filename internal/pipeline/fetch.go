package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/newswatch/internal/extract"
	"github.com/sells-group/newswatch/internal/model"
)

// maxFetchConcurrency bounds parallel article-body fetches. These hit many
// distinct publisher hosts, so the bound is about local resource use, not
// provider politeness.
const maxFetchConcurrency = 10

// ContentFetcher fills in article bodies for surviving verdicts using the
// extraction chain. Extraction failures degrade to the lead excerpt or
// title; the stage never drops an article.
type ContentFetcher struct {
	chain *extract.Chain
}

// NewContentFetcher creates the body-extraction stage.
func NewContentFetcher(chain *extract.Chain) *ContentFetcher {
	return &ContentFetcher{chain: chain}
}

// Run fetches bodies concurrently and returns the same verdicts with
// Content populated where extraction succeeded.
func (f *ContentFetcher) Run(ctx context.Context, verdicts []model.ClassificationVerdict) []model.ClassificationVerdict {
	var mu sync.Mutex
	methods := make(map[string]int)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxFetchConcurrency)

	for i := range verdicts {
		g.Go(func() error {
			result, err := f.chain.Extract(gCtx, verdicts[i].Article.URL)
			if err != nil {
				zap.L().Debug("fetch: extraction failed, falling back to lead",
					zap.String("url", verdicts[i].Article.URL), zap.Error(err))
				mu.Lock()
				methods["fallback"]++
				mu.Unlock()
				return nil
			}
			verdicts[i].Article.Content = result.Text
			mu.Lock()
			methods[result.Method]++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("fetch: bodies extracted",
		zap.Int("articles", len(verdicts)),
		zap.Any("methods", methods),
	)
	return verdicts
}
