package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/newswatch/internal/config"
	"github.com/sells-group/newswatch/internal/model"
	"github.com/sells-group/newswatch/pkg/naver"
	"github.com/sells-group/newswatch/pkg/newsapi"
)

// staleStopCount is the number of items older than the target day on a
// single page after which a keyword's pagination stops. Both providers sort
// newest-first, so a page dominated by stale items means paging has moved
// past the window; scattered stale items across pages must not stop paging.
const staleStopCount = 50

// Collector gathers prior-day articles for each configured keyword from
// both news providers.
type Collector struct {
	naver   naver.Client
	newsapi newsapi.Client
	cfg     config.CollectConfig
	loc     *time.Location
	now     func() time.Time
}

// NewCollector creates a Collector. The configured timezone fixes the
// prior-day window regardless of host clock settings.
func NewCollector(nv naver.Client, na newsapi.Client, cfg config.CollectConfig) (*Collector, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, eris.Wrapf(err, "collect: load timezone %s", cfg.Timezone)
	}
	return &Collector{naver: nv, newsapi: na, cfg: cfg, loc: loc, now: time.Now}, nil
}

// Window returns the half-open prior-day interval [start, end) and its
// date key.
func (c *Collector) Window() (start, end time.Time, dateKey string) {
	local := c.now().In(c.loc)
	y := local.AddDate(0, 0, -1)
	start = time.Date(y.Year(), y.Month(), y.Day(), 0, 0, 0, 0, c.loc)
	end = start.AddDate(0, 0, 1)
	return start, end, start.Format("2006-01-02")
}

// Collect gathers prior-day articles for every keyword, deduplicated by
// URL across keywords and providers. Provider failures are logged and the
// remaining sources still contribute; only context cancellation aborts.
func (c *Collector) Collect(ctx context.Context) ([]model.Article, error) {
	start, end, dateKey := c.Window()
	log := zap.L().With(zap.String("date", dateKey))

	seen := make(map[string]bool)
	var articles []model.Article
	add := func(a model.Article) bool {
		if a.URL == "" || seen[a.URL] {
			return false
		}
		seen[a.URL] = true
		articles = append(articles, a)
		return true
	}

	for _, keyword := range c.cfg.Keywords {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "collect: cancelled")
		}

		before := len(articles)
		if c.naver != nil {
			if err := c.collectNaver(ctx, keyword, start, end, add); err != nil {
				log.Warn("collect: naver keyword failed",
					zap.String("keyword", keyword), zap.Error(err))
			}
		}
		if c.newsapi != nil {
			if err := c.collectNewsAPI(ctx, keyword, dateKey, add); err != nil {
				log.Warn("collect: newsapi keyword failed",
					zap.String("keyword", keyword), zap.Error(err))
			}
		}

		log.Info("collect: keyword done",
			zap.String("keyword", keyword),
			zap.Int("articles", len(articles)-before),
		)
	}

	log.Info("collect: finished",
		zap.Int("keywords", len(c.cfg.Keywords)),
		zap.Int("articles", len(articles)),
	)
	return articles, nil
}

// collectNaver pages through Naver search results newest-first, keeping
// items inside the prior-day window. Pagination stops when a page is empty,
// when one page is dominated by stale items, or when the per-keyword
// target is met and a page contributes nothing new. Items published today
// or before the window are counted per page but discarded.
func (c *Collector) collectNaver(ctx context.Context, keyword string, start, end time.Time, add func(model.Article) bool) error {
	kept := 0

	for page := 0; page < c.cfg.MaxPages; page++ {
		offset := page*c.cfg.PageSize + 1
		if offset > naver.MaxResults {
			break
		}

		resp, err := c.naver.Search(ctx, keyword, offset, c.cfg.PageSize)
		if err != nil {
			return err
		}
		if len(resp.Items) == 0 {
			break
		}

		pageKept, pageToday, pageOlder := 0, 0, 0
		for _, item := range resp.Items {
			published, err := item.PublishedAt()
			if err != nil {
				zap.L().Debug("collect: skipping unparseable naver item",
					zap.String("url", item.URL()), zap.Error(err))
				continue
			}
			if published.Before(start) {
				pageOlder++
				continue
			}
			if !published.Before(end) {
				pageToday++
				continue
			}
			if add(model.Article{
				Title:       item.Title,
				URL:         item.URL(),
				PublishedAt: published,
				Source:      model.SourceNaver,
				MediaName:   mediaNameFromURL(item.OriginalLink),
				Lead:        item.Description,
			}) {
				pageKept++
			}
		}

		kept += pageKept

		zap.L().Debug("collect: naver page",
			zap.String("keyword", keyword),
			zap.Int("page", page+1),
			zap.Int("yesterday", pageKept),
			zap.Int("today", pageToday),
			zap.Int("older", pageOlder),
		)

		if pageOlder >= staleStopCount {
			break
		}
		if kept >= c.cfg.TargetPerKeyword && pageKept == 0 && pageOlder > 0 {
			break
		}
	}
	return nil
}

// collectNewsAPI pages through newsapi.org results for the target date.
func (c *Collector) collectNewsAPI(ctx context.Context, keyword, dateKey string, add func(model.Article) bool) error {
	kept := 0

	for page := 1; page <= c.cfg.MaxPages; page++ {
		resp, err := c.newsapi.Everything(ctx, keyword, dateKey, dateKey, page, c.cfg.PageSize)
		if err != nil {
			return err
		}
		if len(resp.Articles) == 0 {
			break
		}

		for _, item := range resp.Articles {
			if add(model.Article{
				Title:       item.Title,
				URL:         item.URL,
				PublishedAt: item.PublishedAt,
				Source:      model.SourceNewsAPI,
				MediaName:   item.Source.Name,
				Lead:        item.Description,
			}) {
				kept++
			}
		}

		if kept >= c.cfg.TargetPerKeyword {
			break
		}
		if page*c.cfg.PageSize >= resp.TotalResults {
			break
		}
	}
	return nil
}

// mediaNameFromURL derives a publisher label from the article host. Naver
// search results carry no publisher name, so the registrable host part is
// the best available signal.
func mediaNameFromURL(rawURL string) string {
	rest := rawURL
	if idx := strings.Index(rest, "://"); idx >= 0 {
		rest = rest[idx+3:]
	}
	if idx := strings.IndexAny(rest, "/?"); idx >= 0 {
		rest = rest[:idx]
	}
	rest = strings.TrimPrefix(rest, "www.")
	return rest
}
