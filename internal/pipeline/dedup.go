package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/newswatch/internal/model"
	"github.com/sells-group/newswatch/internal/similarity"
)

// Representative-selection weights. Headline dedup favors the most
// informative item in a duplicate cluster; content dedup additionally
// favors breadth of categorization and regulatory standing.
const (
	headlineMediaBonus   = 100
	headlineRecencyBonus = 50

	contentMediaBonus      = 500
	contentCategoryBonus   = 100
	contentRegulatoryBonus = 1000
)

// DedupHeadlines collapses near-duplicate headlines, keeping one
// representative per cluster. Embeddings and fingerprints computed here are
// attached to the surviving articles for reuse downstream. When the
// embedding engine is unavailable the fingerprint fallback groups exact
// and near-exact title matches instead; the stage never fails.
func DedupHeadlines(ctx context.Context, engine *similarity.Engine, articles []model.Article, threshold float64) []model.Article {
	if len(articles) <= 1 {
		return articles
	}

	texts := make([]string, len(articles))
	for i := range articles {
		texts[i] = articles[i].HeadlineText()
		articles[i].Fingerprint = similarity.Fingerprint(texts[i])
	}

	vectors, err := engine.EmbedBatch(ctx, texts)

	var groups [][]int
	if err != nil {
		if !eris.Is(err, similarity.ErrUnavailable) {
			zap.L().Warn("dedup: unexpected embed failure, using fingerprint fallback", zap.Error(err))
		}
		groups = similarity.GroupByFingerprint(texts)
	} else {
		for i := range articles {
			articles[i].Embedding = vectors[i]
		}
		groups = similarity.GroupByAnchor(vectors, threshold)
	}

	survivors := make([]model.Article, 0, len(groups))
	for _, group := range groups {
		best := group[0]
		for _, idx := range group[1:] {
			if headlineScore(articles[idx]) > headlineScore(articles[best]) {
				best = idx
			}
		}
		survivors = append(survivors, articles[best])
	}

	zap.L().Info("dedup: headlines",
		zap.Int("in", len(articles)),
		zap.Int("out", len(survivors)),
		zap.Bool("fallback", err != nil),
	)
	return survivors
}

// headlineScore ranks duplicate headlines: longer leads carry more signal,
// a named publisher beats an anonymous one, and later-in-the-day items are
// likelier to include corrections.
func headlineScore(a model.Article) int {
	score := len(a.Lead)
	if a.MediaName != "" {
		score += headlineMediaBonus
	}
	if a.PublishedAt.Hour() >= 12 {
		score += headlineRecencyBonus
	}
	return score
}

// DedupContents collapses near-duplicate article bodies after extraction.
// A cluster containing a regulatory article always keeps a regulatory
// representative. Falls back to fingerprint grouping like DedupHeadlines.
func DedupContents(ctx context.Context, engine *similarity.Engine, verdicts []model.ClassificationVerdict, threshold float64) []model.ClassificationVerdict {
	if len(verdicts) <= 1 {
		return verdicts
	}

	texts := make([]string, len(verdicts))
	for i := range verdicts {
		texts[i] = verdicts[i].Article.BodyText()
	}

	vectors, err := engine.EmbedBatch(ctx, texts)

	var groups [][]int
	if err != nil {
		if !eris.Is(err, similarity.ErrUnavailable) {
			zap.L().Warn("dedup: unexpected embed failure, using fingerprint fallback", zap.Error(err))
		}
		groups = similarity.GroupByFingerprint(texts)
	} else {
		for i := range verdicts {
			verdicts[i].Article.Embedding = vectors[i]
		}
		groups = similarity.GroupByAnchor(vectors, threshold)
	}

	survivors := make([]model.ClassificationVerdict, 0, len(groups))
	for _, group := range groups {
		best := group[0]
		for _, idx := range group[1:] {
			// A regulatory member must win over any non-regulatory one.
			if verdicts[idx].IsRegulatory() && !verdicts[best].IsRegulatory() {
				best = idx
				continue
			}
			if !verdicts[idx].IsRegulatory() && verdicts[best].IsRegulatory() {
				continue
			}
			if contentScore(verdicts[idx]) > contentScore(verdicts[best]) {
				best = idx
			}
		}
		survivors = append(survivors, verdicts[best])
	}

	zap.L().Info("dedup: contents",
		zap.Int("in", len(verdicts)),
		zap.Int("out", len(survivors)),
		zap.Bool("fallback", err != nil),
	)
	return survivors
}

// contentScore ranks duplicate bodies by completeness and judgment breadth.
func contentScore(v model.ClassificationVerdict) int {
	score := len(v.Article.Content)
	if v.Article.MediaName != "" {
		score += contentMediaBonus
	}
	score += contentCategoryBonus * len(v.Categories)
	if v.IsRegulatory() {
		score += contentRegulatoryBonus
	}
	return score
}
