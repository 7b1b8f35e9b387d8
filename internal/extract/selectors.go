package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// contentSelectors lists known article-body containers, portal-specific
// first, generic last.
var contentSelectors = []string{
	// Naver
	"#articleBodyContents", "#articeBody", "#newsct_article",
	// Daum
	".article_view", "#harmonyContainer",
	// Generic
	"article", ".article-body", ".article-content", "#article-body",
	".article_body", ".news-content", `div[itemprop="articleBody"]`,
	".post-content", ".entry-content",
}

// Selectors is the generic markup-scraping fallback extractor. Each selector
// attempt must assemble at least minChars characters of paragraph text to be
// accepted.
type Selectors struct {
	httpClient *http.Client
	minChars   int
}

// NewSelectors creates the fallback extractor.
func NewSelectors(minChars int) *Selectors {
	if minChars <= 0 {
		minChars = 200
	}
	return &Selectors{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		minChars:   minChars,
	}
}

// Name implements Extractor.
func (s *Selectors) Name() string { return "selectors" }

// Extract implements Extractor.
func (s *Selectors) Extract(ctx context.Context, url string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: build request %s", url)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: fetch %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.New(fmt.Sprintf("extract: fetch %s returned %d", url, resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: parse %s", url)
	}

	doc.Find("script, style, nav, header, footer, aside, iframe").Remove()

	for _, selector := range contentSelectors {
		container := doc.Find(selector).First()
		if container.Length() == 0 {
			continue
		}
		if text := collectParagraphs(container, 0); len(text) >= s.minChars {
			return &Result{Text: text, Method: s.Name()}, nil
		}
		if text := strings.Join(strings.Fields(container.Text()), " "); len(text) >= s.minChars {
			return &Result{Text: text, Method: s.Name()}, nil
		}
	}

	// Last resort: every non-trivial paragraph on the page.
	if text := collectParagraphs(doc.Selection, 20); len(text) >= s.minChars {
		return &Result{Text: text, Method: s.Name()}, nil
	}

	return nil, eris.Errorf("extract: no selector yielded %d+ chars for %s", s.minChars, url)
}

// collectParagraphs joins the text of <p> elements under sel, skipping
// paragraphs at or below minLen characters.
func collectParagraphs(sel *goquery.Selection, minLen int) string {
	var parts []string
	sel.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := strings.Join(strings.Fields(p.Text()), " ")
		if len(text) > minLen {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}
