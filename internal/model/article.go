package model

import "time"

// Source identifies the news API an article was collected from.
type Source string

const (
	SourceNaver   Source = "naver"
	SourceNewsAPI Source = "newsapi"
)

// Article is a collected news item. Identity is the canonical URL.
// Lead and Fingerprint are set during headline dedup; Content and Embedding
// are set during content extraction and never mutated afterwards.
type Article struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
	Source      Source    `json:"source"`
	MediaName   string    `json:"media_name,omitempty"`
	Lead        string    `json:"lead,omitempty"`
	Content     string    `json:"content,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Embedding   []float32 `json:"-"`
}

// HeadlineText is the text used for headline-level similarity.
func (a Article) HeadlineText() string {
	if a.Lead == "" {
		return a.Title
	}
	return a.Title + " " + a.Lead
}

// BodyText returns the best available text for content-level similarity:
// full content, then lead, then title.
func (a Article) BodyText() string {
	if a.Content != "" {
		return a.Content
	}
	if a.Lead != "" {
		return a.Lead
	}
	return a.Title
}

// Category is a topical label assigned by the category classifier.
type Category string

const (
	CategorySolution   Category = "solution"
	CategoryCase       Category = "case"
	CategoryTechnology Category = "technology"
	CategoryRegulation Category = "regulation"
)

// AllCategories returns all defined categories.
func AllCategories() []Category {
	return []Category{
		CategorySolution,
		CategoryCase,
		CategoryTechnology,
		CategoryRegulation,
	}
}

// ParseCategory validates a raw category string. Unknown values map to
// ("", false) so callers can drop them rather than invent labels.
func ParseCategory(raw string) (Category, bool) {
	c := Category(raw)
	for _, known := range AllCategories() {
		if c == known {
			return c, true
		}
	}
	return "", false
}
