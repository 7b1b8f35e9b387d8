package extract

import (
	"context"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/rotisserie/eris"
)

const readabilityTimeout = 15 * time.Second

// Readability is the primary structured extractor.
type Readability struct {
	timeout time.Duration
}

// NewReadability creates the structured extractor.
func NewReadability() *Readability {
	return &Readability{timeout: readabilityTimeout}
}

// Name implements Extractor.
func (r *Readability) Name() string { return "readability" }

// Extract implements Extractor.
func (r *Readability) Extract(_ context.Context, url string) (*Result, error) {
	article, err := readability.FromURL(url, r.timeout)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: readability %s", url)
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return nil, eris.Errorf("extract: readability produced no text for %s", url)
	}
	return &Result{Text: text, Method: r.Name()}, nil
}
