// Package naver provides a client for the Naver open news search API.
package naver

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://openapi.naver.com/v1/search/news.json"

// MaxResults is the provider-side cap on reachable results per query
// (start parameter max 1000). Collection must work around it with the
// prior-day-window heuristics rather than deeper paging.
const MaxResults = 1000

// Client defines the Naver news search operations.
type Client interface {
	// Search returns one page of news results for the query. Start is
	// 1-based; display is the page size (max 100).
	Search(ctx context.Context, query string, start, display int) (*SearchResponse, error)
}

// SearchResponse is the parsed Naver search API response.
type SearchResponse struct {
	Total   int    `json:"total"`
	Start   int    `json:"start"`
	Display int    `json:"display"`
	Items   []Item `json:"items"`
}

// Item is a single news result. Title and Description are plain text:
// the API's <b> highlight tags and HTML entities are stripped on decode.
type Item struct {
	Title        string `json:"title"`
	OriginalLink string `json:"originallink"`
	Link         string `json:"link"`
	Description  string `json:"description"`
	PubDate      string `json:"pubDate"` // "Mon, 02 Jan 2006 15:04:05 +0900"
}

// PublishedAt parses the item's publication timestamp.
func (i Item) PublishedAt() (time.Time, error) {
	t, err := time.Parse(time.RFC1123Z, i.PubDate)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "naver: parse pubDate %q", i.PubDate)
	}
	return t, nil
}

// URL returns the canonical article URL, preferring the publisher link.
func (i Item) URL() string {
	if i.OriginalLink != "" {
		return i.OriginalLink
	}
	return i.Link
}

// Option configures the Naver client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.httpClient = hc
	}
}

// WithRateLimit overrides the politeness limit in requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

type httpClient struct {
	clientID     string
	clientSecret string
	baseURL      string
	httpClient   *http.Client
	limiter      *rate.Limiter
}

// NewClient creates a Naver news search client.
func NewClient(clientID, clientSecret string, opts ...Option) Client {
	c := &httpClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      defaultBaseURL,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		limiter:      rate.NewLimiter(rate.Limit(5), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, query string, start, display int) (*SearchResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "naver: rate wait")
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("start", strconv.Itoa(start))
	params.Set("display", strconv.Itoa(display))
	params.Set("sort", "date")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "naver: build request")
	}
	req.Header.Set("X-Naver-Client-Id", c.clientID)
	req.Header.Set("X-Naver-Client-Secret", c.clientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "naver: search request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "naver: read body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.New(fmt.Sprintf("naver: search returned %d: %s", resp.StatusCode, truncate(string(body), 200)))
	}

	var parsed SearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "naver: decode response")
	}

	for i := range parsed.Items {
		parsed.Items[i].Title = stripMarkup(parsed.Items[i].Title)
		parsed.Items[i].Description = stripMarkup(parsed.Items[i].Description)
	}

	zap.L().Debug("naver: search page",
		zap.String("query", query),
		zap.Int("start", start),
		zap.Int("items", len(parsed.Items)),
		zap.Int("total", parsed.Total),
	)
	return &parsed, nil
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// stripMarkup removes the API's <b> highlight tags and decodes HTML entities.
func stripMarkup(s string) string {
	return strings.TrimSpace(html.UnescapeString(tagPattern.ReplaceAllString(s, "")))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
