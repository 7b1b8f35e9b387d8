// Package webex provides the delivery-channel client: it posts markdown
// messages to a Webex room.
package webex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://webexapis.com/v1"

// Client defines the delivery operations used by the send phase.
type Client interface {
	// SendMarkdown posts one markdown message to the configured room.
	SendMarkdown(ctx context.Context, markdown string) error
}

// Option configures the Webex client.
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

type httpClient struct {
	token      string
	roomID     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Webex client for one room.
func NewClient(token, roomID string, opts ...Option) Client {
	c := &httpClient{
		token:      token,
		roomID:     roomID,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) SendMarkdown(ctx context.Context, markdown string) error {
	payload, err := json.Marshal(map[string]string{
		"roomId":   c.roomID,
		"markdown": markdown,
	})
	if err != nil {
		return eris.Wrap(err, "webex: marshal message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "webex: build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return eris.Wrap(err, "webex: send message")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return eris.New(fmt.Sprintf("webex: send returned %d: %s", resp.StatusCode, string(body)))
	}
	return nil
}
