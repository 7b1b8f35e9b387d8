package newsapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEverythingParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "/everything", r.URL.Path)
		assert.Equal(t, "2026-02-23", r.URL.Query().Get("from"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "ok",
			"totalResults": 1,
			"articles": [
				{"source": {"id": "", "name": "TechWire"}, "title": "AI news", "description": "lead text", "url": "https://techwire.example/x", "publishedAt": "2026-02-23T14:00:00Z"}
			]
		}`))
	}))
	defer srv.Close()

	c := NewClient("key", WithBaseURL(srv.URL))

	resp, err := c.Everything(context.Background(), "AI", "2026-02-23", "2026-02-23", 1, 100)
	require.NoError(t, err)
	require.Len(t, resp.Articles, 1)
	assert.Equal(t, "TechWire", resp.Articles[0].Source.Name)
	assert.Equal(t, 14, resp.Articles[0].PublishedAt.Hour())
}

func TestEverythingErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "error", "code": "rateLimited"}`))
	}))
	defer srv.Close()

	c := NewClient("key", WithBaseURL(srv.URL))

	_, err := c.Everything(context.Background(), "AI", "2026-02-23", "2026-02-23", 1, 100)
	assert.Error(t, err)
}
