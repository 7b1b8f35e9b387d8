package webex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMarkdown(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"m1"}`))
	}))
	defer srv.Close()

	c := NewClient("tok", "room-1", WithBaseURL(srv.URL))

	err := c.SendMarkdown(context.Background(), "**hello**")
	require.NoError(t, err)
	assert.Equal(t, "room-1", got["roomId"])
	assert.Equal(t, "**hello**", got["markdown"])
}

func TestSendMarkdownFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"room not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient("tok", "room-x", WithBaseURL(srv.URL))

	err := c.SendMarkdown(context.Background(), "msg")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
