// Package cohere provides the embedding client used by the similarity
// engine, backed by the Cohere embed API.
package cohere

import (
	"context"
	"net/http"
	"time"

	sdk "github.com/cohere-ai/cohere-go/v2"
	sdkclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/rotisserie/eris"
)

// Client defines the embedding operations used by the pipeline.
type Client interface {
	// EmbedTexts returns one vector per input text, in input order.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Option configures the Cohere client.
type Option func(*embedClient)

// WithModel sets the embedding model.
func WithModel(model string) Option {
	return func(c *embedClient) {
		c.model = model
	}
}

// WithDimension requests a specific output dimensionality (models that
// support matryoshka truncation only).
func WithDimension(dim int) Option {
	return func(c *embedClient) {
		c.dimension = dim
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *embedClient) {
		c.httpClient = hc
	}
}

type embedClient struct {
	client     *sdkclient.Client
	model      string
	dimension  int
	httpClient *http.Client
}

// NewClient creates a Cohere embedding client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &embedClient{
		model:      "embed-multilingual-v3.0",
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.client = sdkclient.NewClient(
		sdkclient.WithToken(apiKey),
		sdkclient.WithHTTPClient(c.httpClient),
	)
	return c
}

func (c *embedClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	req := &sdk.V2EmbedRequest{
		Texts:          texts,
		Model:          c.model,
		InputType:      sdk.EmbedInputTypeClustering,
		EmbeddingTypes: []sdk.EmbeddingType{sdk.EmbeddingTypeFloat},
	}
	if c.dimension > 0 {
		dim := c.dimension
		req.OutputDimension = &dim
	}

	resp, err := c.client.V2.Embed(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "cohere: embed")
	}
	if resp == nil || resp.Embeddings == nil || resp.Embeddings.Float == nil {
		return nil, eris.New("cohere: embed returned no float embeddings")
	}

	floats := resp.Embeddings.Float
	if len(floats) != len(texts) {
		return nil, eris.Errorf("cohere: embedding count mismatch: want %d, got %d", len(texts), len(floats))
	}

	out := make([][]float32, len(floats))
	for i, vec := range floats {
		fv := make([]float32, len(vec))
		for j, v := range vec {
			fv[j] = float32(v)
		}
		out[i] = fv
	}
	return out, nil
}
