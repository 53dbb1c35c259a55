package embedder

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Endpoints holds the base URLs and keys of both embedding providers.
type Endpoints struct {
	OpenAIBaseURL string
	OpenAIAPIKey  string
	OllamaBaseURL string
}

// Client embeds text through an OpenAI-compatible /embeddings endpoint.
// Ollama exposes the same API under /v1, so both providers share it.
type Client struct {
	client         *openai.Client
	model          string
	dimensions     int
	sendDimensions bool
}

var _ Embedder = (*Client)(nil)

// New builds the embedder described by spec.
func New(spec Spec, ep Endpoints) (*Client, error) {
	switch spec.Provider {
	case ProviderOpenAI:
		return NewOpenAI(ep.OpenAIBaseURL, ep.OpenAIAPIKey, spec.Model, spec.Dimensions), nil
	case ProviderOllama:
		return NewOllama(ep.OllamaBaseURL, spec.Model, spec.Dimensions), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", spec.Provider)
	}
}

func NewOpenAI(baseURL, apiKey, model string, dimensions int) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	return &Client{
		client:         openai.NewClientWithConfig(cfg),
		model:          model,
		dimensions:     dimensions,
		sendDimensions: true,
	}
}

// NewOllama talks to Ollama's OpenAI-compatible API. Ollama ignores the dimensions parameter,
// so it is not sent and the returned length is checked instead.
func NewOllama(baseURL, model string, dimensions int) *Client {
	cfg := openai.DefaultConfig("ollama")
	cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	return &Client{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		dimensions: dimensions,
	}
}

func (c *Client) Model() string   { return c.model }
func (c *Client) Dimensions() int { return c.dimensions }

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("texts cannot be empty")
	}

	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.model),
	}
	if c.sendDimensions {
		req.Dimensions = c.dimensions
	}

	resp, err := c.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		if len(d.Embedding) != c.dimensions {
			return nil, fmt.Errorf("model %s returned %d dimensions, expected %d", c.model, len(d.Embedding), c.dimensions)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}
