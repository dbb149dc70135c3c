// Package ollama implements the embedding provider against a local or
// remote Ollama server.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"github.com/resolve-studio/semgraph/internal/domain"
)

// Embedder is an embedding provider backed by an Ollama server.
type Embedder struct {
	client *api.Client
	model  string
}

// Config holds the Ollama provider settings. APIKey is optional; some
// reverse-proxied deployments require it.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewEmbedder creates an Ollama embedding provider.
func NewEmbedder(cfg *Config) (*Embedder, error) {
	var (
		u   *url.URL
		err error
	)
	if cfg.BaseURL != "" {
		u, err = url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse ollama base url: %w", err)
		}
	}

	httpClient := http.DefaultClient
	if cfg.APIKey != "" {
		httpClient = &http.Client{
			Transport: &headerTransport{
				headers: map[string]string{"Authorization": "Bearer " + cfg.APIKey},
				rt:      http.DefaultTransport,
			},
		}
	}

	return &Embedder{
		client: api.NewClient(u, httpClient),
		model:  cfg.Model,
	}, nil
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := e.embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	if len(res.Embeddings) == 0 {
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrModelUnavailable)
	}

	return domain.EmbeddingResult{
		Embedding:    res.Embeddings[0],
		PromptTokens: res.PromptEvalCount,
		TotalTokens:  res.PromptEvalCount,
	}, nil
}

// BatchEmbed implements domain.BatchEmbedder. Ollama's embed endpoint takes
// a string slice natively.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	res, err := e.embed(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	if len(res.Embeddings) != len(texts) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf(
			"embedding response has %d vectors for %d inputs: %w",
			len(res.Embeddings), len(texts), domain.ErrModelUnavailable,
		)
	}

	return domain.BatchEmbeddingResult{
		Embeddings:   res.Embeddings,
		PromptTokens: res.PromptEvalCount,
		TotalTokens:  res.PromptEvalCount,
	}, nil
}

func (e *Embedder) embed(ctx context.Context, input any) (*api.EmbedResponse, error) {
	res, err := e.client.Embed(ctx, &api.EmbedRequest{
		Model: e.model,
		Input: input,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w: %v", domain.ErrModelUnavailable, err)
	}
	return res, nil
}

// HealthCheck verifies server availability via the heartbeat endpoint.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if err := e.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama heartbeat: %w", err)
	}
	return nil
}
