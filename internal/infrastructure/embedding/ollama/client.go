package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"docranker/internal/core/domain"
	"docranker/internal/infrastructure/resilience"
)

// Client talks to an Ollama instance for embeddings only. Every failure that
// survives the retry/breaker policy is surfaced as
// domain.ErrEmbeddingUnavailable so the retrieval path can decide between
// aborting and lexical-only serving.
type Client struct {
	baseURL      string
	model        string
	embeddingDim int
	httpClient   *http.Client
	executor     *resilience.Executor
}

func New(baseURL, model string, embeddingDim int, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		model:        model,
		embeddingDim: embeddingDim,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		executor:     executor,
	}
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": c.model,
		"input": texts,
	}
	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}

	call := func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/embed", request, &response, "embed")
	}
	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama.embed", call, classifyEmbedError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapUnavailable("embed", err)
	}

	if len(response.Embeddings) != len(texts) {
		return nil, domain.WrapError(domain.ErrEmbeddingUnavailable, "embed",
			fmt.Errorf("got %d embeddings for %d inputs", len(response.Embeddings), len(texts)))
	}
	for _, vec := range response.Embeddings {
		if c.embeddingDim > 0 && len(vec) != c.embeddingDim {
			return nil, domain.WrapError(domain.ErrDimensionMismatch, "embed",
				fmt.Errorf("model returned dimension %d, expected %d", len(vec), c.embeddingDim))
		}
	}
	return response.Embeddings, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, domain.WrapError(domain.ErrEmbeddingUnavailable, "embed query",
			fmt.Errorf("empty embedding result"))
	}
	return vectors[0], nil
}
