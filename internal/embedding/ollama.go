package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
)

// ErrEmptyInput is returned when the text to embed is empty after
// trimming. The remote service is not called in that case.
var ErrEmptyInput = errors.New("embedding: empty input text")

// DefaultTimeout bounds a single embedding request.
const DefaultTimeout = 60 * time.Second

// OllamaEmbedder generates embeddings using the Ollama API.
type OllamaEmbedder struct {
	Client  *api.Client
	Model   string
	Timeout time.Duration
}

// NewOllamaEmbedder creates a new Ollama embedder. An empty host falls
// back to the OLLAMA_HOST environment variable.
func NewOllamaEmbedder(host string, model string, timeout time.Duration) (*OllamaEmbedder, error) {
	hostURL := envconfig.Host()
	if host != "" {
		u, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
		}
		hostURL = u
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &OllamaEmbedder{
		Client:  api.NewClient(hostURL, http.DefaultClient),
		Model:   model,
		Timeout: timeout,
	}, nil
}

// Embed generates an embedding for a text. Remote failures are
// terminal for this call; the caller decides whether to skip the unit
// of work.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	req := api.EmbeddingRequest{
		Model:   e.Model,
		Prompt:  text,
		Options: map[string]any{},
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	resp, err := e.Client.Embeddings(ctxWithTimeout, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("embedding service returned an empty vector for model %s", e.Model)
	}

	vector := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vector[i] = float32(v)
	}
	return vector, nil
}
