package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
)

// DefaultTimeout bounds a single completion request.
const DefaultTimeout = 120 * time.Second

// OllamaLLM handles interactions with the Ollama generation API.
// Every call is a single independent message; there is no conversation
// memory across calls.
type OllamaLLM struct {
	Client  *api.Client
	Model   string
	Timeout time.Duration
}

// NewOllamaLLM creates a new Ollama LLM client. An empty host falls
// back to the OLLAMA_HOST environment variable.
func NewOllamaLLM(host string, model string, timeout time.Duration) (*OllamaLLM, error) {
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

	return &OllamaLLM{
		Client:  api.NewClient(hostURL, http.DefaultClient),
		Model:   model,
		Timeout: timeout,
	}, nil
}

// Complete generates a response for a single prompt. Remote failures
// are returned as-is; there is no retry.
func (o *OllamaLLM) Complete(ctx context.Context, prompt string) (string, error) {
	req := api.GenerateRequest{
		Model:  o.Model,
		Prompt: prompt,
		Options: map[string]interface{}{
			"temperature": 0.1,
		},
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	var responseBuilder strings.Builder

	err := o.Client.Generate(ctxWithTimeout, &req, func(resp api.GenerateResponse) error {
		_, err := responseBuilder.WriteString(resp.Response)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}

	return responseBuilder.String(), nil
}
