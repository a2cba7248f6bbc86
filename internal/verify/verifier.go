// Package verify judges a user's free-text answer against context
// retrieved from the vector index.
package verify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"studyrag/internal/index"
	"studyrag/internal/models"
)

// ErrNoRelevantContext means retrieval produced nothing to ground the
// judgment on. The completion service is never called in that case.
var ErrNoRelevantContext = errors.New("verify: no relevant context")

// DefaultTopK is how many nearest entries back one verification.
const DefaultTopK = 5

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Completer is the single-prompt completion call the verifier drives.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Verifier retrieves context for a question and asks the model to
// judge the answer.
type Verifier struct {
	Embedder Embedder
	Index    index.Index
	LLM      Completer
	TopK     int
}

// NewVerifier creates an answer verifier.
func NewVerifier(embedder Embedder, idx index.Index, llm Completer, topK int) *Verifier {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Verifier{Embedder: embedder, Index: idx, LLM: llm, TopK: topK}
}

// retrieveContext embeds the question and joins the nearest matches'
// text in match order. Embedding and query failures collapse into an
// empty context; the cause is logged here since the caller-visible
// contract carries only "no relevant context".
func (v *Verifier) retrieveContext(ctx context.Context, q string) string {
	vector, err := v.Embedder.Embed(ctx, q)
	if err != nil {
		log.Printf("Error embedding verification query: %v", err)
		return ""
	}

	matches, err := v.Index.Query(ctx, vector, v.TopK)
	if err != nil {
		log.Printf("Error querying index for verification context: %v", err)
		return ""
	}

	parts := make([]string, 0, len(matches))
	for _, match := range matches {
		if match.Entry.Text != "" {
			parts = append(parts, match.Entry.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func (v *Verifier) buildPrompt(contextText, q, answer string) string {
	return fmt.Sprintf(
		"Using the following context:\n%s\n\n"+
			"Is the answer (code or text) '%s' correct for the question '%s'? "+
			"If the answer is incorrect or needs improvement, please provide suggestions on how to improve it.",
		contextText, answer, q)
}

// Verify judges the answer to a question against retrieved context and
// returns the model's explanatory verdict. No pass/fail boolean is
// extracted.
func (v *Verifier) Verify(ctx context.Context, q, answer string) (*models.VerificationResult, error) {
	contextText := v.retrieveContext(ctx, q)
	if contextText == "" {
		return nil, ErrNoRelevantContext
	}

	narrative, err := v.LLM.Complete(ctx, v.buildPrompt(contextText, q, answer))
	if err != nil {
		return nil, fmt.Errorf("failed to verify answer: %w", err)
	}

	return &models.VerificationResult{Narrative: narrative}, nil
}
