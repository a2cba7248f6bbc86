package question

import (
	"context"
	"log"
	"strings"
)

// DefaultMaxDocumentChars caps the document text sent in one
// generation prompt. Roughly 6k tokens.
const DefaultMaxDocumentChars = 24000

// Generator asks the model for candidate study questions over a
// document's full text.
type Generator struct {
	LLM              Completer
	MaxDocumentChars int
}

// NewGenerator creates a question generator.
func NewGenerator(llm Completer, maxDocumentChars int) *Generator {
	if maxDocumentChars <= 0 {
		maxDocumentChars = DefaultMaxDocumentChars
	}
	return &Generator{LLM: llm, MaxDocumentChars: maxDocumentChars}
}

func (g *Generator) buildPrompt(documentText string) string {
	var promptBuilder strings.Builder
	promptBuilder.WriteString("Generate thoughtful questions based on the following content. ")
	promptBuilder.WriteString("Ensure the questions are related to the main ideas, concepts, and details of the text provided. ")
	promptBuilder.WriteString("Avoid focusing on programming unless the text specifically mentions code or programming concepts. ")
	promptBuilder.WriteString("Write one question per line with no numbering.\n\n")
	promptBuilder.WriteString("Text:\n")
	promptBuilder.WriteString(documentText)
	return promptBuilder.String()
}

// Generate returns one candidate question per non-empty response line.
// A completion failure degrades to an empty list rather than an error
// so ingestion can finish without questions.
func (g *Generator) Generate(ctx context.Context, documentText string) []string {
	if len(documentText) > g.MaxDocumentChars {
		log.Printf("Truncating document text from %d to %d characters for question generation", len(documentText), g.MaxDocumentChars)
		documentText = truncate(documentText, g.MaxDocumentChars)
	}

	response, err := g.LLM.Complete(ctx, g.buildPrompt(documentText))
	if err != nil {
		log.Printf("Error generating questions: %v", err)
		return nil
	}

	var questions []string
	for _, line := range strings.Split(response, "\n") {
		if q := strings.TrimSpace(line); q != "" {
			questions = append(questions, q)
		}
	}
	return questions
}
