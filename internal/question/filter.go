package question

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"studyrag/internal/models"
)

// DefaultContextChars is how much document text accompanies each
// rubric evaluation. Bounding it keeps prompt cost flat at the expense
// of evaluator accuracy on long documents.
const DefaultContextChars = 500

// rubric is the fixed set of criteria every question is scored
// against.
var rubric = []struct {
	Criterion   string
	Description string
}{
	{"Clarity", "Is the question clearly written and easy to understand?"},
	{"Relevance", "Does the question relate directly to the content of the uploaded material?"},
	{"Complexity", "Is the question appropriately complex for the intended audience?"},
	{"Correctness", "Does the question accurately reflect the content, without misleading or ambiguous wording?"},
	{"Format", "Is the question formatted correctly (multiple-choice, open-ended, code-related)?"},
}

var (
	ratingLineRe = regexp.MustCompile(`(?im)^\s*rating:\s*(acceptable|needs improvement|rejected)\b`)
	// Word-boundary match so "Unacceptable" never reads as acceptance.
	acceptableRe = regexp.MustCompile(`\bAcceptable\b`)
)

// QualityFilter scores candidate questions against the rubric and
// keeps the acceptable ones.
type QualityFilter struct {
	LLM          Completer
	ContextChars int
}

// NewQualityFilter creates a quality filter.
func NewQualityFilter(llm Completer, contextChars int) *QualityFilter {
	if contextChars <= 0 {
		contextChars = DefaultContextChars
	}
	return &QualityFilter{LLM: llm, ContextChars: contextChars}
}

func (f *QualityFilter) buildPrompt(q, documentText string) string {
	var promptBuilder strings.Builder
	promptBuilder.WriteString("You are a quality evaluator for questions based on the content of technical material. ")
	promptBuilder.WriteString("Evaluate the following question based on the rubric provided:\n\n")
	promptBuilder.WriteString("Rubric:\n")
	for _, item := range rubric {
		promptBuilder.WriteString(item.Criterion)
		promptBuilder.WriteString(": ")
		promptBuilder.WriteString(item.Description)
		promptBuilder.WriteString("\n")
	}
	promptBuilder.WriteString("\nQuestion: ")
	promptBuilder.WriteString(q)
	promptBuilder.WriteString("\n\nThe content of the uploaded material is as follows:\n")
	promptBuilder.WriteString(truncate(documentText, f.ContextChars))
	promptBuilder.WriteString("... (truncated for context)\n\n")
	promptBuilder.WriteString("Provide a detailed assessment of the question based on the rubric. ")
	promptBuilder.WriteString("Finish with a final line of exactly one of these forms:\n")
	promptBuilder.WriteString("Rating: Acceptable\nRating: Needs Improvement\nRating: Rejected\n")
	return promptBuilder.String()
}

// Evaluate scores one question against the rubric.
func (f *QualityFilter) Evaluate(ctx context.Context, q, documentText string) (models.RubricEvaluation, error) {
	response, err := f.LLM.Complete(ctx, f.buildPrompt(q, documentText))
	if err != nil {
		return models.RubricEvaluation{}, fmt.Errorf("failed to evaluate question: %w", err)
	}
	return models.RubricEvaluation{
		Narrative: response,
		Rating:    parseRating(response),
	}, nil
}

// parseRating reads the structured rating line, falling back to a
// word-boundary scan for free-text verdicts. Anything unrecognized is
// rejected. The prompt asks for the rating as the final line, so the
// last rating line in the response is the verdict.
func parseRating(evaluation string) models.Rating {
	if all := ratingLineRe.FindAllStringSubmatch(evaluation, -1); all != nil {
		m := all[len(all)-1]
		switch strings.ToLower(m[1]) {
		case "acceptable":
			return models.RatingAcceptable
		case "needs improvement":
			return models.RatingNeedsImprovement
		default:
			return models.RatingRejected
		}
	}
	if acceptableRe.MatchString(evaluation) {
		return models.RatingAcceptable
	}
	return models.RatingRejected
}

// Filter keeps the questions rated Acceptable, preserving input order.
// Each question is evaluated independently; a failed evaluation
// excludes that question without aborting the rest.
func (f *QualityFilter) Filter(ctx context.Context, questions []string, documentText string) []string {
	accepted := make([]string, 0, len(questions))
	for _, q := range questions {
		evaluation, err := f.Evaluate(ctx, q, documentText)
		if err != nil {
			log.Printf("Error evaluating question quality: %v", err)
			continue
		}
		if evaluation.Rating == models.RatingAcceptable {
			accepted = append(accepted, q)
		}
	}
	return accepted
}
