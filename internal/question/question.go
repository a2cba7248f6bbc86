// Package question turns document text into a quality-filtered list
// of study questions.
package question

import (
	"context"
	"unicode/utf8"
)

// Completer is the single-prompt completion call the question services
// drive. Each call is stateless.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// truncate caps s at limit bytes without splitting a rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
