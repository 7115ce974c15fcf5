// Package mode picks the diff granularity for a pair of documents from their combined
// text length.
package mode

import (
	"fmt"
	"unicode/utf8"

	"github.com/jupark12/pdf-diff/models"
)

// Size thresholds, in characters of combined text.
const (
	WordThreshold      = 200_000
	ParagraphThreshold = 900_000
	AbsoluteLimit      = 2_600_000
)

// Advisory notes attached to degraded comparisons.
const (
	ParagraphAdvisory = "Large documents: differences are compared line by line; text without line breaks shows as a single changed block."
	SentenceAdvisory  = "Very large documents: differences are compared sentence by sentence and highlights may be coarse."
)

// Select returns the granularity for a comparison of n combined characters and the
// advisory note to show with it, if any. It fails with a *models.TooLargeError when n
// exceeds AbsoluteLimit.
func Select(n int) (models.Mode, string, error) {
	switch {
	case n > AbsoluteLimit:
		return 0, "", &models.TooLargeError{Length: n, Limit: AbsoluteLimit}
	case n > ParagraphThreshold:
		return models.ModeSentence, SentenceAdvisory, nil
	case n > WordThreshold:
		return models.ModeParagraph, ParagraphAdvisory, nil
	default:
		return models.ModeWord, "", nil
	}
}

// CombinedLength is the number of characters in a and b together.
func CombinedLength(a, b string) int {
	return utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
}

// Describe formats the selection for logs.
func Describe(n int) string {
	m, _, err := Select(n)
	if err != nil {
		return fmt.Sprintf("%d chars: rejected", n)
	}
	return fmt.Sprintf("%d chars: %s", n, m)
}
