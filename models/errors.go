package models

import (
	"errors"
	"fmt"
)

// ErrNoText is wrapped by ExtractionError when a document yields no usable tokens.
var ErrNoText = errors.New("no recoverable text")

// ExtractionError reports that a document could not produce any text tokens.
type ExtractionError struct {
	Document string
	Err      error
}

func (e *ExtractionError) Error() string {
	if e.Document == "" {
		return fmt.Sprintf("extraction failed: %v", e.Err)
	}
	return fmt.Sprintf("extraction failed for %s: %v", e.Document, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// TooLargeError reports that the combined text exceeds the absolute limit.
type TooLargeError struct {
	Length int
	Limit  int
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("documents too large to compare: %d characters combined (limit %d); compare a smaller page range", e.Length, e.Limit)
}

// WorkerFault reports that the diff worker failed without a structured error.
type WorkerFault struct {
	Message string
}

func (e *WorkerFault) Error() string {
	if e.Message == "" {
		return "worker fault"
	}
	return "worker fault: " + e.Message
}

// ErrorKind returns the wire name of err's class: "extraction", "too_large" or
// "worker_fault". Errors outside the taxonomy are reported as worker faults.
func ErrorKind(err error) string {
	var ee *ExtractionError
	var te *TooLargeError
	switch {
	case errors.As(err, &ee):
		return "extraction"
	case errors.As(err, &te):
		return "too_large"
	default:
		return "worker_fault"
	}
}

// Retryable reports whether resubmitting the same inputs may succeed. Extraction and
// size failures are deterministic for a given input.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return ErrorKind(err) == "worker_fault"
}
