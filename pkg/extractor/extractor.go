// Package extractor turns a materialized document into plain text.
package extractor

import (
	"context"
	"fmt"
)

// Extractor extracts text content from a locally materialized document.
type Extractor interface {
	// Extract reads the document at locator and returns its text, one
	// block per page in document order, each followed by a newline.
	Extract(ctx context.Context, locator string) (string, error)
}

// ExtractionError means the input could not be opened or parsed as a
// document.
type ExtractionError struct {
	Locator string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Locator, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
