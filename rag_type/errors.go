package rag_type

import (
	"errors"
	"fmt"
)

// Error taxonomy shared across the pipeline. Handlers map these onto HTTP
// status classes; everything else just wraps and propagates.
var (
	ErrUnsupportedFormat   = errors.New("unsupported document format")
	ErrEmptyDocument       = errors.New("document contains no extractable text")
	ErrOversizedInput      = errors.New("document exceeds the maximum allowed size")
	ErrDegenerateVector    = errors.New("vector has zero magnitude")
	ErrProviderUnavailable = errors.New("model provider is not configured")
	ErrStorageFailure      = errors.New("storage operation failed")
)

// ParseError reports a corrupt or unreadable document, carrying the
// underlying cause from the format library.
type ParseError struct {
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("document parsing failed: %v", e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// NotImplementedError marks a declared format that is recognized but has
// no real extractor yet. Callers can detect it and branch instead of
// receiving a silent empty success.
type NotImplementedError struct {
	Format string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("text extraction for %s documents is not implemented", e.Format)
}
