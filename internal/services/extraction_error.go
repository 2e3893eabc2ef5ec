package services

import (
	"fmt"
	"strings"
)

type ExtractionErrorKind string

const (
	ExtractUnsupportedType     ExtractionErrorKind = "unsupported_type"
	ExtractTooLarge            ExtractionErrorKind = "too_large"
	ExtractInvalidDocument     ExtractionErrorKind = "invalid_document"
	ExtractParseError          ExtractionErrorKind = "parse_error"
	ExtractReadError           ExtractionErrorKind = "read_error"
	ExtractManualPasteRequired ExtractionErrorKind = "manual_paste_required"
)

// ExtractionError carries a short user-facing message and an internal
// diagnostic detail. The detail may include raw library error text and is
// never shown to the end user.
type ExtractionError struct {
	Kind    ExtractionErrorKind
	Message string
	Detail  string
}

func (e *ExtractionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Recoverable reports whether retrying the same file could ever succeed.
// ManualPasteRequired is deterministic: the same operation never succeeds.
func (e *ExtractionError) Recoverable() bool {
	return e.Kind != ExtractManualPasteRequired && e.Kind != ExtractUnsupportedType
}

func newExtractionError(kind ExtractionErrorKind, message, detail string) *ExtractionError {
	return &ExtractionError{Kind: kind, Message: message, Detail: sanitizeDetail(detail)}
}

const maxDetailLen = 300

// sanitizeDetail flattens and caps raw library/provider error text before it
// enters logs or the error value.
func sanitizeDetail(detail string) string {
	detail = strings.Join(strings.Fields(detail), " ")
	if len(detail) > maxDetailLen {
		detail = detail[:maxDetailLen] + "..."
	}
	return detail
}
