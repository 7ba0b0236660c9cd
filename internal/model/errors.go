package model

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// ValidationError reports malformed input: bad geometry on ingest or
// out-of-range attribute values at scoring time. Parcels failing validation
// are skipped; the rest of an evaluation proceeds.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Invalid constructs a ValidationError for the given field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return eris.As(err, &ve)
}
