package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals an unknown job or sync id. The API boundary maps
	// it to 404; it is never surfaced as a 500.
	ErrNotFound = errors.New("not found")

	// ErrNoData is returned when an export query yields zero rows and the
	// format cannot represent an empty result (CSV has no header to derive).
	ErrNoData = errors.New("no rows to export")

	// ErrNotCompleted guards the download path: only a completed job with a
	// local destination has a downloadable artifact.
	ErrNotCompleted = errors.New("export not completed")

	// ErrSyncBusy is returned when a sync execution is requested while a
	// previous run for the same id has not finished.
	ErrSyncBusy = errors.New("sync already running")
)

// ValidationError reports invalid export or sync input. It is surfaced
// synchronously, before any record is persisted, and maps to a 4xx response.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
