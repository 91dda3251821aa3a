/*
errors.go - Centralized error types for the inquiry desk

PURPOSE:
  All error types in one place for consistency and discoverability.
  Storage and transport packages wrap these with additional context.

ERROR CATEGORIES:
  1. Authentication errors - wrong id/password, recoverable, no state change
  2. Validation errors     - import schema, unknown status, bad period
  3. Store errors          - missing period store (never surfaced to readers)

USAGE:
  if errors.Is(err, inquiry.ErrSchemaValidation) {
      var sv *inquiry.SchemaValidationError
      errors.As(err, &sv)
      // sv.Missing lists the absent column labels
  }

SEE ALSO:
  - import.go: Produces SchemaValidationError
  - api/handlers.go: Maps these errors to HTTP status codes
*/
package inquiry

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAuthenticationFailed is returned on unknown id or password mismatch.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrSchemaValidation is returned when an import lacks required columns.
	ErrSchemaValidation = errors.New("schema validation failed")

	// ErrStoreNotFound marks a period with no backing store. Readers get an
	// empty result instead; deletes swallow it.
	ErrStoreNotFound = errors.New("period store not found")

	// ErrUnsupportedPeriod is returned for a year outside the configured
	// domain or a month outside 1-12.
	ErrUnsupportedPeriod = errors.New("unsupported period")

	// ErrInvalidPassword is returned when a new password is blank.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrForbidden is returned when the role does not allow the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrUnknownStatus is returned when a status value cannot be parsed.
	ErrUnknownStatus = errors.New("unknown status")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// SchemaValidationError lists the required columns an import was missing.
type SchemaValidationError struct {
	Missing []string
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

func (e *SchemaValidationError) Unwrap() error {
	return ErrSchemaValidation
}

// UnknownStatusError carries the rejected status text.
type UnknownStatusError struct {
	Value string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("unknown status %q", e.Value)
}

func (e *UnknownStatusError) Unwrap() error {
	return ErrUnknownStatus
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrSchemaValidation) ||
		errors.Is(err, ErrUnsupportedPeriod) ||
		errors.Is(err, ErrInvalidPassword) ||
		errors.Is(err, ErrUnknownStatus)
}

// IsAuthError returns true for authentication and authorization failures.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthenticationFailed) || errors.Is(err, ErrForbidden)
}
