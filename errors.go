package detention

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("detention: not found")
	ErrAlreadyExists = errors.New("detention: already exists")
	ErrInvalidInput  = errors.New("detention: invalid input")

	// Entity errors
	ErrClassNotFound   = errors.New("detention: class not found")
	ErrStudentNotFound = errors.New("detention: student not found")
	ErrEntryNotFound   = errors.New("detention: entry not found")
	ErrNoEntries       = errors.New("detention: student has no entries")

	// Store errors
	ErrStoreClosed     = errors.New("detention: store is closed")
	ErrUnknownDriver   = errors.New("detention: unknown store driver")
	ErrMigrationFailed = errors.New("detention: migration failed")
)

// ValidationError represents a rejected input with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("detention: validation failed for %s: %s", e.Field, e.Message)
}

// StoreError wraps a backend failure that is not one of the sentinel
// errors above.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("detention: store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "detention: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("detention: %d errors occurred", len(e.Errors))
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ErrOrNil returns e when it holds errors and nil otherwise.
func (e MultiError) ErrOrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrClassNotFound) ||
		errors.Is(err, ErrStudentNotFound) ||
		errors.Is(err, ErrEntryNotFound)
}

// IsValidation returns true if the error is a ValidationError or
// ErrInvalidInput.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrInvalidInput)
}

// IsStoreError returns true if the error came from a failing backend.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se) || errors.Is(err, ErrStoreClosed)
}
