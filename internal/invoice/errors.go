package invoice

import (
	"errors"
	"fmt"

	"github.com/ginjaninja78/rechnungstool/internal/validation"
)

// Invoice creation errors
var (
	// ErrMissingInput is returned when a required field is absent or malformed:
	// an unknown customer, an unparseable date, no or invalid positions, an
	// unreadable company profile.
	ErrMissingInput = errors.New("missing or malformed input")

	// ErrIO is returned when a file cannot be read or written. A number that
	// was already allocated stays consumed.
	ErrIO = errors.New("file operation failed")
)

// CreationError wraps a failure of one invoice creation step.
type CreationError struct {
	// Op is the step that failed (e.g. "allocate number", "render pdf").
	Op string

	// Number is the invoice number consumed by the attempt, empty when the
	// failure happened before numbering.
	Number string

	// Err is the underlying error.
	Err error

	// Findings holds the fatal validation findings when a validation step
	// failed.
	Findings []*validation.ValidationError
}

// Error implements the error interface.
func (e *CreationError) Error() string {
	if e.Number != "" {
		return fmt.Sprintf("invoice %s: %s failed: %v", e.Number, e.Op, e.Err)
	}
	return fmt.Sprintf("invoice: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *CreationError) Unwrap() error {
	return e.Err
}

func inputError(op string, err error) *CreationError {
	return &CreationError{Op: op, Err: fmt.Errorf("%w: %w", ErrMissingInput, err)}
}

func ioError(op, number string, err error) *CreationError {
	return &CreationError{Op: op, Number: number, Err: fmt.Errorf("%w: %w", ErrIO, err)}
}
