package booking

import (
	"errors"
	"fmt"

	"github.com/lumenspa/booking/internal/model"
)

// ErrConflict means a slot was taken between the availability read and the
// commit. Callers should re-offer availability rather than retry blindly.
var ErrConflict = errors.New("slot already booked")

func isNotFound(err error) bool {
	return errors.Is(err, model.ErrNotFound)
}

// ValidationError is a local, recoverable input problem. It is raised
// before any write is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StoreError wraps an infrastructure failure from the catalog or
// reservation store with enough context to decide retry vs abort.
type StoreError struct {
	Op     string
	Entity string
	Err    error
}

func (e *StoreError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func IsStoreUnavailable(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

func storeErr(op, entity string, err error) error {
	return &StoreError{Op: op, Entity: entity, Err: err}
}
