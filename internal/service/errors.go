package service

import (
	"errors"
	"fmt"

	"github.com/shinyyama/marketchat/internal/repository"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidState   = errors.New("invalid state")
	ErrTransientStore = errors.New("store unavailable")
	ErrPartialFailure = errors.New("partial failure")
)

// PartialFailureError reports a bulk operation where some of the per-record mutations
// failed. Mutations that succeeded stay applied.
type PartialFailureError struct {
	Op     string
	Failed int
	Total  int
	Err    error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s: %d of %d failed: %v", e.Op, e.Failed, e.Total, e.Err)
}

func (e *PartialFailureError) Unwrap() error {
	return e.Err
}

func (e *PartialFailureError) Is(target error) bool {
	return target == ErrPartialFailure
}

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// storeErr maps repository errors onto the service taxonomy.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrTransientStore):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrTransientStore, err)
	}
}

// Code is the stable machine-readable name clients receive for err.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPartialFailure):
		return "partial_failure"
	case errors.Is(err, ErrValidation):
		return "bad_request"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrTransientStore):
		return "unavailable"
	}
	return "internal_error"
}
