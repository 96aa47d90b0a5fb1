package service

import (
	"errors"
	"fmt"

	"moonscribe/internal/repository"
	"moonscribe/internal/storage"
	"moonscribe/internal/upstream"
)

var (
	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrExternalService is returned when an external service call fails.
	ErrExternalService = errors.New("external service error")
	// ErrConflict is returned when a write lost a race with another process and retries ran out.
	ErrConflict = errors.New("concurrent modification")
	// ErrStorageFull is returned when the store rejected a write for exceeding its quota.
	ErrStorageFull = errors.New("storage quota exceeded")
	// ErrUnavailable is returned when the store cannot be reached.
	ErrUnavailable = errors.New("storage unavailable")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// Is reports a ValidationError as ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// classify wraps err with msg and the service sentinel matching its cause, keeping the
// cause in the chain.
func classify(err error, msg string) error {
	if err == nil {
		return nil
	}

	var sentinel error
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		sentinel = ErrNotFound
	case errors.Is(err, repository.ErrMissingParent):
		sentinel = ErrInvalidInput
	case errors.Is(err, storage.ErrRevisionConflict):
		sentinel = ErrConflict
	case errors.Is(err, storage.ErrStorageQuotaExceeded):
		sentinel = ErrStorageFull
	case errors.Is(err, storage.ErrStorageUnavailable):
		sentinel = ErrUnavailable
	case errors.Is(err, upstream.ErrUnavailable):
		sentinel = ErrExternalService
	default:
		return WrapError(err, msg)
	}
	return fmt.Errorf("%s: %w: %w", msg, sentinel, err)
}

// external wraps a failed upstream call.
func external(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", msg, ErrExternalService, err)
}
