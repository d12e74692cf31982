package application

import (
	"errors"
	"fmt"

	"github.com/example/jio-scheduler/internal/domain"
	"github.com/example/jio-scheduler/internal/persistence"
	"github.com/example/jio-scheduler/internal/timeslot"
)

var (
	// ErrUnauthorized is returned when the acting user lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrUnauthenticated is returned when no user identity is available.
	ErrUnauthenticated = errors.New("application: no signed-in user")
	// ErrDisplayNameRequired is returned when the user has not set a display name yet.
	ErrDisplayNameRequired = errors.New("application: display name required")
	// ErrAlreadyExists is returned when a unique value is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError = domain.ValidationError

func newValidationError(field, message string) *ValidationError {
	return domain.NewValidationError(field, message)
}

func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	default:
		return err
	}
}

func rangeValidationError(err error) error {
	var rangeErr *timeslot.InvalidRangeError
	if errors.As(err, &rangeErr) {
		return newValidationError("range", string(rangeErr.Reason))
	}
	return err
}
