package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when a record with the same ID is stored twice.
	ErrAlreadyExists = errors.New("already exists")

	// ErrDuplicateUsername is returned when a username is already taken.
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrInvalidCredentials is returned for an unknown username and for a
	// wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidInput is returned when a required field is missing or malformed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransition is returned when a consultation cannot move to
	// the requested status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrSlotConflict is returned when a schedule slot overlaps another slot.
	ErrSlotConflict = errors.New("slot overlaps an existing slot")

	// ErrSlotLimit is returned when a doctor already has the maximum number
	// of slots on a date.
	ErrSlotLimit = errors.New("too many slots on this date")

	// ErrDateHasSlots is returned when a date with slots is made unavailable.
	ErrDateHasSlots = errors.New("date still has slots")
)

// StorageError reports a failure of the underlying key-value store or of
// encoding the value kept under Key.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func invalidInput(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}
