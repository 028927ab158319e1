package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a natural key is already taken.
	ErrDuplicate = errors.New("persistence: duplicate key")
	// ErrConflict is returned when a write would leave two confirmed bookings on one slot.
	ErrConflict = errors.New("persistence: slot already confirmed")
	// ErrConstraintViolation is returned when a record breaks a storage constraint.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
)
