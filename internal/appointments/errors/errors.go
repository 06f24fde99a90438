package errors

import "errors"

var (
	ErrNotFound = errors.New("appointment not found")

	ErrInvalidID = errors.New("invalid appointment ID format")

	ErrSlotNotFound = errors.New("slot not found")

	ErrSlotUnavailable = errors.New("slot is not available")

	ErrAlreadyBooked = errors.New("slot already has an active appointment")

	ErrInvalidTransition = errors.New("invalid appointment status transition")

	// ErrLockHeld means another claim on the same slot is in flight.
	ErrLockHeld = errors.New("slot claim lock is held")
)
