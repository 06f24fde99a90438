package errors

import "errors"

var (
	ErrNotFound = errors.New("slot not found")

	ErrInvalidID = errors.New("invalid slot ID format")

	// ErrDuplicate is returned when (doctor_id, date, start_time) already exists.
	ErrDuplicate = errors.New("slot already exists")

	// ErrNotAvailable is returned by a conditional claim that found the slot taken.
	ErrNotAvailable = errors.New("slot is not available")

	ErrOverlap = errors.New("slot overlaps an existing slot")

	// ErrReferenced is returned when an appointment of any status points at the slot.
	ErrReferenced = errors.New("slot is referenced by an appointment")

	ErrInvalidSchedule = errors.New("schedule cannot be expanded")
)
