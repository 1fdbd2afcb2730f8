package store

import "errors"

var (
	// ErrSlotConflict means another live appointment already occupies the
	// requested (doctor, date, time) slot.
	ErrSlotConflict = errors.New("slot already booked")

	ErrNotFound = errors.New("not found")
)
