package service

import "errors"

var (
	// ErrCalculationUnavailable means no prayer time could be produced for a date.
	ErrCalculationUnavailable = errors.New("prayer times unavailable")
	// ErrInvalidRange is returned when a range ends before it starts.
	ErrInvalidRange = errors.New("invalid date range")
	// ErrInvalidMonths is returned for a negative preload window.
	ErrInvalidMonths = errors.New("months ahead must not be negative")
)
