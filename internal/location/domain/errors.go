package domain

import (
	"errors"
	"fmt"
)

// ErrValidation is wrapped by every request validation error.
var ErrValidation = errors.New("invalid request")

var (
	ErrInvalidPageIndex    = validationError("page must be a non-negative integer")
	ErrMissingDeviceID     = validationError("deviceId is required")
	ErrIncompleteTimeRange = validationError("startTimestamp and endTimestamp must be provided together")
	ErrInvalidTimeRange    = validationError("startTimestamp must be less than endTimestamp")
	ErrInvalidTimestamp    = validationError("startTimestamp and endTimestamp must be integers")
	ErrInvalidLimit        = validationError("limit must be a positive integer")
	ErrLimitTooLarge       = validationError("limit exceeds the maximum page size")
)

type valError struct {
	msg string
}

func validationError(msg string) error { return &valError{msg: msg} }

func (e *valError) Error() string { return e.msg }

func (e *valError) Unwrap() error { return ErrValidation }

// Phase tells which store call failed. It is diagnostic only.
type Phase string

const (
	PhaseSkip  Phase = "page-skip"
	PhaseFinal Phase = "final"
)

// StoreError reports a failed store call. Page is the page index being fetched when it failed.
type StoreError struct {
	Phase Phase
	Page  int
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store query failed (%s, page %d): %v", e.Phase, e.Page, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
