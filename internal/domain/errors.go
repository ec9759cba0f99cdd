package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrValidation marks every rejected command or query input.
var ErrValidation = errors.New("validation failed")

// ErrInvalidTimestamp and related errors describe rejected field values.
var (
	ErrInvalidTimestamp = fmt.Errorf("%w: invalid timestamp", ErrValidation)
	ErrInvalidDuration  = fmt.Errorf("%w: invalid duration", ErrValidation)
	ErrInvalidClient    = fmt.Errorf("%w: invalid client", ErrValidation)
	ErrInvalidProject   = fmt.Errorf("%w: invalid project", ErrValidation)
	ErrInvalidTask      = fmt.Errorf("%w: invalid task", ErrValidation)
	ErrInvalidDate      = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrInvalidDateRange = fmt.Errorf("%w: invalid date range", ErrValidation)
	ErrInvalidScope     = fmt.Errorf("%w: invalid scope", ErrValidation)
	ErrInvalidTimeZone  = fmt.Errorf("%w: invalid time zone", ErrValidation)
	ErrInvalidTitle     = fmt.Errorf("%w: invalid title", ErrValidation)
)

// ErrDuplicateEvent matches any DuplicateEventError through errors.Is.
var ErrDuplicateEvent = errors.New("duplicate event")

// DuplicateEventError reports that an event with the same timestamp is already recorded.
type DuplicateEventError struct {
	Timestamp time.Time
}

// Error returns the human-readable conflict message.
func (e *DuplicateEventError) Error() string {
	return fmt.Sprintf("Activity not logged because another one already exists with timestamp %s.", e.Timestamp.UTC().Format(time.RFC3339))
}

// Is reports whether target is ErrDuplicateEvent.
func (e *DuplicateEventError) Is(target error) bool {
	return target == ErrDuplicateEvent
}
