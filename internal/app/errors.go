package app

import "errors"

// ErrUnknownScope and related errors describe runtime failures that indicate a programming bug.
var (
	ErrUnknownScope       = errors.New("unknown report scope")
	ErrStoreNotConfigured = errors.New("event store is not configured")
)
