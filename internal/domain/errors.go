package domain

import "errors"

// ErrStoreUnavailable is returned when a store call times out or the backend
// is unreachable. It is the only error kind callers may retry: reads always,
// writes only after confirming non-application with a subsequent read.
var ErrStoreUnavailable = errors.New("persistent store unavailable")

var ErrUserNotFound = errors.New("user not found")
