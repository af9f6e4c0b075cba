package core

import "errors"

// Common errors.
var (
	ErrNotFound         = errors.New("note not found")
	ErrEmptyID          = errors.New("note ID cannot be empty")
	ErrMalformedRecord  = errors.New("malformed note record")
	ErrWatchUnsupported = errors.New("storage area does not support watching")
	ErrSyncUnsupported  = errors.New("storage area does not support synchronization")
	ErrReadOnly         = errors.New("storage area is in read-only mode")
)
