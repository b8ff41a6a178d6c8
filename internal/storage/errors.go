package storage

import "errors"

// Common storage errors
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)
