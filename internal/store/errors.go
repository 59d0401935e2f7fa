package store

import "errors"

var (
	// ErrNotFound is returned when a keyed lookup matches nothing.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a create collides with an
	// existing (or retired) id.
	ErrConflict = errors.New("already exists")
)
