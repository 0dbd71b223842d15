package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned when a conditional update matched zero
	// rows because the entity was not in the expected state. The
	// losing side of a concurrent write race observes this.
	ErrConflict = errors.New("entity not in expected state")
)
