package storage

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when a write collides with an existing record.
var ErrConflict = errors.New("record already exists")
