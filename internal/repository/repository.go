package repository

import "errors"

// ErrNotFound is returned when a queried row does not exist. Services map it
// to their own coded errors.
var ErrNotFound = errors.New("record not found")
