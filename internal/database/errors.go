// internal/database/errors.go
package database

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Update and Delete when no record matches.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is the parent of every uniqueness violation.
	ErrConflict          = errors.New("conflict")
	ErrDuplicateID       = fmt.Errorf("%w: duplicate id", ErrConflict)
	ErrDuplicateIP       = fmt.Errorf("%w: a host with this IP address already exists", ErrConflict)
	ErrPortInUse         = fmt.Errorf("%w: port is already in use on this host", ErrConflict)
	ErrDuplicateUsername = fmt.Errorf("%w: username already taken", ErrConflict)

	// ErrInvalidField is returned when a record carries an out-of-domain value.
	ErrInvalidField = errors.New("invalid field value")

	// ErrInvalidSnapshot is returned by Restore for data that does not parse.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)
