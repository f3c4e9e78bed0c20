// Package errs defines the error kinds shared by the simulation core.
//
// Every error returned by the core wraps exactly one of the sentinels below
// together with the identifiers that caused it, so callers can test the kind
// with errors.Is and still report the original names.
package errs

import "errors"

var (
	// ErrNotFound is returned when a simulation, list, type or pip name (or id)
	// does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrTypeMismatch is returned when an operation needs a pip that the
	// particle's type does not carry.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrDuplicateName is returned when registering a name that is taken.
	ErrDuplicateName = errors.New("duplicate name")
	// ErrLookup is returned when a stream references a type id that has no
	// entry in the conversion table.
	ErrLookup = errors.New("lookup error")
	// ErrInvalidArgument is returned for malformed numeric or enum input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrStale is returned when a handle refers to a deleted particle.
	ErrStale = errors.New("stale handle")
)
