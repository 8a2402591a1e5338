package services

import "errors"

// Sentinel errors shared by every store operation. Each public operation's
// failure mode stays distinguishable from its empty-success mode: a missing
// row is ErrNotFound, a request that cannot be executed at all (empty id set,
// empty purge interval, unresolvable field) is ErrInvalidInput or
// ErrUnknownField, and anything else is a storage-layer failure.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnknownField = errors.New("unknown field")
)
