package store

import "errors"

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey indicates a natural key collision.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrTextSearchUnsupported indicates the store has no usable full-text search.
	ErrTextSearchUnsupported = errors.New("text search unsupported")

	// ErrStatsUnavailable indicates the store exposes no size metrics.
	ErrStatsUnavailable = errors.New("storage stats unavailable")

	// ErrInvalidDescriptor indicates a malformed connection descriptor.
	ErrInvalidDescriptor = errors.New("invalid store descriptor")

	// ErrInvalidQuery indicates invalid query parameters.
	ErrInvalidQuery = errors.New("invalid query parameters")
)
