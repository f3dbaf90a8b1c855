package pool

import "errors"

// Sentinel errors for pool operations.
var (
	// ErrNilFactory indicates Options.Factory was not provided.
	ErrNilFactory = errors.New("pool: factory is required")

	// ErrClosed indicates an operation on a closed pool.
	ErrClosed = errors.New("pool: pool is closed")

	// ErrOverRelease indicates a release without a matching acquire.
	// The reference count is clamped at zero; the entry stays usable.
	ErrOverRelease = errors.New("pool: release without matching acquire")
)
