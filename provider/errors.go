package provider

import (
	"errors"
	"fmt"
)

// Sentinel errors for client construction and use.
var (
	// ErrMissingAPIKey indicates no credential in config or environment.
	ErrMissingAPIKey = errors.New("provider: api key missing from config and environment")

	// ErrBuild indicates provider-side construction failure. A failed
	// build caches nothing and is safe to retry.
	ErrBuild = errors.New("provider: client construction failed")

	// ErrEmptyResponse indicates a well-formed provider response that
	// carried no choices.
	ErrEmptyResponse = errors.New("provider: response contained no choices")

	// ErrStreamClosed indicates a Recv on a closed stream.
	ErrStreamClosed = errors.New("provider: stream is closed")
)

// APIError is a remote provider failure during invoke or stream.
// The manager never retries these; retry policy belongs to the caller.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider: api error (status %d): %s", e.StatusCode, e.Message)
}
