package secret

import "errors"

// Sentinel errors for credential resolution.
var (
	// ErrEnvNotSet indicates a referenced environment variable is missing.
	ErrEnvNotSet = errors.New("secret: environment variable not set")

	// ErrUnknownProvider indicates a secretref names an unregistered provider.
	ErrUnknownProvider = errors.New("secret: unknown provider")

	// ErrMalformedRef indicates a secretref value that does not parse.
	ErrMalformedRef = errors.New("secret: malformed secret reference")
)
