package secret

import (
	"context"
	"fmt"
	"os"
)

// Provider resolves a secret by reference string.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not log or wrap secret values into errors.
type Provider interface {
	// Name is the provider identifier used in secretref values.
	Name() string

	// Resolve returns the secret for ref.
	Resolve(ctx context.Context, ref string) (string, error)
}

// EnvProvider resolves secret refs as environment variable names.
type EnvProvider struct{}

// Name returns "env".
func (EnvProvider) Name() string { return "env" }

// Resolve looks up ref in the process environment. A variable that is
// set but empty resolves to the empty string without error; a missing
// variable is an error.
func (EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	value, ok := os.LookupEnv(ref)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrEnvNotSet, ref)
	}
	return value, nil
}
