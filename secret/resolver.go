package secret

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// RefPrefix marks a configuration value as a secret reference.
const RefPrefix = "secretref:"

// Resolver resolves credential values through registered providers.
// The zero value is not usable; construct with NewResolver.
type Resolver struct {
	providers map[string]Provider
}

// NewResolver creates a resolver with the given providers. EnvProvider
// is always registered.
func NewResolver(providers ...Provider) *Resolver {
	r := &Resolver{providers: make(map[string]Provider)}
	r.providers["env"] = EnvProvider{}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
	return r
}

// ResolveValue resolves a credential configuration value.
//
// Values beginning with "secretref:" are dispatched to the named
// provider. All other values undergo strict environment expansion.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	if provider, ref, ok := ParseRef(value); ok {
		p, registered := r.providers[provider]
		if !registered {
			return "", fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
		}
		return p.Resolve(ctx, ref)
	}
	if strings.HasPrefix(value, RefPrefix) {
		return "", fmt.Errorf("%w: %q", ErrMalformedRef, value)
	}
	return ExpandEnvStrict(value)
}

// ParseRef parses a value of the form secretref:<provider>:<ref>.
func ParseRef(value string) (provider, ref string, ok bool) {
	if !strings.HasPrefix(value, RefPrefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(value, RefPrefix)
	provider, ref, found := strings.Cut(rest, ":")
	if !found || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnvStrict expands ${VAR} references in s. Unlike os.ExpandEnv,
// a referenced variable missing from the environment is an error rather
// than an empty expansion. "$$" emits a literal "$".
func ExpandEnvStrict(s string) (string, error) {
	const dollarSentinel = "\x00llmops_dollar\x00"
	s = strings.ReplaceAll(s, "$$", dollarSentinel)

	missing := map[string]struct{}{}
	for _, match := range envVarPattern.FindAllStringSubmatch(s, -1) {
		name := match[1]
		if _, ok := os.LookupEnv(name); !ok {
			missing[name] = struct{}{}
		}
	}
	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for name := range missing {
			names = append(names, name)
		}
		sort.Strings(names)
		return "", fmt.Errorf("%w: %s", ErrEnvNotSet, strings.Join(names, ", "))
	}

	s = envVarPattern.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(ref[2 : len(ref)-1])
	})
	return strings.ReplaceAll(s, dollarSentinel, "$"), nil
}
