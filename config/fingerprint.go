package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Fingerprint returns the canonical identity digest of the configuration:
// SHA-256 over the sorted-key JSON encoding of the set fields, as a hex
// string. Configurations with identical set fields produce identical
// fingerprints regardless of the order options were supplied in.
func (c Config) Fingerprint() (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	canonical, err := canonicalJSON(c.setFields())
	if err != nil {
		return "", fmt.Errorf("config: canonicalize: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// setFields returns the explicitly set options under their wire names.
// Unset fields are omitted so that an absent option and an explicitly
// defaulted option fingerprint differently.
func (c Config) setFields() map[string]any {
	fields := make(map[string]any, 5)
	if c.ModelName != "" {
		fields[OptionModelName] = c.ModelName
	}
	if c.Temperature != nil {
		fields[OptionTemperature] = *c.Temperature
	}
	if c.MaxTokens != nil {
		fields[OptionMaxTokens] = *c.MaxTokens
	}
	if c.APIKey != "" {
		fields[OptionAPIKey] = c.APIKey
	}
	if c.BaseURL != "" {
		fields[OptionBaseURL] = c.BaseURL
	}
	return fields
}

// canonicalJSON encodes a flat map as a JSON object with keys in sorted
// order. encoding/json does sort map keys, but building the object by
// hand keeps the canonical form independent of encoder behavior.
func canonicalJSON(fields map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []byte("{")
	for i, k := range keys {
		if i > 0 {
			out = append(out, ',')
		}

		keyJSON, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		out = append(out, keyJSON...)
		out = append(out, ':')

		valJSON, err := json.Marshal(fields[k])
		if err != nil {
			return nil, err
		}
		out = append(out, valJSON...)
	}
	out = append(out, '}')

	return out, nil
}
