package config

import (
	"fmt"
	"math"
)

// Option names accepted by FromMap.
const (
	OptionModelName   = "model_name"
	OptionTemperature = "temperature"
	OptionMaxTokens   = "max_tokens"
	OptionAPIKey      = "api_key"
	OptionBaseURL     = "base_url"
)

// Config is the closed set of options for constructing a provider client.
//
// Zero-valued string fields and nil numeric fields are "unset": they are
// omitted from the fingerprint and filled with provider defaults at build
// time. An explicitly set field always participates in the fingerprint,
// even when it equals the provider default.
type Config struct {
	// ModelName selects the model. Default applied by the factory:
	// "gpt-3.5-turbo".
	ModelName string

	// Temperature is the sampling temperature in [0, 2].
	// Default applied by the factory: 0.7.
	Temperature *float64

	// MaxTokens caps the generated token count. No default.
	MaxTokens *int

	// APIKey is the provider credential. When unset, the factory resolves
	// it from the process environment.
	APIKey string

	// BaseURL overrides the provider endpoint. When unset, the provider
	// default is used.
	BaseURL string
}

// FromMap builds a Config from an open option-name to primitive-value
// mapping. Unknown option names and non-primitive values are rejected;
// this is the boundary that closes the configuration set before
// fingerprinting.
func FromMap(options map[string]any) (Config, error) {
	var cfg Config
	for name, value := range options {
		switch name {
		case OptionModelName:
			s, ok := value.(string)
			if !ok {
				return Config{}, fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidValue, name, value)
			}
			cfg.ModelName = s

		case OptionTemperature:
			f, ok := toFloat(value)
			if !ok {
				return Config{}, fmt.Errorf("%w: %s must be a number, got %T", ErrInvalidValue, name, value)
			}
			cfg.Temperature = &f

		case OptionMaxTokens:
			n, ok := toInt(value)
			if !ok {
				return Config{}, fmt.Errorf("%w: %s must be an integer, got %T", ErrInvalidValue, name, value)
			}
			cfg.MaxTokens = &n

		case OptionAPIKey:
			s, ok := value.(string)
			if !ok {
				return Config{}, fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidValue, name, value)
			}
			cfg.APIKey = s

		case OptionBaseURL:
			s, ok := value.(string)
			if !ok {
				return Config{}, fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidValue, name, value)
			}
			cfg.BaseURL = s

		default:
			return Config{}, fmt.Errorf("%w: %q", ErrUnknownOption, name)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field ranges. It does not check presence: every field
// is optional and defaulted by the factory.
func (c Config) Validate() error {
	if c.Temperature != nil {
		t := *c.Temperature
		if math.IsNaN(t) || t < 0 || t > 2 {
			return fmt.Errorf("%w: got %v", ErrTemperatureRange, t)
		}
	}
	if c.MaxTokens != nil && *c.MaxTokens < 0 {
		return fmt.Errorf("%w: got %d", ErrNegativeMaxTokens, *c.MaxTokens)
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		// JSON decoding yields float64 for all numbers.
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}
