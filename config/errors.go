package config

import "errors"

// Sentinel errors for configuration validation and fingerprinting.
var (
	// ErrUnknownOption indicates an option name outside the supported set.
	ErrUnknownOption = errors.New("config: unknown option")

	// ErrInvalidValue indicates an option value of an unsupported type.
	ErrInvalidValue = errors.New("config: invalid option value")

	// ErrTemperatureRange indicates a temperature outside [0, 2].
	ErrTemperatureRange = errors.New("config: temperature must be between 0 and 2")

	// ErrNegativeMaxTokens indicates a negative max_tokens value.
	ErrNegativeMaxTokens = errors.New("config: max_tokens must not be negative")
)
