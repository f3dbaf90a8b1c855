// Package secret resolves provider credentials from configuration values.
//
// Credential options such as api_key may be given three ways:
//   - A literal value, returned as-is.
//   - An environment expansion like ${OPENAI_API_KEY}, expanded strictly:
//     a referenced variable that is missing from the environment is an
//     error, never an empty string.
//   - A secret reference of the form secretref:<provider>:<ref>, resolved
//     through a registered Provider. The built-in "env" provider resolves
//     refs as environment variable names.
package secret
