// Package config defines the closed set of options for constructing model
// provider clients and derives canonical fingerprints from them.
//
// A Config is the identity of a pooled client: two configs whose canonical
// (sorted-key) serializations match are considered the same client. The
// Fingerprint method produces that identity as a fixed-length hex digest.
package config
