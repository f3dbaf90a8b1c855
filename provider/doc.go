// Package provider defines the client handle for external generative-model
// services and the factory that constructs handles from configuration.
//
// A Client is expensive to construct and is shared by reference between
// all concurrent holders of its configuration fingerprint; implementations
// must therefore tolerate concurrent invocations. Construction is the
// factory's job, lifetime is the pool's.
//
// The OpenAI implementation speaks the chat-completions wire protocol and
// works against any OpenAI-compatible endpoint via the base_url option.
package provider
