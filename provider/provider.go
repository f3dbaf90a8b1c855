package provider

import (
	"context"

	"github.com/jonwraymond/llmops/config"
	"github.com/jonwraymond/llmops/observe"
)

// Client is the handle to an external generative-model service.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use; one
//   Client instance is shared by every holder of its fingerprint.
// - Context: invocations must honor cancellation/deadlines.
// - Errors: remote failures surface as *APIError and are never retried
//   by the implementation.
type Client interface {
	// Invoke sends one prompt and returns the generated text.
	Invoke(ctx context.Context, prompt string) (string, error)

	// BatchInvoke sends multiple prompts and returns responses in
	// prompt order.
	BatchInvoke(ctx context.Context, prompts []string) ([]string, error)

	// Stream sends one prompt and returns a lazy, finite,
	// non-restartable sequence of text chunks.
	Stream(ctx context.Context, prompt string) (Stream, error)

	// Meta returns the telemetry identity of this client.
	Meta() observe.ModelMeta

	// Close releases resources held by the client. Called only by the
	// pool when the client leaves the cache.
	Close() error
}

// Stream is a finite sequence of response chunks.
//
// Contract:
// - Recv returns io.EOF after the final chunk; the stream cannot restart.
// - Single consumer: Recv must not be called concurrently.
// - Close is idempotent and releases the underlying connection.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Factory constructs a new Client from a configuration.
//
// Contract:
// - Stateless beyond construction logic; safe for concurrent use.
// - A returned error means nothing was constructed or cached.
type Factory interface {
	Build(ctx context.Context, cfg config.Config) (Client, error)
}
