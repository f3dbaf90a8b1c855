package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jonwraymond/llmops/config"
	"github.com/jonwraymond/llmops/observe"
	"github.com/jonwraymond/llmops/pool"
	"github.com/jonwraymond/llmops/provider"
)

// Service exposes invocation operations over one pooled client. It owns
// exactly one claim on the client between creation and Release.
type Service struct {
	lease    *pool.Lease
	client   provider.Client
	meta     observe.ModelMeta
	obs      observe.Observer
	metrics  observe.Metrics
	released atomic.Bool
}

// Create acquires a client for cfg from the process-wide default pool.
// The caller must call Release exactly once; prefer With for scoped use.
func Create(ctx context.Context, cfg config.Config) (*Service, error) {
	return CreateWith(ctx, pool.Default(), cfg)
}

// CreateWith acquires a client for cfg from an explicit pool.
func CreateWith(ctx context.Context, p *pool.Pool, cfg config.Config) (*Service, error) {
	lease, err := p.Acquire(ctx, cfg)
	if err != nil {
		return nil, err
	}
	client := lease.Client()
	return &Service{
		lease:   lease,
		client:  client,
		meta:    client.Meta(),
		obs:     observe.Nop(),
		metrics: observe.NopMetrics(),
	}, nil
}

// Instrument attaches an observer for invocation tracing and metrics.
// Returns the service for chaining. Call before concurrent use.
func (s *Service) Instrument(obs observe.Observer) *Service {
	if obs == nil {
		return s
	}
	s.obs = obs
	if m, err := observe.NewMetrics(obs.Meter()); err == nil {
		s.metrics = m
	}
	return s
}

// Invoke sends one prompt and returns the generated text.
func (s *Service) Invoke(ctx context.Context, prompt string) (string, error) {
	if s.released.Load() {
		return "", ErrReleased
	}

	ctx, span := observe.StartSpan(ctx, s.obs.Tracer(), s.meta, "invoke")
	start := time.Now()
	text, err := s.client.Invoke(ctx, prompt)
	s.metrics.RecordInvocation(ctx, s.meta, "invoke", time.Since(start), err)
	observe.EndSpan(span, err)
	return text, err
}

// BatchInvoke sends multiple prompts and returns responses in prompt
// order.
func (s *Service) BatchInvoke(ctx context.Context, prompts []string) ([]string, error) {
	if s.released.Load() {
		return nil, ErrReleased
	}

	ctx, span := observe.StartSpan(ctx, s.obs.Tracer(), s.meta, "batch_invoke")
	start := time.Now()
	texts, err := s.client.BatchInvoke(ctx, prompts)
	s.metrics.RecordInvocation(ctx, s.meta, "batch_invoke", time.Since(start), err)
	observe.EndSpan(span, err)
	return texts, err
}

// Stream sends one prompt and returns the chunk sequence. The span and
// metrics cover stream setup; chunk consumption belongs to the caller.
func (s *Service) Stream(ctx context.Context, prompt string) (provider.Stream, error) {
	if s.released.Load() {
		return nil, ErrReleased
	}

	ctx, span := observe.StartSpan(ctx, s.obs.Tracer(), s.meta, "stream")
	start := time.Now()
	stream, err := s.client.Stream(ctx, prompt)
	s.metrics.RecordInvocation(ctx, s.meta, "stream", time.Since(start), err)
	observe.EndSpan(span, err)
	return stream, err
}

// Meta returns the telemetry identity of the underlying client.
func (s *Service) Meta() observe.ModelMeta {
	return s.meta
}

// Release returns the client claim to the pool. Must be called exactly
// once; a second call reports the pool's over-release error.
func (s *Service) Release() error {
	s.released.Store(true)
	return s.lease.Release()
}
