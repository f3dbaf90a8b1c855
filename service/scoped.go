package service

import (
	"context"

	"github.com/jonwraymond/llmops/config"
	"github.com/jonwraymond/llmops/pool"
)

// With acquires a service for cfg from the default pool, runs fn, and
// releases on every exit path, including panics. The first error of
// fn and release wins.
func With(ctx context.Context, cfg config.Config, fn func(context.Context, *Service) error) error {
	return WithPool(ctx, pool.Default(), cfg, fn)
}

// WithPool is With against an explicit pool.
func WithPool(ctx context.Context, p *pool.Pool, cfg config.Config, fn func(context.Context, *Service) error) (err error) {
	svc, err := CreateWith(ctx, p, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if relErr := svc.Release(); err == nil {
			err = relErr
		}
	}()

	return fn(ctx, svc)
}
