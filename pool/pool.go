package pool

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonwraymond/llmops/config"
	"github.com/jonwraymond/llmops/observe"
	"github.com/jonwraymond/llmops/provider"
)

// Defaults for Options.
const (
	DefaultMaxSize = 100
	DefaultTTL     = time.Hour
)

// maxSweepRemovals caps evictions per sweep pass so the lock is never
// held for unbounded time under large pool sizes. The next pass picks up
// where this one left off.
const maxSweepRemovals = 256

// Options configures a Pool.
type Options struct {
	// Factory builds clients on cache misses. Required.
	Factory provider.Factory

	// MaxSize bounds the number of cached entries. Idle entries beyond
	// the bound are evicted oldest first; referenced entries are never
	// evicted, so the pool may temporarily exceed the bound while all
	// entries are in use. Default 100.
	MaxSize int

	// TTL is how long an idle entry survives before eviction.
	// Default 1 hour.
	TTL time.Duration

	// SweepInterval is the background sweep period. Default TTL/4.
	SweepInterval time.Duration

	// Observer supplies logging and metrics. Nil means no telemetry.
	Observer observe.Observer
}

// entry is one cached client keyed by configuration fingerprint.
// All fields after construction are guarded by the pool mutex.
type entry struct {
	fingerprint string
	client      provider.Client
	model       string

	refs       int
	createdAt  time.Time
	releasedAt time.Time // zero while referenced
	seq        uint64    // insertion order, tie-break for identical releasedAt
}

// idle reports whether the entry has no outstanding leases.
func (e *entry) idle() bool {
	return e.refs == 0
}

// Pool caches and manages the lifetime of provider clients.
type Pool struct {
	factory       provider.Factory
	maxSize       int
	ttl           time.Duration
	sweepInterval time.Duration
	logger        observe.Logger
	metrics       *poolMetrics

	mu      sync.Mutex
	entries map[string]*entry
	seq     uint64
	closed  bool

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// New creates a pool and starts its background sweeper.
func New(opts Options) (*Pool, error) {
	if opts.Factory == nil {
		return nil, ErrNilFactory
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = opts.TTL / 4
	}
	obs := opts.Observer
	if obs == nil {
		obs = observe.Nop()
	}

	p := &Pool{
		factory:       opts.Factory,
		maxSize:       opts.MaxSize,
		ttl:           opts.TTL,
		sweepInterval: opts.SweepInterval,
		logger:        obs.Logger(),
		entries:       make(map[string]*entry),
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
	}
	p.metrics = newPoolMetrics(obs.Meter(), p.Stats)

	go p.sweepLoop()

	return p, nil
}

// Lease is one claim on a cached client, valid from Acquire until
// Release. The client it exposes is shared with every other holder of
// the same fingerprint.
type Lease struct {
	pool     *Pool
	entry    *entry
	released bool // guarded by pool.mu
}

// Client returns the pooled client. The returned client must not be
// used after Release.
func (l *Lease) Client() provider.Client {
	return l.entry.client
}

// Fingerprint returns the configuration fingerprint this lease is
// claimed against.
func (l *Lease) Fingerprint() string {
	return l.entry.fingerprint
}

// Release returns the claim to the pool. Exactly one Release per Lease;
// further calls report ErrOverRelease.
func (l *Lease) Release() error {
	return l.pool.release(l)
}

// Acquire returns a lease on the client for cfg, building one if no
// entry exists for its fingerprint. Hits return immediately; only a
// miss pays construction latency, and construction happens outside the
// pool lock so slow builds do not block unrelated callers.
func (p *Pool) Acquire(ctx context.Context, cfg config.Config) (*Lease, error) {
	fp, err := cfg.Fingerprint()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	if e, ok := p.entries[fp]; ok {
		lease := p.claimLocked(e)
		p.mu.Unlock()
		p.metrics.recordAcquire(ctx, resultHit)
		return lease, nil
	}
	p.mu.Unlock()

	buildStart := time.Now()
	client, err := p.factory.Build(ctx, cfg)
	if err != nil {
		p.metrics.recordAcquire(ctx, resultError)
		return nil, err
	}
	p.metrics.recordBuild(ctx, time.Since(buildStart))

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		client.Close()
		return nil, ErrClosed
	}

	// Re-check: another goroutine may have inserted this fingerprint
	// while we were building. The winner's client is shared; ours is
	// torn down.
	if winner, ok := p.entries[fp]; ok {
		lease := p.claimLocked(winner)
		p.mu.Unlock()

		client.Close()
		p.metrics.recordAcquire(ctx, resultHit)
		p.logger.Debug(ctx, "discarded duplicate client after build race",
			observe.F("fingerprint", fp))
		return lease, nil
	}

	p.seq++
	e := &entry{
		fingerprint: fp,
		client:      client,
		model:       client.Meta().Model,
		refs:        1,
		createdAt:   time.Now(),
		seq:         p.seq,
	}
	p.entries[fp] = e
	lease := &Lease{pool: p, entry: e}
	victims := p.evictLocked(time.Now())
	p.mu.Unlock()

	p.teardown(ctx, victims)
	p.metrics.recordAcquire(ctx, resultMiss)
	p.logger.Debug(ctx, "built client",
		observe.F("fingerprint", fp),
		observe.F("model", e.model))
	return lease, nil
}

// claimLocked increments the entry's reference count and revives it if
// idle. Caller holds p.mu.
func (p *Pool) claimLocked(e *entry) *Lease {
	e.refs++
	e.releasedAt = time.Time{}
	return &Lease{pool: p, entry: e}
}

func (p *Pool) release(l *Lease) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if l.released {
		p.mu.Unlock()
		return ErrOverRelease
	}
	l.released = true

	e := l.entry
	if e.refs == 0 {
		// Counter is already at the floor; report, never go negative.
		p.mu.Unlock()
		return ErrOverRelease
	}
	e.refs--
	if e.refs == 0 {
		e.releasedAt = time.Now()
	}

	var victims []victim
	if len(p.entries) > p.maxSize {
		victims = p.evictLocked(time.Now())
	}
	p.mu.Unlock()

	p.teardown(context.Background(), victims)
	return nil
}

// Sweep evicts idle entries past the TTL and, if the pool still exceeds
// MaxSize, further idle entries oldest first. Returns the number of
// entries removed. Safe to call concurrently with Acquire and Release;
// normally driven by the background sweeper.
func (p *Pool) Sweep() int {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0
	}
	victims := p.evictLocked(time.Now())
	p.mu.Unlock()

	p.teardown(context.Background(), victims)
	return len(victims)
}

type evictReason string

const (
	reasonTTL      evictReason = "ttl"
	reasonCapacity evictReason = "capacity"
)

type victim struct {
	entry  *entry
	reason evictReason
}

// evictLocked removes evictable entries from the map and returns them
// for teardown outside the lock. Caller holds p.mu.
//
// Two passes: first every idle entry whose idle duration reached the
// TTL, then, while the pool is still over MaxSize, remaining idle
// entries ordered oldest releasedAt first with insertion order breaking
// ties. Referenced entries are never candidates. Total removals per
// call are capped by maxSweepRemovals.
func (p *Pool) evictLocked(now time.Time) []victim {
	var victims []victim

	for fp, e := range p.entries {
		if len(victims) >= maxSweepRemovals {
			return victims
		}
		if e.idle() && now.Sub(e.releasedAt) >= p.ttl {
			delete(p.entries, fp)
			victims = append(victims, victim{entry: e, reason: reasonTTL})
		}
	}

	if len(p.entries) <= p.maxSize {
		return victims
	}

	idle := make([]*entry, 0, len(p.entries))
	for _, e := range p.entries {
		if e.idle() {
			idle = append(idle, e)
		}
	}
	sort.Slice(idle, func(i, j int) bool {
		if !idle[i].releasedAt.Equal(idle[j].releasedAt) {
			return idle[i].releasedAt.Before(idle[j].releasedAt)
		}
		return idle[i].seq < idle[j].seq
	})

	for _, e := range idle {
		if len(p.entries) <= p.maxSize || len(victims) >= maxSweepRemovals {
			break
		}
		delete(p.entries, e.fingerprint)
		victims = append(victims, victim{entry: e, reason: reasonCapacity})
	}

	return victims
}

// teardown closes evicted clients. Runs without the pool lock: Close may
// do I/O.
func (p *Pool) teardown(ctx context.Context, victims []victim) {
	for _, v := range victims {
		if err := v.entry.client.Close(); err != nil {
			p.logger.Warn(ctx, "client close failed during eviction",
				observe.F("fingerprint", v.entry.fingerprint),
				observe.F("error", err.Error()))
		}
		p.metrics.recordEviction(ctx, v.reason)
		p.logger.Debug(ctx, "evicted idle client",
			observe.F("fingerprint", v.entry.fingerprint),
			observe.F("model", v.entry.model),
			observe.F("reason", string(v.reason)))
	}
}

// Stats is a read-only snapshot of pool state.
type Stats struct {
	// Entries is the total number of cached clients.
	Entries int

	// Active is the number of entries with outstanding leases.
	Active int

	// Idle is the number of entries eligible for eviction.
	Idle int

	// ByModel counts entries per model name.
	ByModel map[string]int
}

// Stats returns a snapshot of current pool state.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{
		Entries: len(p.entries),
		ByModel: make(map[string]int, len(p.entries)),
	}
	for _, e := range p.entries {
		if e.idle() {
			s.Idle++
		} else {
			s.Active++
		}
		s.ByModel[e.model]++
	}
	return s
}

// Close stops the background sweeper and tears down every entry,
// including referenced ones: after Close no lease is valid. Idempotent.
func (p *Pool) Close() error {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
	<-p.done

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	remaining := make([]*entry, 0, len(p.entries))
	for _, e := range p.entries {
		remaining = append(remaining, e)
	}
	p.entries = make(map[string]*entry)
	p.mu.Unlock()

	for _, e := range remaining {
		e.client.Close()
	}
	return nil
}

// sweepLoop drives periodic sweeps until Close.
func (p *Pool) sweepLoop() {
	defer close(p.done)

	ticker := time.NewTicker(p.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.Sweep()
		case <-p.stopCh:
			return
		}
	}
}
