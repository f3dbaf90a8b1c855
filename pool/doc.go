// Package pool is the process-wide lifecycle manager for model provider
// clients. It deduplicates clients by configuration fingerprint, tracks
// per-client reference counts, keeps unreferenced clients in a time-boxed
// reuse pool, and runs a background sweep that evicts expired and excess
// idle entries.
//
// # Lifecycle
//
// Acquire returns a Lease on the cached client for the configuration's
// fingerprint, building one through the Factory only on a miss. Releasing
// the last lease does not destroy the client; it becomes idle and remains
// usable for the next Acquire until the TTL expires. The sweep removes
// idle entries past their TTL and, when the pool exceeds MaxSize, further
// idle entries oldest first. Entries with outstanding leases are never
// evicted.
//
// # Concurrency
//
// All map, reference-count, and timestamp state lives behind one mutex.
// Client construction happens outside the lock; when two goroutines race
// to build the same fingerprint, the loser's client is torn down and both
// share the winner's. Races never surface as errors.
//
//	p, err := pool.New(pool.Options{Factory: provider.NewOpenAIFactory()})
//	if err != nil {
//		return err
//	}
//	defer p.Close()
//
//	lease, err := p.Acquire(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer lease.Release()
//
//	text, err := lease.Client().Invoke(ctx, "hello")
package pool
