package pool

import (
	"sync"

	"github.com/jonwraymond/llmops/provider"
)

// The process-wide default pool, created lazily on first use.
var (
	defaultMu   sync.Mutex
	defaultPool *Pool
)

// Default returns the process-wide pool, creating it with an OpenAI
// factory and default options on first call.
func Default() *Pool {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultPool == nil {
		p, err := New(Options{Factory: provider.NewOpenAIFactory()})
		if err != nil {
			// Unreachable: New fails only on a nil factory.
			panic(err)
		}
		defaultPool = p
	}
	return defaultPool
}

// SetDefault replaces the process-wide pool. The previous default, if
// any, is closed. Intended for startup wiring, before concurrent use.
func SetDefault(p *Pool) error {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	var err error
	if defaultPool != nil {
		err = defaultPool.Close()
	}
	defaultPool = p
	return err
}

// Shutdown closes the process-wide pool: the sweeper stops and every
// cached client is torn down. The next Default call creates a fresh
// pool.
func Shutdown() error {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultPool == nil {
		return nil
	}
	err := defaultPool.Close()
	defaultPool = nil
	return err
}
