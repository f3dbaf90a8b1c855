package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/llmops/config"
	"github.com/jonwraymond/llmops/observe"
	"github.com/jonwraymond/llmops/pool"
	"github.com/jonwraymond/llmops/provider"
)

type stubClient struct {
	model     string
	invokeErr error
}

func (c *stubClient) Invoke(_ context.Context, prompt string) (string, error) {
	if c.invokeErr != nil {
		return "", c.invokeErr
	}
	return "reply: " + prompt, nil
}

func (c *stubClient) BatchInvoke(ctx context.Context, prompts []string) ([]string, error) {
	out := make([]string, len(prompts))
	for i, p := range prompts {
		text, err := c.Invoke(ctx, p)
		if err != nil {
			return nil, err
		}
		out[i] = text
	}
	return out, nil
}

func (c *stubClient) Stream(context.Context, string) (provider.Stream, error) {
	return &stubStream{chunks: []string{"a", "b"}}, nil
}

func (c *stubClient) Meta() observe.ModelMeta {
	return observe.ModelMeta{Provider: "stub", Model: c.model}
}

func (c *stubClient) Close() error { return nil }

type stubStream struct {
	chunks []string
	pos    int
}

func (s *stubStream) Recv() (string, error) {
	if s.pos >= len(s.chunks) {
		return "", io.EOF
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return chunk, nil
}

func (s *stubStream) Close() error { return nil }

type stubFactory struct {
	mu        sync.Mutex
	builds    int
	invokeErr error
}

func (f *stubFactory) Build(_ context.Context, cfg config.Config) (provider.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builds++
	model := cfg.ModelName
	if model == "" {
		model = "stub-default"
	}
	return &stubClient{model: model, invokeErr: f.invokeErr}, nil
}

func newTestPool(t *testing.T) (*pool.Pool, *stubFactory) {
	t.Helper()
	f := &stubFactory{}
	p, err := pool.New(pool.Options{Factory: f, SweepInterval: time.Hour})
	if err != nil {
		t.Fatalf("pool.New failed: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p, f
}

func TestInvoke(t *testing.T) {
	p, _ := newTestPool(t)

	svc, err := CreateWith(context.Background(), p, config.Config{ModelName: "gpt-4"})
	if err != nil {
		t.Fatalf("CreateWith failed: %v", err)
	}
	defer svc.Release()

	got, err := svc.Invoke(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if got != "reply: hello" {
		t.Errorf("Invoke = %q, want %q", got, "reply: hello")
	}
	if meta := svc.Meta(); meta.Model != "gpt-4" {
		t.Errorf("Meta.Model = %q, want gpt-4", meta.Model)
	}
}

func TestBatchInvoke(t *testing.T) {
	p, _ := newTestPool(t)

	svc, err := CreateWith(context.Background(), p, config.Config{})
	if err != nil {
		t.Fatalf("CreateWith failed: %v", err)
	}
	defer svc.Release()

	got, err := svc.BatchInvoke(context.Background(), []string{"one", "two"})
	if err != nil {
		t.Fatalf("BatchInvoke failed: %v", err)
	}
	want := []string{"reply: one", "reply: two"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("BatchInvoke[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStream(t *testing.T) {
	p, _ := newTestPool(t)

	svc, err := CreateWith(context.Background(), p, config.Config{})
	if err != nil {
		t.Fatalf("CreateWith failed: %v", err)
	}
	defer svc.Release()

	stream, err := svc.Stream(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	defer stream.Close()

	var chunks []string
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Recv failed: %v", err)
		}
		chunks = append(chunks, chunk)
	}
	if len(chunks) != 2 {
		t.Errorf("got %d chunks, want 2", len(chunks))
	}
}

func TestUseAfterRelease(t *testing.T) {
	p, _ := newTestPool(t)
	ctx := context.Background()

	svc, err := CreateWith(ctx, p, config.Config{})
	if err != nil {
		t.Fatalf("CreateWith failed: %v", err)
	}
	if err := svc.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	if _, err := svc.Invoke(ctx, "x"); !errors.Is(err, ErrReleased) {
		t.Errorf("Invoke after release = %v, want %v", err, ErrReleased)
	}
	if _, err := svc.BatchInvoke(ctx, []string{"x"}); !errors.Is(err, ErrReleased) {
		t.Errorf("BatchInvoke after release = %v, want %v", err, ErrReleased)
	}
	if _, err := svc.Stream(ctx, "x"); !errors.Is(err, ErrReleased) {
		t.Errorf("Stream after release = %v, want %v", err, ErrReleased)
	}
}

func TestRelease_Double(t *testing.T) {
	p, _ := newTestPool(t)

	svc, err := CreateWith(context.Background(), p, config.Config{})
	if err != nil {
		t.Fatalf("CreateWith failed: %v", err)
	}

	if err := svc.Release(); err != nil {
		t.Fatalf("first Release failed: %v", err)
	}
	if err := svc.Release(); !errors.Is(err, pool.ErrOverRelease) {
		t.Errorf("second Release = %v, want %v", err, pool.ErrOverRelease)
	}
}

func TestWithPool_ReleasesOnSuccess(t *testing.T) {
	p, _ := newTestPool(t)

	err := WithPool(context.Background(), p, config.Config{}, func(ctx context.Context, svc *Service) error {
		_, err := svc.Invoke(ctx, "hello")
		return err
	})
	if err != nil {
		t.Fatalf("WithPool failed: %v", err)
	}

	if s := p.Stats(); s.Active != 0 || s.Idle != 1 {
		t.Errorf("Stats = %+v, want 0 active / 1 idle after scope exit", s)
	}
}

func TestWithPool_ReleasesOnError(t *testing.T) {
	p, f := newTestPool(t)
	f.invokeErr = errors.New("remote failure")

	err := WithPool(context.Background(), p, config.Config{}, func(ctx context.Context, svc *Service) error {
		_, err := svc.Invoke(ctx, "hello")
		return err
	})
	if err == nil || err.Error() != "remote failure" {
		t.Fatalf("WithPool error = %v, want remote failure", err)
	}

	if s := p.Stats(); s.Active != 0 {
		t.Errorf("Stats.Active = %d after error exit, want 0", s.Active)
	}
}

func TestWithPool_ReleasesOnPanic(t *testing.T) {
	p, _ := newTestPool(t)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("panic did not propagate")
			}
		}()
		WithPool(context.Background(), p, config.Config{}, func(context.Context, *Service) error {
			panic("caller bug")
		})
	}()

	if s := p.Stats(); s.Active != 0 {
		t.Errorf("Stats.Active = %d after panic, want 0", s.Active)
	}
}

func TestCreate_UsesDefaultPool(t *testing.T) {
	f := &stubFactory{}
	p, err := pool.New(pool.Options{Factory: f, SweepInterval: time.Hour})
	if err != nil {
		t.Fatalf("pool.New failed: %v", err)
	}
	if err := pool.SetDefault(p); err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}
	t.Cleanup(func() { pool.Shutdown() })

	svc, err := Create(context.Background(), config.Config{ModelName: "gpt-4"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer svc.Release()

	if _, err := svc.Invoke(context.Background(), "hi"); err != nil {
		t.Errorf("Invoke failed: %v", err)
	}
	if s := p.Stats(); s.Entries != 1 {
		t.Errorf("default pool Stats.Entries = %d, want 1", s.Entries)
	}
}

func TestInstrument(t *testing.T) {
	p, _ := newTestPool(t)

	svc, err := CreateWith(context.Background(), p, config.Config{})
	if err != nil {
		t.Fatalf("CreateWith failed: %v", err)
	}
	defer svc.Release()

	svc.Instrument(observe.Nop())
	if _, err := svc.Invoke(context.Background(), "hello"); err != nil {
		t.Errorf("instrumented Invoke failed: %v", err)
	}

	// Nil observer is ignored.
	svc.Instrument(nil)
	if _, err := svc.Invoke(context.Background(), "again"); err != nil {
		t.Errorf("Invoke after nil Instrument failed: %v", err)
	}
}

func TestServicesShareClient(t *testing.T) {
	p, f := newTestPool(t)
	ctx := context.Background()
	cfg := config.Config{ModelName: "shared"}

	var results []string
	for i := 0; i < 3; i++ {
		err := WithPool(ctx, p, cfg, func(ctx context.Context, svc *Service) error {
			text, err := svc.Invoke(ctx, fmt.Sprintf("call-%d", i))
			results = append(results, text)
			return err
		})
		if err != nil {
			t.Fatalf("WithPool %d failed: %v", i, err)
		}
	}

	f.mu.Lock()
	builds := f.builds
	f.mu.Unlock()
	if builds != 1 {
		t.Errorf("builds = %d, want 1 (sequential scopes reuse the idle client)", builds)
	}
	if len(results) != 3 {
		t.Errorf("got %d results, want 3", len(results))
	}
}
