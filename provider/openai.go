package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/llmops/config"
	"github.com/jonwraymond/llmops/observe"
	"github.com/jonwraymond/llmops/secret"
)

// Per-option defaults applied at build time.
const (
	DefaultModel       = "gpt-3.5-turbo"
	DefaultTemperature = 0.7
	DefaultBaseURL     = "https://api.openai.com"

	// EnvAPIKey is consulted when the api_key option is unset.
	EnvAPIKey = "OPENAI_API_KEY"
)

// maxBatchConcurrency bounds the fan-out of BatchInvoke.
const maxBatchConcurrency = 8

// OpenAIFactory builds clients for OpenAI-compatible chat-completion
// endpoints.
type OpenAIFactory struct {
	// HTTPClient is used for all requests. If nil, a default client
	// with a 120s timeout is used.
	HTTPClient *http.Client

	// Secrets resolves the api_key option. If nil, a resolver with the
	// env provider is used.
	Secrets *secret.Resolver
}

// NewOpenAIFactory creates a factory with default HTTP client and
// credential resolution.
func NewOpenAIFactory() *OpenAIFactory {
	return &OpenAIFactory{}
}

// Build constructs a client from cfg, applying defaults and resolving
// the credential from the config or the process environment.
func (f *OpenAIFactory) Build(ctx context.Context, cfg config.Config) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	apiKey, err := f.resolveAPIKey(ctx, cfg)
	if err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: invalid base_url %q", ErrBuild, baseURL)
	}

	model := cfg.ModelName
	if model == "" {
		model = DefaultModel
	}
	temperature := DefaultTemperature
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}

	httpClient := f.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}

	return &openaiClient{
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(parsed.String(), "/"),
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

func (f *OpenAIFactory) resolveAPIKey(ctx context.Context, cfg config.Config) (string, error) {
	resolver := f.Secrets
	if resolver == nil {
		resolver = secret.NewResolver()
	}

	if cfg.APIKey != "" {
		key, err := resolver.ResolveValue(ctx, cfg.APIKey)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrMissingAPIKey, err)
		}
		return key, nil
	}

	key, err := resolver.ResolveValue(ctx, "secretref:env:"+EnvAPIKey)
	if err != nil || key == "" {
		return "", ErrMissingAPIKey
	}
	return key, nil
}

// openaiClient speaks the chat-completions protocol. It holds no mutable
// request state, so concurrent invocations are safe.
type openaiClient struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   *int
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
		Delta   chatMessage `json:"delta"`
	} `json:"choices"`
}

func (c *openaiClient) Meta() observe.ModelMeta {
	return observe.ModelMeta{Provider: "openai", Model: c.model}
}

// Invoke sends one prompt and returns the first choice's content.
func (c *openaiClient) Invoke(ctx context.Context, prompt string) (string, error) {
	resp, err := c.post(ctx, c.request(prompt, false))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var completion chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("provider: decode response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return completion.Choices[0].Message.Content, nil
}

// BatchInvoke fans prompts out concurrently, bounded by
// maxBatchConcurrency, and returns responses in prompt order. The first
// failure cancels outstanding requests.
func (c *openaiClient) BatchInvoke(ctx context.Context, prompts []string) ([]string, error) {
	results := make([]string, len(prompts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxBatchConcurrency)
	for i, prompt := range prompts {
		g.Go(func() error {
			text, err := c.Invoke(ctx, prompt)
			if err != nil {
				return err
			}
			results[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Stream sends one prompt with streaming enabled and returns the SSE
// chunk sequence.
func (c *openaiClient) Stream(ctx context.Context, prompt string) (Stream, error) {
	resp, err := c.post(ctx, c.request(prompt, true))
	if err != nil {
		return nil, err
	}
	return &sseStream{
		body:   resp.Body,
		reader: bufio.NewReader(resp.Body),
	}, nil
}

// Close releases idle connections. The pool calls this when the client
// is evicted; in-flight requests on other goroutines are unaffected.
func (c *openaiClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *openaiClient) request(prompt string, stream bool) chatRequest {
	return chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Stream:      stream,
	}
}

func (c *openaiClient) post(ctx context.Context, req chatRequest) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("provider: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("provider: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if req.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("provider: execute request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		message, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(message)),
		}
	}
	return resp, nil
}

// sseStream parses text/event-stream chat-completion chunks.
type sseStream struct {
	body   io.ReadCloser
	reader *bufio.Reader

	mu     sync.Mutex
	done   bool
	closed bool
}

// Recv returns the next non-empty content chunk, or io.EOF after the
// [DONE] terminator or end of body.
func (s *sseStream) Recv() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrStreamClosed
	}
	if s.done {
		return "", io.EOF
	}

	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			s.done = true
			if err == io.EOF {
				return "", io.EOF
			}
			return "", fmt.Errorf("provider: read stream: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)

		if data == "[DONE]" {
			s.done = true
			return "", io.EOF
		}

		var chunk chatResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return "", fmt.Errorf("provider: decode chunk: %w", err)
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		return chunk.Choices[0].Delta.Content, nil
	}
}

// Close terminates the stream. Idempotent.
func (s *sseStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.done = true
	return s.body.Close()
}

var (
	_ Client = (*openaiClient)(nil)
	_ Stream = (*sseStream)(nil)
)
