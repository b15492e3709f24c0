package unifiedllm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Handler performs one completion request.
type Handler func(ctx context.Context, req Request) (*Response, error)

// Middleware wraps a provider call. next invokes the rest of the chain.
type Middleware func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error)

// Client routes completion requests to a registered provider through a fixed
// middleware chain and keeps a running total of token usage.
type Client struct {
	providers       map[string]ProviderAdapter
	defaultProvider string
	middleware      []Middleware
	logger          *slog.Logger

	mu    sync.Mutex
	usage Usage
	calls int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithProvider registers adapter under name.
func WithProvider(name string, adapter ProviderAdapter) ClientOption {
	return func(c *Client) { c.providers[name] = adapter }
}

// WithDefaultProvider names the provider used when a request leaves it empty.
func WithDefaultProvider(name string) ClientOption {
	return func(c *Client) { c.defaultProvider = name }
}

// WithMiddleware appends middleware; the first one added sees the request first.
func WithMiddleware(mw ...Middleware) ClientOption {
	return func(c *Client) { c.middleware = append(c.middleware, mw...) }
}

// WithClientLogger sets the client's logger.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client. With a single provider and no explicit default,
// that provider becomes the default.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		providers: make(map[string]ProviderAdapter),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "llm_client")

	if c.defaultProvider == "" && len(c.providers) == 1 {
		for name := range c.providers {
			c.defaultProvider = name
		}
	}
	return c
}

func (c *Client) adapterFor(req Request) (ProviderAdapter, error) {
	name := req.Provider
	if name == "" {
		name = c.defaultProvider
	}
	if name == "" {
		if info := GetModelInfo(req.Model); info != nil {
			name = info.Provider
		}
	}
	if name == "" {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: "no provider specified and no default provider configured",
		}}
	}
	adapter, ok := c.providers[name]
	if !ok {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("provider %q is not registered", name),
		}}
	}
	return adapter, nil
}

// chain wraps h so that c.middleware[0] is the outermost layer.
func (c *Client) chain(h Handler) Handler {
	for i := len(c.middleware) - 1; i >= 0; i-- {
		mw, next := c.middleware[i], h
		h = func(ctx context.Context, r Request) (*Response, error) {
			return mw(ctx, r, next)
		}
	}
	return h
}

// Complete sends req to its provider through the middleware chain.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	adapter, err := c.adapterFor(req)
	if err != nil {
		return nil, err
	}
	if req.Provider == "" {
		req.Provider = adapter.Name()
	}

	resp, err := c.chain(adapter.Complete)(ctx, req)
	if err != nil {
		c.logger.Debug("provider call failed", "provider", req.Provider, "model", req.Model, "error", err)
		return nil, err
	}

	c.mu.Lock()
	c.usage = c.usage.Add(resp.Usage)
	c.calls++
	c.mu.Unlock()
	return resp, nil
}

// Usage returns the token usage summed over every successful call, and the
// number of those calls.
func (c *Client) Usage() (Usage, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage, c.calls
}

// Close closes every provider that holds resources.
func (c *Client) Close() error {
	var errs []error
	for name, adapter := range c.providers {
		closer, ok := adapter.(Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
