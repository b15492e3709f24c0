package unifiedllm

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// CompletionOptions are the per-call parameters of a text completion.
type CompletionOptions struct {
	Model         string
	Provider      string
	Temperature   float64
	MaxTokens     int
	StopSequences []string
	Retry         RetryPolicy
}

// DefaultCompletionOptions returns deterministic settings with a JSON-friendly
// stop sequence.
func DefaultCompletionOptions(model string) CompletionOptions {
	return CompletionOptions{
		Model:         model,
		Temperature:   0,
		MaxTokens:     4000,
		StopSequences: []string{"```"},
		Retry:         DefaultRetryPolicy(),
	}
}

// TextCompleter turns a prompt into completion text through a Client, with
// bounded retry on transient provider errors.
type TextCompleter struct {
	client *Client
	opts   CompletionOptions
	logger *slog.Logger
}

// NewTextCompleter creates a TextCompleter. A nil logger uses slog.Default.
func NewTextCompleter(client *Client, opts CompletionOptions, logger *slog.Logger) *TextCompleter {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextCompleter{
		client: client,
		opts:   opts,
		logger: logger.With("component", "completer"),
	}
}

// Model returns the model identifier used for completions.
func (c *TextCompleter) Model() string { return c.opts.Model }

// Complete sends prompt as a single user message and returns the text.
func (c *TextCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	temperature := c.opts.Temperature
	req := Request{
		Model:         c.opts.Model,
		Provider:      c.opts.Provider,
		Messages:      []Message{UserMessage(prompt)},
		Temperature:   &temperature,
		StopSequences: c.opts.StopSequences,
	}
	if c.opts.MaxTokens > 0 {
		maxTokens := c.opts.MaxTokens
		req.MaxTokens = &maxTokens
	}

	policy := c.opts.Retry
	userOnRetry := policy.OnRetry
	policy.OnRetry = func(err error, attempt int, delay time.Duration) {
		c.logger.Warn("completion failed, retrying",
			"model", c.opts.Model, "attempt", attempt, "delay", delay, "error", err)
		if userOnRetry != nil {
			userOnRetry(err, attempt, delay)
		}
	}

	resp, err := Retry(ctx, policy, func(ctx context.Context) (*Response, error) {
		return c.client.Complete(ctx, req)
	})
	if err != nil {
		return "", fmt.Errorf("completion with %s: %w", c.opts.Model, err)
	}

	c.logger.Debug("completion received",
		"model", resp.Model, "provider", resp.Provider,
		"input_tokens", resp.Usage.InputTokens, "output_tokens", resp.Usage.OutputTokens)
	return resp.Text(), nil
}
