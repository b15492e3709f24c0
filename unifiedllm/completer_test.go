package unifiedllm

import (
	"context"
	"errors"
	"testing"
	"time"
)

// sequenceAdapter returns its errors in order, then the response.
type sequenceAdapter struct {
	name     string
	errs     []error
	response *Response
	calls    int
	last     Request
}

func (s *sequenceAdapter) Name() string { return s.name }

func (s *sequenceAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	s.last = req
	s.calls++
	if s.calls <= len(s.errs) {
		return nil, s.errs[s.calls-1]
	}
	return s.response, nil
}

func fastOptions(model string) CompletionOptions {
	opts := DefaultCompletionOptions(model)
	opts.Retry = RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, Multiplier: 2}
	return opts
}

func TestTextCompleterComplete(t *testing.T) {
	adapter := &sequenceAdapter{name: "p", response: newMockAdapter("p", `{"command":{"action":"declare_done"}}`).response}
	completer := NewTextCompleter(NewClient(WithProvider("p", adapter)), fastOptions("gpt-4"), nil)

	text, err := completer.Complete(context.Background(), "the prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != `{"command":{"action":"declare_done"}}` {
		t.Errorf("unexpected text %q", text)
	}
	if got := adapter.last.Messages[0].TextContent(); got != "the prompt" {
		t.Errorf("expected prompt as user message, got %q", got)
	}
	if adapter.last.Temperature == nil || *adapter.last.Temperature != 0 {
		t.Error("expected temperature 0")
	}
	if len(adapter.last.StopSequences) != 1 || adapter.last.StopSequences[0] != "```" {
		t.Errorf("expected fence stop sequence, got %v", adapter.last.StopSequences)
	}
	if completer.Model() != "gpt-4" {
		t.Errorf("expected model gpt-4, got %q", completer.Model())
	}
}

func TestTextCompleterRetriesTransientErrors(t *testing.T) {
	transient := &ServerError{ProviderError{SDKError: SDKError{Message: "overloaded"}, StatusCode: 503, Retryable: true}}
	adapter := &sequenceAdapter{
		name:     "p",
		errs:     []error{transient, transient},
		response: newMockAdapter("p", "ok").response,
	}
	var retries int
	opts := fastOptions("gpt-4")
	opts.Retry.OnRetry = func(error, int, time.Duration) { retries++ }
	completer := NewTextCompleter(NewClient(WithProvider("p", adapter)), opts, nil)

	text, err := completer.Complete(context.Background(), "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "ok" || adapter.calls != 3 || retries != 2 {
		t.Errorf("text=%q calls=%d retries=%d", text, adapter.calls, retries)
	}
}

func TestTextCompleterGivesUp(t *testing.T) {
	transient := &ServerError{ProviderError{SDKError: SDKError{Message: "overloaded"}, StatusCode: 503, Retryable: true}}
	adapter := &sequenceAdapter{name: "p", errs: []error{transient, transient, transient, transient, transient}}
	completer := NewTextCompleter(NewClient(WithProvider("p", adapter)), fastOptions("gpt-4"), nil)

	_, err := completer.Complete(context.Background(), "hi")
	var exhausted *RetryExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected RetryExhaustedError, got %T (%v)", err, err)
	}
	if exhausted.Attempts != 4 {
		t.Errorf("expected 4 attempts, got %d", exhausted.Attempts)
	}
}

func TestTextCompleterDoesNotRetryAuthErrors(t *testing.T) {
	auth := &AuthenticationError{ProviderError{SDKError: SDKError{Message: "bad key"}, StatusCode: 401}}
	adapter := &sequenceAdapter{name: "p", errs: []error{auth}}
	completer := NewTextCompleter(NewClient(WithProvider("p", adapter)), fastOptions("gpt-4"), nil)

	_, err := completer.Complete(context.Background(), "hi")
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthenticationError, got %T", err)
	}
	if adapter.calls != 1 {
		t.Errorf("expected a single call, got %d", adapter.calls)
	}
}
