package unifiedllm

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestNewRequestLimiter(t *testing.T) {
	if l := NewRequestLimiter(0, 0); l.Limit() != rate.Inf {
		t.Errorf("expected unlimited limiter, got %v", l.Limit())
	}
	l := NewRequestLimiter(120, 0)
	if l.Limit() != rate.Limit(2) {
		t.Errorf("expected 2 requests/sec, got %v", l.Limit())
	}
	if l.Burst() != 1 {
		t.Errorf("expected burst 1, got %d", l.Burst())
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	mock := newMockAdapter("p", "ok")
	client := NewClient(
		WithProvider("p", mock),
		WithMiddleware(RateLimitMiddleware(NewRequestLimiter(1, 1))),
	)

	if _, err := client.Complete(context.Background(), Request{Model: "m"}); err != nil {
		t.Fatalf("first request should pass: %v", err)
	}

	// The bucket is empty for the next minute.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.Complete(ctx, Request{Model: "m"})
	var abort *AbortError
	if !errors.As(err, &abort) {
		t.Fatalf("expected AbortError, got %T (%v)", err, err)
	}
	if IsRetryable(err) {
		t.Error("cancelled limiter wait should not be retryable")
	}
	if len(mock.requests) != 1 {
		t.Errorf("expected one request to reach the provider, got %d", len(mock.requests))
	}
}
