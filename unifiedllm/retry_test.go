package unifiedllm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func transientError() error {
	return &ServerError{ProviderError: ProviderError{SDKError: SDKError{Message: "server error"}, Retryable: true}}
}

func fastPolicy(retries int) RetryPolicy {
	return RetryPolicy{MaxRetries: retries, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

func TestRetryPolicyDelay(t *testing.T) {
	policy := RetryPolicy{BaseDelay: time.Second, MaxDelay: 5 * time.Second, Multiplier: 2}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 5 * time.Second},
		{10, 5 * time.Second},
	}
	for _, tt := range tests {
		if got := policy.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRetryPolicyDelayWithJitter(t *testing.T) {
	policy := RetryPolicy{BaseDelay: time.Second, MaxDelay: time.Minute, Multiplier: 2, Jitter: true}
	for i := 0; i < 100; i++ {
		got := policy.Delay(0)
		if got < 500*time.Millisecond || got >= 1500*time.Millisecond {
			t.Fatalf("jittered delay out of range: %v", got)
		}
	}
}

func TestRetry(t *testing.T) {
	auth := &AuthenticationError{ProviderError: ProviderError{SDKError: SDKError{Message: "invalid key"}}}
	tests := []struct {
		name      string
		retries   int
		failures  int
		err       func() error
		wantCalls int
		wantErr   bool
	}{
		{"immediate success", 3, 0, transientError, 1, false},
		{"recovers after transient failures", 3, 2, transientError, 3, false},
		{"non-retryable stops at once", 3, 5, func() error { return auth }, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			got, err := Retry(context.Background(), fastPolicy(tt.retries), func(context.Context) (string, error) {
				calls++
				if calls <= tt.failures {
					return "", tt.err()
				}
				return "ok", nil
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != "ok" {
				t.Errorf("result = %q", got)
			}
		})
	}
}

func TestRetryExhausted(t *testing.T) {
	policy := fastPolicy(2)
	var retried []int
	policy.OnRetry = func(err error, attempt int, delay time.Duration) {
		retried = append(retried, attempt)
	}

	calls := 0
	_, err := Retry(context.Background(), policy, func(context.Context) (string, error) {
		calls++
		return "", transientError()
	})
	if calls != 3 {
		t.Errorf("expected one call plus two retries, got %d", calls)
	}
	if len(retried) != 2 || retried[0] != 1 || retried[1] != 2 {
		t.Errorf("expected OnRetry for attempts 1 and 2, got %v", retried)
	}

	var exhausted *RetryExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected RetryExhaustedError, got %T", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("expected 3 attempts recorded, got %d", exhausted.Attempts)
	}
	var server *ServerError
	if !errors.As(err, &server) {
		t.Error("expected the server error to remain reachable through Unwrap")
	}
	if IsRetryable(err) {
		t.Error("an exhausted retry must not be retried again")
	}
}

func TestRetryHonoursRetryAfter(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 1, BaseDelay: time.Hour, MaxDelay: time.Second, Multiplier: 1}
	after := 0.001
	var delays []time.Duration
	policy.OnRetry = func(_ error, _ int, d time.Duration) { delays = append(delays, d) }

	calls := 0
	_, err := Retry(context.Background(), policy, func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", &RateLimitError{ProviderError: ProviderError{Retryable: true, RetryAfter: &after}}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(delays) != 1 || delays[0] != time.Millisecond {
		t.Errorf("expected the server's 1ms wait, got %v", delays)
	}
}

func TestRetryRateLimitBeyondMaxDelay(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: time.Second, Multiplier: 1}
	after := 120.0

	calls := 0
	_, err := Retry(context.Background(), policy, func(context.Context) (string, error) {
		calls++
		return "", &RateLimitError{ProviderError: ProviderError{Retryable: true, RetryAfter: &after}}
	})
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected the rate limit error to surface, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected no retries when Retry-After exceeds max delay, got %d calls", calls)
	}
}

func TestRetryCancelled(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: time.Second, Multiplier: 1}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	calls := 0
	_, err := Retry(ctx, policy, func(context.Context) (string, error) {
		calls++
		return "", errors.New("always fails")
	})
	var abort *AbortError
	if !errors.As(err, &abort) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected AbortError wrapping the deadline, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected cancellation during the first wait, got %d calls", calls)
	}
}

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()
	want := RetryPolicy{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: 30 * time.Second, Multiplier: 2, Jitter: true}
	if p.MaxRetries != want.MaxRetries || p.BaseDelay != want.BaseDelay || p.MaxDelay != want.MaxDelay ||
		p.Multiplier != want.Multiplier || p.Jitter != want.Jitter {
		t.Errorf("DefaultRetryPolicy() = %+v, want %+v", p, want)
	}
}
