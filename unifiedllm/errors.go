package unifiedllm

import (
	"context"
	"errors"
	"fmt"
)

// SDKError is embedded by every completion error. Cause, when set, is
// reachable through errors.Is and errors.As.
type SDKError struct {
	Message string
	Cause   error
}

func (e *SDKError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *SDKError) Unwrap() error { return e.Cause }

// ProviderError is a failure reported by the provider itself.
type ProviderError struct {
	SDKError
	Provider   string
	StatusCode int
	ErrorCode  string
	Retryable  bool
	RetryAfter *float64 // seconds
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("[%s] %s (status=%d, retryable=%v)", e.Provider, e.Message, e.StatusCode, e.Retryable)
}

type (
	AuthenticationError struct{ ProviderError }
	AccessDeniedError   struct{ ProviderError }
	NotFoundError       struct{ ProviderError }
	InvalidRequestError struct{ ProviderError }
	RateLimitError      struct{ ProviderError }
	ServerError         struct{ ProviderError }
	ContentFilterError  struct{ ProviderError }
	ContextLengthError  struct{ ProviderError }
	QuotaExceededError  struct{ ProviderError }
)

type (
	RequestTimeoutError struct{ SDKError }
	AbortError          struct{ SDKError }
	NetworkError        struct{ SDKError }
	ConfigurationError  struct{ SDKError }
)

// RetryExhaustedError is what Retry returns once a transient failure has
// outlived the policy; Cause holds the last failure. It is never retried.
type RetryExhaustedError struct {
	SDKError
	Attempts int
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s after %d attempts: %v", e.Message, e.Attempts, e.Cause)
}

// ErrorFromStatusCode classifies an HTTP failure. Statuses without a
// dedicated type come back as a retryable *ProviderError.
func ErrorFromStatusCode(statusCode int, message, provider, errorCode string, retryAfter *float64) error {
	pe := ProviderError{
		SDKError:   SDKError{Message: message},
		Provider:   provider,
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		RetryAfter: retryAfter,
	}

	switch statusCode {
	case 400, 422:
		return &InvalidRequestError{pe}
	case 401:
		return &AuthenticationError{pe}
	case 403:
		return &AccessDeniedError{pe}
	case 404:
		return &NotFoundError{pe}
	case 408:
		return &RequestTimeoutError{SDKError{Message: message}}
	case 413:
		return &ContextLengthError{pe}
	}

	pe.Retryable = true
	switch statusCode {
	case 429:
		return &RateLimitError{pe}
	case 500, 502, 503, 504:
		return &ServerError{pe}
	}
	return &pe
}

// IsRetryable reports whether err is worth another attempt. Wrapped errors
// are classified by the first typed error in their chain. An unclassified
// error is retryable unless it is a context cancellation or deadline.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	for {
		switch e := err.(type) {
		case *AuthenticationError, *AccessDeniedError, *NotFoundError, *InvalidRequestError,
			*ContextLengthError, *QuotaExceededError, *ContentFilterError, *ConfigurationError,
			*AbortError, *RetryExhaustedError:
			return false
		case *RateLimitError, *ServerError, *NetworkError, *RequestTimeoutError:
			return true
		case *ProviderError:
			return e.Retryable
		}
		next := errors.Unwrap(err)
		if next == nil {
			return err != context.Canceled && err != context.DeadlineExceeded
		}
		err = next
	}
}
