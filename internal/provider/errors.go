package provider

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode classifies a model roundtrip failure.
type ErrorCode string

const (
	ErrorCodeContextLength  ErrorCode = "context_length_exceeded"
	ErrorCodeContentBlocked ErrorCode = "content_blocked"
	ErrorCodeRateLimit      ErrorCode = "rate_limit"
	ErrorCodeAuth           ErrorCode = "authentication_failed"
	ErrorCodeNetwork        ErrorCode = "network_error"
	ErrorCodeUnavailable    ErrorCode = "service_unavailable"
	ErrorCodeInvalidRequest ErrorCode = "invalid_request"
	ErrorCodeEmptyResponse  ErrorCode = "empty_response"
)

// ProviderError wraps errors with additional context.
// Retryable and RetryAfter are hints for callers; nothing in this module retries.
type ProviderError struct {
	Code       ErrorCode
	Message    string
	Underlying error
	Retryable  bool
	RetryAfter *time.Duration
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// IsRetryable returns true if the error is retryable.
func IsRetryable(err error) bool {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Retryable
	}
	return false
}

// GetRetryAfter returns the retry-after duration if present.
func GetRetryAfter(err error) *time.Duration {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.RetryAfter
	}
	return nil
}
