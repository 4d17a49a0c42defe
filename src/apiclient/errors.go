package apiclient

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// ErrTimeout indicates a provider call ran past its deadline
var ErrTimeout = errors.New("operation timed out")

// APIError is a non-2xx response from a provider. Message holds the raw
// response body.
type APIError struct {
	StatusCode int
	Type       string
	Code       string
	Message    string
	RequestID  string
	RetryAfter string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("API Error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if retrying later could succeed. quorum never
// retries on its own; this only feeds messages and exit codes.
func (e *APIError) IsRetryable() bool {
	if e.StatusCode >= 500 && e.StatusCode < 600 {
		return true
	}
	return e.IsRateLimit()
}

// IsRateLimit returns true if this is a rate limit error.
func (e *APIError) IsRateLimit() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.Code == "rate_limit_exceeded"
}

// IsAuthError returns true if the credential was rejected.
func (e *APIError) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized ||
		e.StatusCode == http.StatusForbidden ||
		e.Code == "invalid_api_key"
}

// TimeoutError represents a timeout error with context.
type TimeoutError struct {
	Operation string
	Duration  time.Duration
	Cause     error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s timed out after %v: %v", e.Operation, e.Duration, e.Cause)
	}
	return fmt.Sprintf("%s timed out after %v", e.Operation, e.Duration)
}

// Unwrap returns the underlying error.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// Is implements error matching.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// ErrorHandler logs provider errors at a level matching their kind.
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{
		logger: logger.With("component", "error_handler"),
	}
}

// Handle logs err and returns it unchanged.
func (eh *ErrorHandler) Handle(err error, operation string, attrs ...any) error {
	if err == nil {
		return nil
	}

	logAttrs := append([]any{"operation", operation, "error", err.Error()}, attrs...)

	var apiErr *APIError
	var timeoutErr *TimeoutError
	switch {
	case errors.As(err, &apiErr):
		switch {
		case apiErr.IsRateLimit():
			eh.logger.Warn("rate limited", append(logAttrs, "retry_after", apiErr.RetryAfter)...)
		case apiErr.IsAuthError():
			eh.logger.Error("authentication failed", logAttrs...)
		case apiErr.IsRetryable():
			eh.logger.Warn("provider unavailable", logAttrs...)
		default:
			eh.logger.Error("API error", logAttrs...)
		}
	case errors.As(err, &timeoutErr):
		eh.logger.Warn("timeout error", logAttrs...)
	default:
		eh.logger.Error("error occurred", logAttrs...)
	}

	return err
}
