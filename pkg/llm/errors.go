package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// ErrorKind classifies a failed model call
type ErrorKind string

const (
	KindRateLimit  ErrorKind = "rate_limit"
	KindTimeout    ErrorKind = "timeout"
	KindParseError ErrorKind = "parse_error"
	KindAPIError   ErrorKind = "api_error"
	KindUnknown    ErrorKind = "unknown"
)

// ErrExhaustedRetries is wrapped by the terminal rate-limit failure of the gateway backend
var ErrExhaustedRetries = errors.New("rate limit retries exhausted")

// CallError is the typed failure returned by every Invoker backend
type CallError struct {
	Kind       ErrorKind
	Provider   string
	Message    string
	StatusCode int
	// ResetHint is how long the provider asked us to wait; zero when absent
	ResetHint time.Duration
	Err       error
}

func (e *CallError) Error() string {
	var sb strings.Builder
	if e.Provider != "" {
		sb.WriteString(e.Provider)
		sb.WriteString(" ")
	}
	sb.WriteString(string(e.Kind))
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	return sb.String()
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind of err, or KindUnknown for foreign errors
func KindOf(err error) ErrorKind {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// IsRateLimited reports whether err is a rate-limit failure
func IsRateLimited(err error) bool {
	return KindOf(err) == KindRateLimit
}

// classifyTransportError maps an http.Client error onto a CallError
func classifyTransportError(provider string, err error) *CallError {
	kind := KindUnknown
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &CallError{
		Kind:     kind,
		Provider: provider,
		Message:  fmt.Sprintf("request failed: %v", err),
		Err:      err,
	}
}
