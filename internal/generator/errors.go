package generator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Kind classifies a generation failure and decides whether retrying can
// help. Transient conditions (rate limits, upstream outages, timeouts,
// network faults) are retryable; everything else is terminal.
type Kind string

const (
	KindRateLimit   Kind = "rate_limit"
	KindServerError Kind = "server_error"
	KindTimeout     Kind = "timeout"
	KindNetwork     Kind = "network_error"
	KindAuth        Kind = "auth_error"
	KindBadRequest  Kind = "bad_request"
	KindUnknown     Kind = "unknown"
)

// Retryable reports whether another attempt could plausibly succeed.
func (k Kind) Retryable() bool {
	switch k {
	case KindRateLimit, KindServerError, KindTimeout, KindNetwork:
		return true
	}
	return false
}

// GenerationError wraps the final failure of a generation attempt sequence.
type GenerationError struct {
	Kind     Kind
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed (%s) after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Classify maps an error from the completion client to a failure kind.
// API status codes take priority; otherwise timeouts and network faults
// are detected from the error chain, with a message scan as last resort.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return KindRateLimit
		case apiErr.StatusCode >= 500:
			return KindServerError
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			return KindAuth
		case apiErr.StatusCode == http.StatusBadRequest:
			return KindBadRequest
		}
		return KindUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindNetwork
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota"):
		return KindRateLimit
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return KindTimeout
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host") || strings.Contains(msg, "connection reset"):
		return KindNetwork
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "api key"):
		return KindAuth
	}
	return KindUnknown
}
