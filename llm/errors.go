package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrService matches every *ServiceError via errors.Is.
var ErrService = errors.New("llm service error")

// ErrorKind classifies a service failure.
type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindCanceled    ErrorKind = "canceled"
	KindAuth        ErrorKind = "auth"
	KindRateLimit   ErrorKind = "rate_limit"
	KindMalformed   ErrorKind = "malformed"
	KindUnavailable ErrorKind = "unavailable"
	KindUnknown     ErrorKind = "unknown"
)

// ServiceError is a failed model call: transport errors, HTTP errors from
// the provider, and replies that carry no usable text.
type ServiceError struct {
	Provider string
	Kind     ErrorKind
	Status   int // HTTP status when the provider answered, else 0
	Err      error
}

func (e *ServiceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s error (HTTP %d): %v", e.Provider, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s error: %v", e.Provider, e.Kind, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrService) true for any ServiceError.
func (e *ServiceError) Is(target error) bool { return target == ErrService }

// newServiceError classifies err. status is the provider's HTTP status, or
// 0 when the call never got an answer.
func newServiceError(provider string, status int, err error) *ServiceError {
	kind := KindUnknown
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.Is(err, context.Canceled):
		kind = KindCanceled
	case status != 0:
		kind = kindForStatus(status)
	default:
		var netErr net.Error
		if errors.As(err, &netErr) {
			if netErr.Timeout() {
				kind = KindTimeout
			} else {
				kind = KindUnavailable
			}
		}
	}
	return &ServiceError{Provider: provider, Kind: kind, Status: status, Err: err}
}

func kindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout
	case status >= 500:
		return KindUnavailable
	case status >= 400:
		return KindMalformed
	default:
		return KindUnknown
	}
}

// malformed reports a reply that arrived but cannot be used.
func malformed(provider, format string, args ...any) *ServiceError {
	return &ServiceError{Provider: provider, Kind: KindMalformed, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of a ServiceError anywhere in err's chain, or "".
func KindOf(err error) ErrorKind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
