package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies collector failures. The orchestrator retries
// retryable kinds once and marks the platform failed otherwise; it never
// lets a single platform's failure abort the whole collection.
type ErrorKind string

const (
	ErrRateLimited  ErrorKind = "rate_limited"
	ErrAuthInvalid  ErrorKind = "auth_invalid"
	ErrNetwork      ErrorKind = "network_error"
	ErrNotSupported ErrorKind = "not_supported"
)

// CollectorError wraps a platform fetch failure with its classification.
type CollectorError struct {
	Platform Platform
	Kind     ErrorKind
	Err      error
}

func (e *CollectorError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Platform, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Platform, e.Kind, e.Err)
}

func (e *CollectorError) Unwrap() error { return e.Err }

// NewCollectorError builds a classified fetch error.
func NewCollectorError(platform Platform, kind ErrorKind, err error) *CollectorError {
	return &CollectorError{Platform: platform, Kind: kind, Err: err}
}

// Retryable reports whether err is a transient collector failure worth one
// retry (rate limiting or a network error). Auth failures and unsupported
// modes never recover within a single call.
func Retryable(err error) bool {
	var ce *CollectorError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Kind == ErrRateLimited || ce.Kind == ErrNetwork
}

// ErrorKindOf extracts the classification from err, defaulting to
// ErrNetwork for unclassified failures.
func ErrorKindOf(err error) ErrorKind {
	var ce *CollectorError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ErrNetwork
}
