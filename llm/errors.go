package llm

import (
	"errors"
	"fmt"
)

// ErrorKind classifies provider failures so callers can distinguish
// rate limiting from authentication problems from outages.
type ErrorKind string

const (
	ErrorKindRateLimit   ErrorKind = "rate_limit"
	ErrorKindAuth        ErrorKind = "auth"
	ErrorKindUnavailable ErrorKind = "unavailable"
	ErrorKindAPI         ErrorKind = "api"
)

// Error is a classified failure from an LLM provider.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("llm provider error (%s, status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("llm provider error (%s): %s", e.Kind, e.Message)
}

// NewError creates an Error classified from an HTTP status code.
func NewError(statusCode int, message string) *Error {
	return &Error{
		Kind:       kindFromStatus(statusCode),
		StatusCode: statusCode,
		Message:    message,
	}
}

func kindFromStatus(statusCode int) ErrorKind {
	switch {
	case statusCode == 429:
		return ErrorKindRateLimit
	case statusCode == 401 || statusCode == 403:
		return ErrorKindAuth
	case statusCode >= 500:
		return ErrorKindUnavailable
	default:
		return ErrorKindAPI
	}
}

// IsRateLimit reports whether the error is a provider rate limit error.
func IsRateLimit(err error) bool {
	return errorKind(err) == ErrorKindRateLimit
}

// IsAuth reports whether the error is a provider authentication error.
func IsAuth(err error) bool {
	return errorKind(err) == ErrorKindAuth
}

// IsUnavailable reports whether the provider was unreachable or failing.
func IsUnavailable(err error) bool {
	return errorKind(err) == ErrorKindUnavailable
}

func errorKind(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
