package errs

import (
	"errors"
	"fmt"
)

// Kind categorizes pipeline errors.
type Kind string

const (
	// Unknown represents an unclassified error.
	Unknown Kind = "unknown"
	// InvalidURL means the input could not be normalized into an http(s) URL.
	InvalidURL Kind = "invalid_url"
	// DNSUnavailable means the target host did not resolve.
	DNSUnavailable Kind = "dns_unavailable"
	// NetworkError covers connection failures, timeouts, redirect loops and oversized bodies.
	NetworkError Kind = "network_error"
	// HTTPError means the target answered with a status that cannot be analyzed.
	HTTPError Kind = "http_error"
	// NonHTMLContent means the target did not serve an HTML document.
	NonHTMLContent Kind = "non_html"
	// FactorAnalysisFailure means a single scorer failed; it never aborts an analysis.
	FactorAnalysisFailure Kind = "factor_failure"
)

// Error carries a category, a user-facing message and the original cause.
type Error struct {
	Kind       Kind
	StatusCode int // HTTP status returned by the target, when there was one
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New returns an *Error of the given kind.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf reports the Kind of err, or Unknown when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// MessageOf returns the user-facing message of err without its cause.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
