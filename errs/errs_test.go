package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("no such host")
	err := fmt.Errorf("stage: %w", New(DNSUnavailable, "Domain could not be resolved", cause))

	if got := KindOf(err); got != DNSUnavailable {
		t.Errorf("KindOf = %q, want %q", got, DNSUnavailable)
	}
	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to be reachable with errors.Is")
	}
	if got := KindOf(errors.New("plain")); got != Unknown {
		t.Errorf("KindOf(plain) = %q, want %q", got, Unknown)
	}
}

func TestErrorMessage(t *testing.T) {
	e := &Error{Kind: HTTPError, StatusCode: 503, Message: "Server error (503)"}
	if e.Error() != "Server error (503)" {
		t.Errorf("Error() = %q", e.Error())
	}

	e.Cause = errors.New("boom")
	if e.Error() != "Server error (503): boom" {
		t.Errorf("Error() = %q", e.Error())
	}
}

func TestMessageOf(t *testing.T) {
	wrapped := fmt.Errorf("stage: %w", New(HTTPError, "Server error (503)", errors.New("boom")))
	if got := MessageOf(wrapped); got != "Server error (503)" {
		t.Errorf("MessageOf = %q", got)
	}
	if got := MessageOf(errors.New("plain")); got != "plain" {
		t.Errorf("MessageOf = %q", got)
	}
	if got := MessageOf(nil); got != "" {
		t.Errorf("MessageOf(nil) = %q", got)
	}
}
