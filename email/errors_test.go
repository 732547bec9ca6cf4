package email

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorString(t *testing.T) {
	cause := errors.New("connection reset by peer")
	err := newError(ReasonTransport, "can't connect to smtp.example.com:465", cause)

	s := err.Error()
	if !strings.Contains(s, string(ReasonTransport)) {
		t.Errorf("expected the reason in %q", s)
	}
	if !strings.Contains(s, "connection reset by peer") {
		t.Errorf("expected the cause in %q", s)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := newError(ReasonAuth, "rejected", cause)
	if !errors.Is(err, cause) {
		t.Error("expected the error to unwrap to its cause")
	}
}

func TestReasonOf(t *testing.T) {
	err := newError(ReasonAttachment, "can't read attachment", nil)

	if got := ReasonOf(err); got != ReasonAttachment {
		t.Errorf("expected %v, got %v", ReasonAttachment, got)
	}
	// The reason survives wrapping by callers.
	wrapped := fmt.Errorf("sending weekly report: %w", err)
	if got := ReasonOf(wrapped); got != ReasonAttachment {
		t.Errorf("expected %v through a wrapped error, got %v", ReasonAttachment, got)
	}
	if got := ReasonOf(errors.New("unrelated")); got != "" {
		t.Errorf("expected no reason for a foreign error, got %v", got)
	}
}
