package email

import (
	"errors"
	"fmt"
)

// Reason classifies a failure so callers can tell a rejected credential
// apart from a dead socket without string matching.
type Reason string

const (
	// ReasonConfiguration covers a missing or malformed required field
	// after full resolution, e.g. no sender address and no way to derive
	// one. Raised before any network activity.
	ReasonConfiguration Reason = "CONFIGURATION"

	// ReasonPrompt means the interactive password prompt was needed but
	// unavailable, e.g. stdin is not a terminal.
	ReasonPrompt Reason = "CREDENTIAL_PROMPT"

	// ReasonAttachment means a listed attachment path could not be read.
	// Raised during composition, before any network activity.
	ReasonAttachment Reason = "ATTACHMENT_READ"

	// ReasonTransport covers connection, TLS handshake, and
	// protocol-level socket errors.
	ReasonTransport Reason = "TRANSPORT"

	// ReasonAuth means the server rejected the credentials.
	ReasonAuth Reason = "AUTHENTICATION"

	// ReasonUnsupportedPort means the configured port is neither 465 nor
	// 587, the only transport modes this client speaks.
	ReasonUnsupportedPort Reason = "UNSUPPORTED_PORT"
)

var _ error = &Error{}

// Error is the error type returned by this package. Reason is always
// set; Cause holds the underlying error, if any.
type Error struct {
	Reason  Reason
	Message string
	Cause   error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%s: %s", e.Reason, e.Message)
	if e.Cause != nil {
		s += fmt.Sprintf(": %s", e.Cause)
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(reason Reason, message string, cause error) *Error {
	return &Error{
		Reason:  reason,
		Message: message,
		Cause:   cause,
	}
}

// ReasonOf returns the Reason carried by err, or the empty string if
// err was not produced by this package.
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
