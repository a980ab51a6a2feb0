package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by where it originated and how it propagates
type Kind string

const (
	// KindValidation is malformed operator input, rejected before any network call.
	KindValidation Kind = "VALIDATION"
	// KindTransport is a network or connection failure.
	KindTransport Kind = "TRANSPORT"
	// KindDecode is a malformed payload on an otherwise healthy exchange.
	KindDecode Kind = "DECODE"
	// KindServer is a well-formed error response from the safety backend.
	KindServer Kind = "SERVER"
)

// Error wraps an operation, a human-facing message and the underlying error.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs an Error of the given kind.
func New(kind Kind, op, msg string, err error) error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// Validation builds a VALIDATION error.
func Validation(op, msg string) error {
	return New(KindValidation, op, msg, nil)
}

// Transport builds a TRANSPORT error.
func Transport(op string, err error) error {
	return New(KindTransport, op, "transport failure", err)
}

// Decode builds a DECODE error.
func Decode(op string, err error) error {
	return New(KindDecode, op, "malformed payload", err)
}

// Server builds a SERVER error carrying the backend's message verbatim.
func Server(op, msg string) error {
	return New(KindServer, op, msg, nil)
}

// KindOf returns the kind of the first Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the human-facing message of the first Error in err's chain,
// falling back to err.Error().
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
