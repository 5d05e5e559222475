package classify

import (
	"errors"
	"fmt"
)

// Kind tags the failure class of an Error.
type Kind int

const (
	KindInput Kind = iota + 1
	KindLookup
	KindRemote
	KindDecode
	KindCancelled
	KindTranspile
)

// Code returns the stable error code reported to clients.
func (k Kind) Code() string {
	switch k {
	case KindInput:
		return "INVALID_INPUT"
	case KindLookup:
		return "JOB_LOOKUP_FAILED"
	case KindRemote:
		return "REMOTE_ERROR"
	case KindDecode:
		return "RESULT_DECODE_FAILED"
	case KindCancelled:
		return "JOB_CANCELLED"
	case KindTranspile:
		return "TRANSPILE_FAILED"
	default:
		return "INTERNAL_ERROR"
	}
}

// Error is returned by Submit and reported in Check results.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Code returns the client-facing code of the error kind.
func (e *Error) Code() string { return e.Kind.Code() }

// Retryable reports whether repeating the operation may succeed. Only
// failures talking to the remote service qualify.
func (e *Error) Retryable() bool { return e.Kind == KindRemote }

// InputError reports a feature vector of the wrong length.
type InputError struct {
	Expected int
	Actual   int
}

func (e *InputError) Error() string {
	return fmt.Sprintf("expected %d features, got %d", e.Expected, e.Actual)
}

// KindOf returns the kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}

func wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
