package proxy

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind classifies a proxy transport failure. Unreachable and Timeout are
// transient and worth retrying; Rejected and Unsupported are terminal for
// the action that hit them.
type Kind int

const (
	KindUnreachable Kind = iota
	KindTimeout
	KindRejected
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindUnreachable:
		return "unreachable"
	case KindTimeout:
		return "timeout"
	case KindRejected:
		return "rejected"
	case KindUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Error wraps a transport failure with its classification and the operation
// that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("proxy %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient.
func (e *Error) Retryable() bool {
	return e.Kind == KindUnreachable || e.Kind == KindTimeout
}

// IsRetryable reports whether err is a transient proxy failure.
func IsRetryable(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Retryable()
}

// classify maps a raw transport error onto the failure taxonomy.
func classify(op string, err error) *Error {
	kind := KindRejected

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.Is(err, context.Canceled):
		kind = KindUnreachable
	default:
		if s, ok := status.FromError(err); ok {
			switch s.Code() {
			case codes.Unavailable:
				kind = KindUnreachable
			case codes.DeadlineExceeded:
				kind = KindTimeout
			case codes.Unimplemented:
				kind = KindUnsupported
			}
		}
	}

	return &Error{Kind: kind, Op: op, Err: err}
}
