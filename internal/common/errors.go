// Package common defines shared constants and sentinel errors used across
// relaykeeper layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrorConflict signals that a concurrent writer already holds the
	// single-active-key slot for a user (unique-index violation on rotation).
	ErrorConflict = errors.New("conflict")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// ErrorPolicyViolation marks a broken call-site precondition, e.g. a
	// per-identity "create" sync issued before the key row exists. Never
	// retried, always surfaced to the immediate caller.
	ErrorPolicyViolation = errors.New("policy violation")
)
