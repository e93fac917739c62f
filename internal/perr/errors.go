// Package perr defines the closed error-kind taxonomy the pipeline uses to
// classify every fallible operation. No component may swallow an error
// without first mapping it to one of these kinds.
package perr

import (
	"errors"
	"fmt"
)

// Kind is a closed enum of error classes. New kinds should be rare; prefer
// reusing an existing one over inventing a near-duplicate.
type Kind string

const (
	// Request-level.
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindNotReady     Kind = "not_ready"
	KindUnauthorized Kind = "unauthorized"

	// Per-source transient or configurational.
	KindRateLimited         Kind = "rate_limited"
	KindTimeout             Kind = "timeout"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindCredentialsInvalid  Kind = "credentials_invalid"
	KindMalformedResponse   Kind = "malformed_response"

	// Security.
	KindSecurityRejected Kind = "security_rejected"

	// Programming error / unexpected condition.
	KindInternal Kind = "internal"
)

// Error is a classified, wrapped error carrying the operation and source
// that produced it, so callers can log, retry, or surface it without
// re-parsing a message string.
type Error struct {
	Kind   Kind
	Op     string // e.g. "scheduler.fetch", "planner.plan"
	Source string // connector/source name, empty if not source-scoped
	Err    error
}

func (e *Error) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s[%s]: %s: %v", e.Op, e.Source, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New classifies err under kind for operation op. If err is nil, New
// returns nil so callers can write `return perr.New(...)` unconditionally
// after a function that returns (T, error).
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// NewFromSource is like New but also records the source-connector name.
func NewFromSource(kind Kind, op, source string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Source: source, Err: err}
}

// Is reports whether err (or any error it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, defaulting to KindInternal for any
// error that was never classified — an unclassified error reaching this
// point is itself a bug, but we still must not crash the caller.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}

// Transient reports whether an error of this kind is worth retrying
// per §4.4's retry policy.
func Transient(kind Kind) bool {
	switch kind {
	case KindTimeout, KindUpstreamUnavailable:
		return true
	default:
		return false
	}
}
