// Package errkind implements the error taxonomy shared across the hub: a
// small typed wrapper that carries a Kind alongside the wrapped error so
// upper layers (mainly the ingress HTTP handlers) can map to an HTTP status
// without string-matching error messages.
package errkind

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the taxonomy buckets of spec.md §7.
type Kind string

const (
	// KindValidation covers malformed input: bad webhook payloads, missing
	// required fields, unparsable JSON.
	KindValidation Kind = "validation"
	// KindNotFound covers missing entities: unknown channel, flow, KB, tool.
	KindNotFound Kind = "not_found"
	// KindConflict covers state conflicts: duplicate message, stale version.
	KindConflict Kind = "conflict"
	// KindUnavailable covers dependency failures: DB down, all providers
	// exhausted, queue unavailable.
	KindUnavailable Kind = "unavailable"
	// KindRateLimited covers throttling rejections.
	KindRateLimited Kind = "rate_limited"
	// KindUnauthorized covers auth failures: bad bearer token, bad webhook
	// signature.
	KindUnauthorized Kind = "unauthorized"
	// KindInternal covers anything else — a bug, not a caller mistake.
	KindInternal Kind = "internal"
)

// Error is a typed error that carries a Kind for status mapping.
type Error struct {
	Kind Kind
	Op   string // the operation that failed, e.g. "ingress.identify_channel"
	Err  error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, New(KindUnavailable, "", nil)) to test the kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// New wraps err with kind and an operation label.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Wrap is New with a formatted message instead of a wrapped error.
func Wrap(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

// KindOf returns the Kind of err if it (or something it wraps) is an
// *Error, otherwise KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Sentinels for errors.Is comparisons against well-known conditions.
var (
	ErrNoProviderAvailable      = New(KindUnavailable, "llmgateway", errors.New("no provider available"))
	ErrNoFlowMatched            = New(KindNotFound, "flowrouter", errors.New("no flow matched"))
	ErrChannelUnknown           = New(KindNotFound, "ingress", errors.New("channel not recognized"))
	ErrDuplicateMessage         = New(KindConflict, "ingress", errors.New("duplicate message"))
	ErrQueueDisabledForWhatsApp = New(KindValidation, "sendqueue", errors.New("USE_QUEUE_FOR_WHATSAPP is false: synchronous WhatsApp fallback is not supported"))
)
