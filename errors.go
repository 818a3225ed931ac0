package tripledb

import (
	"errors"
	"fmt"
)

// Kind classifies an Error so callers can branch on failure mode without
// string-matching messages.
type Kind string

const (
	// KindInvalidInput marks a malformed query, unknown operator, or
	// non-string attribute name.
	KindInvalidInput Kind = "invalid_input"
	// KindLookupFailed marks a LookupRef that could not be resolved to
	// exactly one entity id.
	KindLookupFailed Kind = "lookup_failed"
	// KindStorageError marks a durable read or write failure in the
	// triple log.
	KindStorageError Kind = "storage_error"
	// KindNotAuthenticated marks an operation requiring auth invoked
	// without a session.
	KindNotAuthenticated Kind = "not_authenticated"
	// KindAuthError marks a rejection from the remote auth endpoint.
	KindAuthError Kind = "auth_error"
	// KindNetworkError marks a duplex channel that is unavailable; it is
	// non-fatal and retried in the background.
	KindNetworkError Kind = "network_error"
	// KindProtocolError marks a malformed inbound frame; the connection
	// resets.
	KindProtocolError Kind = "protocol_error"
)

// Error is the typed error surfaced to library callers. The public API
// never unwinds via panic/recover as control flow; every fallible
// operation returns an *Error (or nil) explicitly.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, tripledb.KindLookupFailed) style checks work by
// comparing Kind when the target is itself a *Error with only Kind set.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

func newErr(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// errorKind returns the Kind of err if it is (or wraps) a *Error, and
// KindStorageError otherwise — the conservative default for unexpected
// failures bubbling up from the triple log.
func errorKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorageError
}
