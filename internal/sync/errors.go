package sync

import "errors"

// Kind classifies a reconciliation failure.
type Kind string

const (
	// KindAuthRequired: reconciliation attempted with no signed-in principal.
	KindAuthRequired Kind = "AUTH_REQUIRED"
	// KindAuthRevoked: the principal's credentials no longer work.
	// Non-retryable; retrying a revoked credential cannot help.
	KindAuthRevoked Kind = "AUTH_REVOKED"
	// KindTransientNetwork: the remote was unreachable or temporarily
	// unavailable. Retryable within the bounded retry policy.
	KindTransientNetwork Kind = "TRANSIENT_NETWORK"
)

// Error is a typed reconciliation failure. Remote implementations wrap
// their transport errors in one of these so the reconciler can decide
// retry vs. abort without knowing the transport.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// NewTransient wraps err as a retryable network failure.
func NewTransient(msg string, err error) *Error {
	return &Error{Kind: KindTransientNetwork, Msg: msg, Err: err}
}

// NewAuthRevoked wraps err as a non-retryable credential failure.
func NewAuthRevoked(msg string, err error) *Error {
	return &Error{Kind: KindAuthRevoked, Msg: msg, Err: err}
}

// IsTransient reports whether err is retryable. Unclassified errors
// are treated as non-transient: retrying an unknown failure is how
// retry loops hide real bugs.
func IsTransient(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == KindTransientNetwork
}

// FailureKind extracts the Kind from err, or "" for unclassified errors.
func FailureKind(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
