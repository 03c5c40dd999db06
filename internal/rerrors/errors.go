package rerrors

import (
	"errors"
	"fmt"
)

// RouxError is the structured error type returned by every fallible store
// engine operation. It carries enough context for the MCP tool layer to
// shape a JSON-RPC error envelope without re-deriving the failure kind from
// a message string.
type RouxError struct {
	Kind Kind

	// Message is the human-readable description of the failure.
	Message string

	// Details carries additional key/value context, e.g. {"id": "a/b.md"}.
	Details map[string]string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *RouxError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *RouxError) Unwrap() error {
	return e.Cause
}

// Is allows errors.Is(err, target) to match on Kind alone, so callers can
// compare against a zero-value &RouxError{Kind: rerrors.NodeNotFound}.
func (e *RouxError) Is(target error) bool {
	t, ok := target.(*RouxError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Retryable reports whether the operation that produced this error is
// worth retrying (true only for ProviderError).
func (e *RouxError) Retryable() bool {
	return e.Kind.retryable()
}

// WithDetail attaches a key/value detail and returns the error for
// chaining.
func (e *RouxError) WithDetail(key, value string) *RouxError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a RouxError of the given kind.
func New(kind Kind, message string, cause error) *RouxError {
	return &RouxError{Kind: kind, Message: message, Cause: cause}
}

// Invalid builds an InvalidInput error.
func Invalid(message string) *RouxError {
	return New(InvalidInput, message, nil)
}

// NotFound builds a NodeNotFound error for the given id.
func NotFound(id string) *RouxError {
	return New(NodeNotFound, fmt.Sprintf("node not found: %s", id), nil).WithDetail("id", id)
}

// Exists builds a NodeExists error for the given id.
func Exists(id string) *RouxError {
	return New(NodeExists, fmt.Sprintf("node already exists: %s", id), nil).WithDetail("id", id)
}

// LinkIntegrityErr builds a LinkIntegrity error for a rename blocked by
// incoming edges.
func LinkIntegrityErr(id string) *RouxError {
	return New(LinkIntegrity, fmt.Sprintf("cannot rename %s: other nodes link to it", id), nil).WithDetail("id", id)
}

// DimensionErr builds a DimensionMismatch error.
func DimensionErr(expected, got int) *RouxError {
	return New(DimensionMismatch, fmt.Sprintf("dimension mismatch: expected %d, got %d", expected, got), nil).
		WithDetail("expected", fmt.Sprintf("%d", expected)).
		WithDetail("got", fmt.Sprintf("%d", got))
}

// Provider wraps an underlying failure (I/O, parse, embedding capability)
// as a ProviderError.
func Provider(message string, cause error) *RouxError {
	return New(ProviderError, message, cause)
}

// InternalErr builds an Internal error for an invariant violation.
func InternalErr(message string, cause error) *RouxError {
	return New(Internal, message, cause)
}

// KindOf extracts the Kind from err, returning "" if err is not a
// *RouxError.
func KindOf(err error) Kind {
	var re *RouxError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}
