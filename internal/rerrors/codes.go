// Package rerrors provides the closed error taxonomy used across Roux's
// store engine: every fallible operation returns one of a fixed set of
// error kinds rather than an ad hoc error string.
package rerrors

// Kind is one of the error kinds in the store engine's taxonomy. The set is
// intentionally closed; new failure modes should map onto an existing kind
// rather than grow this list.
type Kind string

const (
	// InvalidInput indicates a malformed or out-of-range argument: a
	// negative limit, a non-string array element, a missing required
	// field, a create_node id that doesn't end in .md, and so on.
	InvalidInput Kind = "INVALID_INPUT"

	// NodeNotFound indicates an operation targeted a non-existent id.
	NodeNotFound Kind = "NODE_NOT_FOUND"

	// NodeExists indicates create_node would collide with an existing
	// real (non-ghost) node.
	NodeExists Kind = "NODE_EXISTS"

	// LinkIntegrity indicates a rename was attempted on a node that has
	// incoming edges from other nodes.
	LinkIntegrity Kind = "LINK_INTEGRITY"

	// DimensionMismatch indicates a vector operation was attempted
	// against an incompatible dimension.
	DimensionMismatch Kind = "DIMENSION_MISMATCH"

	// ProviderError indicates an underlying I/O, parse, or capability
	// failure, including "semantic strategy requires embedding
	// provider".
	ProviderError Kind = "PROVIDER_ERROR"

	// Internal indicates an assertion or invariant violation. It always
	// indicates a bug in the engine, never bad input.
	Internal Kind = "INTERNAL"
)

// retryable reports whether errors of this kind are worth retrying. Only
// ProviderError (network/IO-shaped failures from the embedding provider)
// is ever retryable; everything else is a property of the input or current
// state and retrying changes nothing.
func (k Kind) retryable() bool {
	return k == ProviderError
}
