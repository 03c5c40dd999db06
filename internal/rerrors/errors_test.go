package rerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouxError_Unwrap_PreservesCause(t *testing.T) {
	cause := errors.New("disk full")

	re := New(ProviderError, "embedding call failed", cause)

	require.NotNil(t, re)
	assert.Equal(t, cause, errors.Unwrap(re))
	assert.True(t, errors.Is(re, cause))
}

func TestRouxError_Error_FormatsByCause(t *testing.T) {
	withCause := New(Internal, "assertion failed", errors.New("index out of range"))
	assert.Equal(t, "INTERNAL: assertion failed: index out of range", withCause.Error())

	withoutCause := New(InvalidInput, "limit must be positive", nil)
	assert.Equal(t, "INVALID_INPUT: limit must be positive", withoutCause.Error())
}

func TestRouxError_Is_MatchesByKind(t *testing.T) {
	err1 := NotFound("a.md")
	err2 := NotFound("b.md")

	assert.True(t, errors.Is(err1, err2))
	assert.True(t, errors.Is(err1, &RouxError{Kind: NodeNotFound}))
}

func TestRouxError_Is_DoesNotMatchDifferentKinds(t *testing.T) {
	err1 := NotFound("a.md")
	err2 := Exists("a.md")

	assert.False(t, errors.Is(err1, err2))
}

func TestRouxError_WithDetail_AddsContext(t *testing.T) {
	re := Invalid("bad id").WithDetail("id", "../escape.md")

	assert.Equal(t, "../escape.md", re.Details["id"])
}

func TestConstructors_SetExpectedKindAndDetails(t *testing.T) {
	tests := []struct {
		name     string
		err      *RouxError
		wantKind Kind
	}{
		{"NotFound", NotFound("x.md"), NodeNotFound},
		{"Exists", Exists("x.md"), NodeExists},
		{"LinkIntegrityErr", LinkIntegrityErr("x.md"), LinkIntegrity},
		{"DimensionErr", DimensionErr(768, 384), DimensionMismatch},
		{"Provider", Provider("timeout", nil), ProviderError},
		{"InternalErr", InternalErr("bug", nil), Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantKind, tt.err.Kind)
		})
	}

	assert.Equal(t, "x.md", NotFound("x.md").Details["id"])
	assert.Equal(t, "768", DimensionErr(768, 384).Details["expected"])
	assert.Equal(t, "384", DimensionErr(768, 384).Details["got"])
}

func TestRetryable_OnlyProviderError(t *testing.T) {
	assert.True(t, Provider("flaky", nil).Retryable())
	assert.False(t, NotFound("x.md").Retryable())
	assert.False(t, Invalid("bad").Retryable())
}

func TestKindOf_ExtractsKindFromWrappedError(t *testing.T) {
	re := NotFound("x.md")
	wrapped := errors.Join(errors.New("context"), re)

	assert.Equal(t, NodeNotFound, KindOf(re))
	assert.Equal(t, NodeNotFound, KindOf(wrapped))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain error")))
}
