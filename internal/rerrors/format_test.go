package rerrors

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatJSON_RendersRouxError(t *testing.T) {
	re := NotFound("missing.md")

	raw, err := FormatJSON(re)
	require.NoError(t, err)

	var got jsonError
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.Equal(t, "NODE_NOT_FOUND", got.Kind)
	assert.Equal(t, "missing.md", got.Details["id"])
	assert.False(t, got.Retryable)
}

func TestFormatJSON_WrapsPlainErrorAsInternal(t *testing.T) {
	raw, err := FormatJSON(errors.New("unexpected panic"))
	require.NoError(t, err)

	var got jsonError
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.Equal(t, "INTERNAL", got.Kind)
	assert.Equal(t, "unexpected panic", got.Message)
}

func TestFormatJSON_Nil(t *testing.T) {
	raw, err := FormatJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))
}

func TestFormatForLog_IncludesDetailsAndCause(t *testing.T) {
	re := DimensionErr(768, 384)

	attrs := FormatForLog(re)

	assert.Equal(t, "DIMENSION_MISMATCH", attrs["kind"])
	assert.Equal(t, "768", attrs["detail_expected"])
	assert.Equal(t, "384", attrs["detail_got"])
}

func TestFormatForLog_PlainErrorFallsBackToErrorString(t *testing.T) {
	attrs := FormatForLog(errors.New("boom"))
	assert.Equal(t, "boom", attrs["error"])
}

func TestFormatForLog_Nil(t *testing.T) {
	assert.Nil(t, FormatForLog(nil))
}
