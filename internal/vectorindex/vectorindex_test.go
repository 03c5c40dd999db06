package vectorindex

import (
	"context"
	"testing"

	"github.com/alexgetty/roux/internal/rerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestIndex(t *testing.T) *VectorIndex {
	t.Helper()
	vi, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = vi.Close() })
	return vi
}

func TestVectorIndex_StoreAndSearch_FindsExactMatch(t *testing.T) {
	vi := openTestIndex(t)
	ctx := context.Background()

	require.NoError(t, vi.Store(ctx, "a", []float32{1, 0, 0}, "m1"))
	require.NoError(t, vi.Store(ctx, "b", []float32{0, 1, 0}, "m1"))

	results, err := vi.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.InDelta(t, 0.0, results[0].Distance, 1e-9)
}

func TestVectorIndex_Store_RejectsEmptyVector(t *testing.T) {
	vi := openTestIndex(t)

	err := vi.Store(context.Background(), "a", nil, "m1")

	require.Error(t, err)
	assert.Equal(t, rerrors.InvalidInput, rerrors.KindOf(err))
}

func TestVectorIndex_Store_RejectsDimensionMismatch(t *testing.T) {
	vi := openTestIndex(t)
	ctx := context.Background()
	require.NoError(t, vi.Store(ctx, "a", []float32{1, 2, 3}, "m1"))

	err := vi.Store(ctx, "b", []float32{1, 2}, "m1")

	require.Error(t, err)
	assert.Equal(t, rerrors.DimensionMismatch, rerrors.KindOf(err))
}

func TestVectorIndex_Store_OverwriteSameIDAllowsSameDimension(t *testing.T) {
	vi := openTestIndex(t)
	ctx := context.Background()
	require.NoError(t, vi.Store(ctx, "a", []float32{1, 2, 3}, "m1"))

	err := vi.Store(ctx, "a", []float32{4, 5, 6}, "m2")

	require.NoError(t, err)
	model, ok, err := vi.GetModel(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "m2", model)
}

func TestVectorIndex_Search_LimitZeroOrNegativeReturnsEmpty(t *testing.T) {
	vi := openTestIndex(t)
	ctx := context.Background()
	require.NoError(t, vi.Store(ctx, "a", []float32{1, 0}, "m1"))

	results, err := vi.Search(ctx, []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = vi.Search(ctx, []float32{1, 0}, -5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestVectorIndex_Search_EmptyIndexReturnsEmpty(t *testing.T) {
	vi := openTestIndex(t)

	results, err := vi.Search(context.Background(), []float32{1, 0}, 5)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestVectorIndex_Search_DimensionMismatchAgainstIndex(t *testing.T) {
	vi := openTestIndex(t)
	ctx := context.Background()
	require.NoError(t, vi.Store(ctx, "a", []float32{1, 2, 3}, "m1"))

	_, err := vi.Search(ctx, []float32{1, 2}, 5)

	require.Error(t, err)
	assert.Equal(t, rerrors.DimensionMismatch, rerrors.KindOf(err))
}

func TestVectorIndex_Search_TieBreaksByIDAscending(t *testing.T) {
	vi := openTestIndex(t)
	ctx := context.Background()

	require.NoError(t, vi.Store(ctx, "z", []float32{0, 1}, "m1"))
	require.NoError(t, vi.Store(ctx, "a", []float32{0, 1}, "m1"))

	results, err := vi.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "z", results[1].ID)
}

func TestVectorIndex_Search_ReturnsOnlyKBestUnderBound(t *testing.T) {
	vi := openTestIndex(t)
	ctx := context.Background()

	require.NoError(t, vi.Store(ctx, "near", []float32{1, 0}, "m1"))
	require.NoError(t, vi.Store(ctx, "mid", []float32{1, 1}, "m1"))
	require.NoError(t, vi.Store(ctx, "far", []float32{-1, 0}, "m1"))

	results, err := vi.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "near", results[0].ID)
}

func TestVectorIndex_DeleteRemovesEmbedding(t *testing.T) {
	vi := openTestIndex(t)
	ctx := context.Background()
	require.NoError(t, vi.Store(ctx, "a", []float32{1, 0}, "m1"))

	require.NoError(t, vi.Delete(ctx, "a"))

	has, err := vi.HasEmbedding(ctx, "a")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestVectorIndex_Count(t *testing.T) {
	vi := openTestIndex(t)
	ctx := context.Background()
	require.NoError(t, vi.Store(ctx, "a", []float32{1, 0}, "m1"))
	require.NoError(t, vi.Store(ctx, "b", []float32{0, 1}, "m1"))

	n, err := vi.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
