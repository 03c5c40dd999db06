package watcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoalesce_NoPriorKeepsNewKind(t *testing.T) {
	result, keep := coalesce("", false, KindAdd)
	assert.True(t, keep)
	assert.Equal(t, KindAdd, result)
}

func TestCoalesce_AddThenChangeStaysAdd(t *testing.T) {
	result, keep := coalesce(KindAdd, true, KindChange)
	assert.True(t, keep)
	assert.Equal(t, KindAdd, result)
}

func TestCoalesce_AddThenUnlinkDropsEntirely(t *testing.T) {
	_, keep := coalesce(KindAdd, true, KindUnlink)
	assert.False(t, keep)
}

func TestCoalesce_ChangeThenAddBecomesAdd(t *testing.T) {
	result, keep := coalesce(KindChange, true, KindAdd)
	assert.True(t, keep)
	assert.Equal(t, KindAdd, result)
}

func TestCoalesce_ChangeThenUnlinkBecomesUnlink(t *testing.T) {
	result, keep := coalesce(KindChange, true, KindUnlink)
	assert.True(t, keep)
	assert.Equal(t, KindUnlink, result)
}

func TestCoalesce_UnlinkThenAddBecomesChange(t *testing.T) {
	result, keep := coalesce(KindUnlink, true, KindAdd)
	assert.True(t, keep)
	assert.Equal(t, KindChange, result)
}

func TestCoalesce_UnlinkThenChangeBecomesChange(t *testing.T) {
	result, keep := coalesce(KindUnlink, true, KindChange)
	assert.True(t, keep)
	assert.Equal(t, KindChange, result)
}

func TestCoalesce_UnlinkThenUnlinkStaysUnlink(t *testing.T) {
	result, keep := coalesce(KindUnlink, true, KindUnlink)
	assert.True(t, keep)
	assert.Equal(t, KindUnlink, result)
}

func TestCoalesce_AddThenAddStaysAdd(t *testing.T) {
	result, keep := coalesce(KindAdd, true, KindAdd)
	assert.True(t, keep)
	assert.Equal(t, KindAdd, result)
}

func TestCoalesce_ChangeThenChangeStaysChange(t *testing.T) {
	result, keep := coalesce(KindChange, true, KindChange)
	assert.True(t, keep)
	assert.Equal(t, KindChange, result)
}
