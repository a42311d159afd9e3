package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscussionDraftSnapsBack(t *testing.T) {
	d := NewDiscussionDraft(map[string]int{"b": 40, "c": 60})

	require.NoError(t, d.Set("b", 45))
	assert.Equal(t, "b", d.Editing())
	assert.Equal(t, map[string]int{"b": 45, "c": 60}, d.Placements())

	require.NoError(t, d.Set("c", 70))
	assert.Equal(t, "c", d.Editing())
	assert.Equal(t, map[string]int{"b": 40, "c": 70}, d.Placements())

	require.NoError(t, d.Set("c", 72))
	assert.Equal(t, map[string]int{"b": 40, "c": 72}, d.Placements())
}

func TestDiscussionDraftNewTarget(t *testing.T) {
	d := NewDiscussionDraft(map[string]int{"b": 40})
	require.NoError(t, d.Set("c", 10))
	require.NoError(t, d.Set("b", 41))
	assert.Equal(t, map[string]int{"b": 41}, d.Placements())
}

func TestDiscussionDraftRejectsRange(t *testing.T) {
	d := NewDiscussionDraft(map[string]int{"b": 40})
	assert.Error(t, d.Set("b", 0))
	assert.Empty(t, d.Editing())
}

func TestDiscussionDraftAlwaysValidRevision(t *testing.T) {
	snapshot := map[string]int{"b": 40, "c": 60, "d": 80}
	d := NewDiscussionDraft(snapshot)
	for _, target := range []string{"b", "c", "d", "b"} {
		require.NoError(t, d.Set(target, 99))
		assert.NoError(t, ValidateRevision(map[string]map[string]int{"a": snapshot}, "a", d.Placements()))
	}
}
