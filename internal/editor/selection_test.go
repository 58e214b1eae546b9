package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyClickReplaces(t *testing.T) {
	s := NewSelection()
	assert.True(t, s.ApplyClick("a", false))
	assert.True(t, s.ApplyClick("b", false))
	assert.Equal(t, []string{"b"}, s.IDs())
}

func TestApplyClickSameSingleSelectionNoChange(t *testing.T) {
	s := NewSelection()
	s.ApplyClick("a", false)
	assert.False(t, s.ApplyClick("a", false))
}

func TestApplyClickMultiToggles(t *testing.T) {
	s := NewSelection()
	assert.True(t, s.ApplyClick("a", true))
	assert.True(t, s.ApplyClick("b", true))
	assert.Equal(t, []string{"a", "b"}, s.IDs())

	// Toggling off.
	assert.True(t, s.ApplyClick("a", true))
	assert.Equal(t, []string{"b"}, s.IDs())
}

func TestEqualIgnoresOrderAndDuplicates(t *testing.T) {
	s := NewSelection()
	s.Add("a")
	s.Add("b")

	assert.True(t, s.Equal([]string{"b", "a"}))
	assert.True(t, s.Equal([]string{"a", "b", "a"}))
	assert.False(t, s.Equal([]string{"a"}))
	assert.False(t, s.Equal([]string{"a", "b", "c"}))
}

func TestReplaceIsNoOpForEquivalentSet(t *testing.T) {
	s := NewSelection()
	s.Add("a")
	s.Add("b")

	assert.False(t, s.Replace([]string{"b", "a"}))
	assert.True(t, s.Replace([]string{"a", "c"}))
	assert.Equal(t, []string{"a", "c"}, s.IDs())
}

func TestClearAndRemove(t *testing.T) {
	s := NewSelection()
	assert.False(t, s.Clear())

	s.Add("a")
	s.Add("b")
	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))
	assert.True(t, s.Clear())
	assert.Zero(t, s.Len())
}

func TestPruneDropsMissingIDs(t *testing.T) {
	s := NewSelection()
	s.Add("a")
	s.Add("gone")

	changed := s.Prune(func(id string) bool { return id == "a" })
	assert.True(t, changed)
	assert.Equal(t, []string{"a"}, s.IDs())

	assert.False(t, s.Prune(func(string) bool { return true }))
}
