package edit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackgen-cli/compose-edit/internal/models"
)

func intPtr(i int) *int { return &i }

func TestSectionDelta(t *testing.T) {
	s := NewSection(map[string]int{"x": 1, "y": 2})

	require.True(t, s.Remove("y"))
	s.Put("z", 3)

	assert.Equal(t, map[string]*int{"y": nil, "z": intPtr(3)}, s.Delta())
	assert.NotContains(t, s.Delta(), "x")
}

func TestSectionCopyOnFirstWrite(t *testing.T) {
	base := map[string]int{"x": 1}
	s := NewSection(base)

	v, ok := s.Get("x")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.False(t, s.Dirty())
	assert.Empty(t, s.Delta())

	s.Put("x", 5)
	assert.Equal(t, 1, base["x"], "base is never written")
	v, _ = s.Get("x")
	assert.Equal(t, 5, v)
	assert.Equal(t, map[string]*int{"x": intPtr(5)}, s.Delta())
}

func TestSectionPutSameValueIsStillAChange(t *testing.T) {
	s := NewSection(map[string]int{"x": 1})
	s.Put("x", 1)
	assert.Equal(t, map[string]*int{"x": intPtr(1)}, s.Delta())
}

func TestSectionAddThenRemoveIsClean(t *testing.T) {
	s := NewSection(map[string]int{"x": 1})
	s.Put("tmp", 9)
	s.Remove("tmp")

	assert.False(t, s.Dirty())
	assert.False(t, s.Remove("missing"))
}

func TestSectionRename(t *testing.T) {
	s := NewSection(map[string]int{"x": 1, "y": 2})

	require.NoError(t, s.Rename("x", "w"))
	assert.Equal(t, map[string]*int{"x": nil, "w": intPtr(1)}, s.Delta())
	assert.Equal(t, []string{"w", "y"}, s.Names())

	assert.Error(t, s.Rename("missing", "q"))
	assert.Error(t, s.Rename("w", "y"))
}

func TestSectionDiscard(t *testing.T) {
	s := NewSection(map[string]int{"x": 1})
	s.Put("z", 1)
	s.Remove("x")
	rev := s.Revision()

	s.Discard()
	assert.False(t, s.Dirty())
	assert.Equal(t, []string{"x"}, s.Names())
	assert.Greater(t, s.Revision(), rev)
}

func TestSectionRebase(t *testing.T) {
	s := NewSection(map[string]int{"a": 1, "b": 2, "c": 3})
	s.Put("a", 10)
	s.Remove("b")

	// remote: c changed, d added, b untouched
	s.Rebase(map[string]int{"a": 1, "b": 2, "c": 30, "d": 4})

	assert.Equal(t, map[string]*int{"a": intPtr(10), "b": nil}, s.Delta())
	c, _ := s.Get("c")
	assert.Equal(t, 30, c)
	assert.Equal(t, []string{"a", "c", "d"}, s.Names())
}

func TestSectionDeltaWireFormat(t *testing.T) {
	s := NewSection(map[string]models.VolumeConfig{"old": {}})
	s.Remove("old")
	s.Put("data", models.VolumeConfig{Driver: "local"})

	changes := models.ComposeChanges{VolumeChanges: s.Delta()}
	data, err := json.Marshal(changes)
	require.NoError(t, err)
	assert.JSONEq(t, `{"volume_changes":{"old":null,"data":{"driver":"local"}}}`, string(data))
}
