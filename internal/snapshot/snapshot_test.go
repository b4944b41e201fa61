package snapshot

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), DirName))

	snap, err := m.Save("local/shop", "compose.yaml", []byte("services: {}\n"), "before rename")
	require.NoError(t, err)
	assert.Len(t, snap.ID, 26)
	assert.True(t, m.Exists(snap.ID))

	loaded, err := m.Load(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, "services: {}\n", loaded.Content)
	assert.Equal(t, "local/shop", loaded.Stack)
	assert.Equal(t, "before rename", loaded.Message)
}

func TestListNewestFirst(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), DirName))

	first, err := m.Save("s", "compose.yaml", []byte("a"), "")
	require.NoError(t, err)
	second, err := m.Save("s", "compose.yaml", []byte("b"), "")
	require.NoError(t, err)

	snaps, err := m.List()
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, second.ID, snaps[0].ID)
	assert.Equal(t, first.ID, snaps[1].ID)
}

func TestListMissingDir(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "absent"))
	snaps, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestDelete(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), DirName))
	snap, err := m.Save("s", "compose.yaml", []byte("a"), "")
	require.NoError(t, err)

	require.NoError(t, m.Delete(snap.ID))
	assert.False(t, m.Exists(snap.ID))
	assert.ErrorIs(t, m.Delete(snap.ID), ErrNotFound)

	_, err = m.Load(snap.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"01hx5", "01hx5"},
		{"../../etc/passwd", "__etc_passwd"},
		{"a b", "a_b"},
		{"...", "default"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeFilename(tt.in))
		})
	}
}
