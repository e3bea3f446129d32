package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpAndRestoreRoundTrip(t *testing.T) {
	fs := NewSeeded()
	require.NoError(t, fs.WriteFile("/home/user/notes.txt", "hello"))

	entries := fs.Dump()
	require.NotEmpty(t, entries)

	restored := New()
	require.NoError(t, restored.Restore(entries))

	content, err := restored.ReadFile("/home/user/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", content)
	assert.True(t, restored.IsDirectory("/bin"))
}

func TestDumpOrdersParentsBeforeChildren(t *testing.T) {
	fs := NewSeeded()
	entries := fs.Dump()
	seenDirs := map[string]bool{"": true}
	for _, e := range entries {
		parent, _ := Split(e.Path)
		if parent == "/" {
			parent = ""
		}
		assert.True(t, seenDirs[parent], "parent of %s not seen yet", e.Path)
		if e.IsDir {
			seenDirs[e.Path] = true
		}
	}
}
