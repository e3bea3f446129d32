package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeIdempotent(t *testing.T) {
	cases := []string{"/a/b/../c", "a/./b//c/", "/../../etc", "", "."}
	for _, c := range cases {
		once := Normalize("/home/user", c)
		twice := Normalize("/home/user", once)
		assert.Equal(t, once, twice, "normalize should be idempotent for %q", c)
	}
}

func TestNormalizeEmptyResolvesToCwd(t *testing.T) {
	assert.Equal(t, "/home/user", Normalize("/home/user", ""))
}

func TestNormalizeDotDotPopsSegments(t *testing.T) {
	assert.Equal(t, "/home", Normalize("/home/user", ".."))
	assert.Equal(t, "/etc", Normalize("/home/user", "../../etc"))
	assert.Equal(t, "/", Normalize("/home/user", "../../../../../.."))
}

func TestSeededLayout(t *testing.T) {
	fs := NewSeeded()
	assert.Equal(t, "/home/user", fs.GetCurrentDirectory())
	assert.True(t, fs.IsDirectory("/bin"))
	assert.True(t, fs.IsDirectory("/tmp"))
	assert.True(t, fs.IsDirectory("/etc"))
	assert.True(t, fs.IsDirectory("/home/user/documents"))
	assert.True(t, fs.IsFile("/home/user/README.md"))

	content, err := fs.ReadFile("README.md")
	require.NoError(t, err)
	assert.Contains(t, content, "Welcome to moo-dang shell!")
}

func TestWriteReadRoundTrip(t *testing.T) {
	fs := NewSeeded()
	require.NoError(t, fs.WriteFile("/tmp/in.txt", "alpha\nbeta\ngamma"))
	got, err := fs.ReadFile("/tmp/in.txt")
	require.NoError(t, err)
	assert.Equal(t, "alpha\nbeta\ngamma", got)
}

func TestListDirectorySorted(t *testing.T) {
	fs := NewSeeded()
	require.NoError(t, fs.WriteFile("/tmp/z.txt", ""))
	require.NoError(t, fs.WriteFile("/tmp/a.txt", ""))
	names, err := fs.ListDirectory("/tmp")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "z.txt"}, names)
}

func TestChangeDirectoryFailsOnMissing(t *testing.T) {
	fs := NewSeeded()
	_, err := fs.ChangeDirectory("/nonexistent")
	require.Error(t, err)
	assert.Equal(t, "/home/user", fs.GetCurrentDirectory())
}

func TestChangeDirectoryFailsOnFile(t *testing.T) {
	fs := NewSeeded()
	_, err := fs.ChangeDirectory("/home/user/README.md")
	require.Error(t, err)
}

func TestWriteFileFailsOnMissingParent(t *testing.T) {
	fs := NewSeeded()
	err := fs.WriteFile("/nope/file.txt", "x")
	require.Error(t, err)
}

func TestCreateDirectoryFailsWhenExists(t *testing.T) {
	fs := NewSeeded()
	require.NoError(t, fs.CreateDirectory("/tmp/sub"))
	err := fs.CreateDirectory("/tmp/sub")
	require.Error(t, err)
}

func TestRemoveNonExistentFails(t *testing.T) {
	fs := NewSeeded()
	err := fs.Remove("/tmp/nope")
	require.Error(t, err)
}

func TestRemoveNonEmptyDirectoryFails(t *testing.T) {
	fs := NewSeeded()
	require.NoError(t, fs.CreateDirectory("/tmp/sub"))
	require.NoError(t, fs.WriteFile("/tmp/sub/file.txt", "x"))
	err := fs.Remove("/tmp/sub")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not empty")
}

func TestGetSizeRecursiveForDirectories(t *testing.T) {
	fs := NewSeeded()
	require.NoError(t, fs.WriteFile("/tmp/a.txt", "12345"))
	require.NoError(t, fs.WriteFile("/tmp/b.txt", "123"))
	size, err := fs.GetSize("/tmp")
	require.NoError(t, err)
	assert.Equal(t, 8, size)
}

func TestGetSizeMissingFails(t *testing.T) {
	fs := NewSeeded()
	_, err := fs.GetSize("/nope")
	require.Error(t, err)
}
