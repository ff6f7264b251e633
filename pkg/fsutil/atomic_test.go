package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "item.md")

	require.NoError(t, WriteFileAtomic(path, []byte("first"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("second"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestRemoveIfExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.md")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	removed, err := RemoveIfExists(path)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = RemoveIfExists(path)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestIsTempFile(t *testing.T) {
	assert.True(t, IsTempFile("/a/.msg.md.12345.tmp"))
	assert.False(t, IsTempFile("/a/msg.md"))
	assert.False(t, IsTempFile("/a/.hidden.md"))
}
