package filesystem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributes_IsValidForReading(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		attrs Attributes
		want  bool
	}{
		{"readable file", Attributes{Exists: true, File: true, Readable: true}, true},
		{"missing", Attributes{}, false},
		{"folder", Attributes{Exists: true, Folder: true, Readable: true}, false},
		{"unreadable", Attributes{Exists: true, File: true}, false},
		{"hidden", Attributes{Exists: true, File: true, Readable: true, Hidden: true}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.attrs.IsValidForReading(), tt.name)
	}
}

func TestAttributes_OsMedium(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "dir"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "dir", "f.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(base, ".env"), []byte("x"), 0o644))

	s, err := Mount(Options{Name: "os", BasePath: filepath.ToSlash(base)})
	require.NoError(t, err)

	attrs, err := fileNode(t, s, "/dir/f.txt").Attributes()
	require.NoError(t, err)
	assert.True(t, attrs.IsValidForReading())
	assert.False(t, attrs.Writable, "read-only storage never reports writable")

	attrs, err = fileNode(t, s, "/dir").Attributes()
	require.NoError(t, err)
	assert.True(t, attrs.Folder)
	assert.False(t, attrs.File)

	attrs, err = fileNode(t, s, "/.env").Attributes()
	require.NoError(t, err)
	assert.True(t, attrs.Hidden)
	assert.False(t, attrs.IsValidForReading())

	s.SetWritable(true)
	attrs, err = fileNode(t, s, "/dir/f.txt").Attributes()
	require.NoError(t, err)
	assert.True(t, attrs.Writable)

	attrs, err = s.Root().Attributes()
	require.NoError(t, err)
	assert.False(t, attrs.Hidden, "the root is never hidden")
}
