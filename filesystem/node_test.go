package filesystem

import (
	"bytes"
	"errors"
	"io"
	"path"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vfs "github.com/themodernway/themodernway-server-core-sub001"
	"github.com/themodernway/themodernway-server-core-sub001/internal/mocks"
	"github.com/themodernway/themodernway-server-core-sub001/paths"
)

func fileNode(t *testing.T, s *Storage, name string) Node {
	t.Helper()
	n, err := s.Root().File(name)
	require.NoError(t, err)
	return n
}

func TestNode_Names(t *testing.T) {
	t.Parallel()

	s := mountTest(t, nil)
	n := fileNode(t, s, "reports//archive.tar.gz")

	assert.Equal(t, "/reports/archive.tar.gz", n.Path())
	assert.Equal(t, "/srv/content/reports/archive.tar.gz", n.AbsolutePath())
	assert.Equal(t, "archive.tar.gz", n.Name())
	assert.Equal(t, "archive.tar", n.BaseName())
	assert.Equal(t, "gz", n.Extension())
	assert.Same(t, s, n.Storage())

	root := s.Root()
	assert.Equal(t, "", root.Name())
	assert.Equal(t, testBase, root.AbsolutePath())
}

func TestNode_AbsolutePathRoundTrip(t *testing.T) {
	t.Parallel()

	s := mountTest(t, nil)
	for _, v := range []string{"/", "/a", "/a/b.txt", "/reports/q1.csv", "/C:foo", "/a/C:foo", "/a/~b"} {
		n := fileNode(t, s, v)
		assert.Equal(t, paths.Normalize(testBase+v), n.AbsolutePath())
		assert.Equal(t, v, n.Path())
	}
}

func TestNode_Attributes(t *testing.T) {
	t.Parallel()

	medium := afero.NewMemMapFs()
	s := mountTest(t, medium)
	writeFile(t, medium, "/d.txt", "data")
	writeFile(t, medium, "/.secret", "data")
	require.NoError(t, medium.MkdirAll(path.Join(testBase, "folder"), 0o755))

	tests := []struct {
		name string
		want Attributes
	}{
		{"/d.txt", Attributes{Exists: true, Readable: true, Writable: true, File: true}},
		{"/.secret", Attributes{Exists: true, Hidden: true, Readable: true, Writable: true, File: true}},
		{"/folder", Attributes{Exists: true, Readable: true, Writable: true, Folder: true}},
		{"/missing", Attributes{}},
		{"/", Attributes{Exists: true, Readable: true, Writable: true, Folder: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs, err := fileNode(t, s, tt.name).Attributes()
			require.NoError(t, err)
			assert.Equal(t, tt.want, attrs)
		})
	}
}

func TestNode_Predicates(t *testing.T) {
	t.Parallel()

	medium := afero.NewMemMapFs()
	s := mountTest(t, medium)
	writeFile(t, medium, "/d.txt", "data")

	n := fileNode(t, s, "/d.txt")
	for name, pred := range map[string]func() (bool, error){
		"exists":   n.Exists,
		"readable": n.IsReadable,
		"writable": n.IsWritable,
		"file":     n.IsFile,
	} {
		ok, err := pred()
		require.NoError(t, err, name)
		assert.True(t, ok, name)
	}
	for name, pred := range map[string]func() (bool, error){
		"hidden": n.IsHidden,
		"folder": n.IsFolder,
	} {
		ok, err := pred()
		require.NoError(t, err, name)
		assert.False(t, ok, name)
	}
}

func TestNode_ProbeFailure(t *testing.T) {
	t.Parallel()

	medium := newCountingFs()
	s := mountTest(t, medium)
	ioErr := errors.New("device gone")
	medium.failStat[path.Join(testBase, "bad.txt")] = ioErr

	n := fileNode(t, s, "/bad.txt")

	attrs, err := n.Attributes()
	require.ErrorIs(t, err, ErrProbe)
	require.ErrorIs(t, err, ioErr, "the probe cause must be retained")
	assert.Equal(t, Attributes{}, attrs)

	_, err = n.Exists()
	assert.ErrorIs(t, err, ErrProbe)
	_, err = n.Open()
	assert.ErrorIs(t, err, ErrProbe)
	_, err = n.Size()
	assert.ErrorIs(t, err, ErrProbe)
}

func TestNode_AttributesPreferred(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		preferred bool
		stats     int64
	}{
		// exists, readable, hidden and file checks of one Open call
		{"one snapshot per operation", true, 1},
		{"probe per check", false, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			medium := newCountingFs()
			s := mountTest(t, medium, func(o *Options) { o.AttributesPreferred = tt.preferred })
			writeFile(t, medium, "/d.txt", "data")
			n := fileNode(t, s, "/d.txt")

			medium.stats.Store(0)
			rc, err := n.Open()
			require.NoError(t, err)
			require.NoError(t, rc.Close())
			assert.Equal(t, tt.stats, medium.stats.Load())

			// a later operation never reuses the earlier snapshot
			require.NoError(t, medium.Remove(n.AbsolutePath()))
			exists, err := n.Exists()
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}

func TestNode_ReadGuards(t *testing.T) {
	t.Parallel()

	medium := afero.NewMemMapFs()
	s := mountTest(t, medium)
	writeFile(t, medium, "/locked.txt", "data")
	writeFile(t, medium, "/.hidden", "data")
	writeFile(t, medium, "/.locked-hidden", "data")
	require.NoError(t, medium.Chmod(path.Join(testBase, "locked.txt"), 0o200))
	require.NoError(t, medium.Chmod(path.Join(testBase, ".locked-hidden"), 0o200))

	tests := []struct {
		name string
		want error
	}{
		{"/missing.txt", ErrNotFound},
		{"/locked.txt", ErrNotReadable},
		{"/.hidden", ErrHidden},
		// unreadable is reported before hidden
		{"/.locked-hidden", ErrNotReadable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := fileNode(t, s, tt.name)

			_, err := n.Open()
			assert.ErrorIs(t, err, tt.want)
			_, err = n.BufferedReader()
			assert.ErrorIs(t, err, tt.want)
			_, err = n.Lines()
			assert.ErrorIs(t, err, tt.want)
			_, err = n.WriteTo(io.Discard)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNode_FolderReadsFail(t *testing.T) {
	t.Parallel()

	medium := afero.NewMemMapFs()
	s := mountTest(t, medium)
	require.NoError(t, medium.MkdirAll(path.Join(testBase, "folder"), 0o755))

	n := fileNode(t, s, "/folder")
	require.IsType(t, &FolderNode{}, n)

	_, err := n.Open()
	assert.ErrorIs(t, err, ErrNotFile)
	assert.Contains(t, err.Error(), "can't read folder")
	_, err = n.BufferedReader()
	assert.ErrorIs(t, err, ErrNotFile)
	_, err = n.Lines()
	assert.ErrorIs(t, err, ErrNotFile)
	_, err = n.WriteTo(io.Discard)
	assert.ErrorIs(t, err, ErrNotFile)
}

func TestNode_Read(t *testing.T) {
	t.Parallel()

	medium := afero.NewMemMapFs()
	s := mountTest(t, medium)
	writeFile(t, medium, "/notes.txt", "first\r\n\nthird")
	n := fileNode(t, s, "/notes.txt")

	t.Run("open", func(t *testing.T) {
		rc, err := n.Open()
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "first\r\n\nthird", string(data))
	})

	t.Run("buffered reader", func(t *testing.T) {
		r, err := n.BufferedReader()
		require.NoError(t, err)
		defer r.Close()
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, "first\r\n", line)
	})

	t.Run("lines", func(t *testing.T) {
		lines, err := n.Lines()
		require.NoError(t, err)
		var got []string
		for line, err := range lines {
			require.NoError(t, err)
			got = append(got, line)
		}
		assert.Equal(t, []string{"first", "", "third"}, got)
	})

	t.Run("lines stop early", func(t *testing.T) {
		lines, err := n.Lines()
		require.NoError(t, err)
		var got []string
		for line := range lines {
			got = append(got, line)
			break
		}
		assert.Equal(t, []string{"first"}, got)
	})

	t.Run("write to", func(t *testing.T) {
		var buf bytes.Buffer
		written, err := n.WriteTo(&buf)
		require.NoError(t, err)
		assert.EqualValues(t, 13, written)
		assert.Equal(t, "first\r\n\nthird", buf.String())
	})
}

func TestNode_SizeAndLastModified(t *testing.T) {
	t.Parallel()

	medium := afero.NewMemMapFs()
	s := mountTest(t, medium)
	writeFile(t, medium, "/d.txt", "12345")
	modified := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, medium.Chtimes(path.Join(testBase, "d.txt"), modified, modified))

	size, err := fileNode(t, s, "/d.txt").Size()
	require.NoError(t, err)
	assert.EqualValues(t, 5, size)

	mtime, err := fileNode(t, s, "/d.txt").LastModified()
	require.NoError(t, err)
	assert.True(t, modified.Equal(mtime))

	size, err = fileNode(t, s, "/missing").Size()
	require.NoError(t, err)
	assert.Zero(t, size)

	mtime, err = fileNode(t, s, "/missing").LastModified()
	require.NoError(t, err)
	assert.True(t, mtime.IsZero())

	size, err = s.Root().Size()
	require.NoError(t, err)
	assert.Zero(t, size, "folders report no size")
}

func TestNode_ContentType(t *testing.T) {
	t.Parallel()

	s := mountTest(t, nil)
	ct, err := fileNode(t, s, "/reports/q1.csv").ContentType()
	require.NoError(t, err)
	assert.Equal(t, "text/csv", ct)

	resolver := &mocks.MockContentTypeResolver{}
	resolver.On("ContentType", "/x.bin").Return("application/x-test").Once()
	custom := mountTest(t, nil, func(o *Options) { o.ContentTypes = resolver })

	ct, err = fileNode(t, custom, "/x.bin").ContentType()
	require.NoError(t, err)
	assert.Equal(t, "application/x-test", ct)
	resolver.AssertExpectations(t)
}

func TestNode_Metadata(t *testing.T) {
	t.Parallel()

	medium := afero.NewMemMapFs()
	s := mountTest(t, medium)
	writeFile(t, medium, "/reports/q1.csv", "a,b\n1,2\n")

	md, err := fileNode(t, s, "/reports/q1.csv").Metadata()
	require.NoError(t, err)
	assert.Equal(t, "/reports/q1.csv", md.Path())
	assert.EqualValues(t, 8, md.Size())
	assert.Equal(t, "text/csv", md.ContentType())
	assert.Equal(t, "-rw", md.Mode())
	assert.False(t, md.LastModified().IsZero())

	md, err = fileNode(t, s, "/reports").Metadata()
	require.NoError(t, err)
	assert.Equal(t, "drw", md.Mode())

	s.SetWritable(false)
	md, err = fileNode(t, s, "/reports/q1.csv").Metadata()
	require.NoError(t, err)
	assert.Equal(t, "-r-", md.Mode())
}

func TestNode_Metadata_Factory(t *testing.T) {
	t.Parallel()

	var seen []Node
	factory := MetadataFunc(func(n Node) (vfs.Metadata, error) {
		seen = append(seen, n)
		return vfs.Metadata{vfs.MetaPath: n.Path(), "owner": "ops"}, nil
	})
	medium := afero.NewMemMapFs()
	s := mountTest(t, medium, func(o *Options) { o.Metadata = factory })
	require.NoError(t, medium.MkdirAll(path.Join(testBase, "dir"), 0o755))

	dir := fileNode(t, s, "/dir")
	md, err := dir.Metadata()
	require.NoError(t, err)
	assert.Equal(t, "ops", md["owner"])
	assert.Equal(t, "/dir", md.Path())
	require.Len(t, seen, 1)
	assert.IsType(t, &FolderNode{}, seen[0], "factory must see the folder variant")

	require.NoError(t, s.Close())
	_, err = dir.Metadata()
	assert.ErrorIs(t, err, ErrStorageClosed)
	assert.Len(t, seen, 1, "factory is not consulted while closed")
}

func TestNode_DriveLikeNames(t *testing.T) {
	t.Parallel()

	medium := afero.NewMemMapFs()
	s := mountTest(t, medium)
	writeFile(t, medium, "/foo", "plain")

	created, err := s.Root().CreateFromBytes("/C:foo", []byte("drive"))
	require.NoError(t, err)
	assert.Equal(t, "/C:foo", created.Path())
	assert.Equal(t, testBase+"/C:foo", created.AbsolutePath())

	data, err := afero.ReadFile(medium, path.Join(testBase, "C:foo"))
	require.NoError(t, err)
	assert.Equal(t, "drive", string(data))

	require.NoError(t, fileNode(t, s, "/C:foo").Delete())
	data, err = afero.ReadFile(medium, path.Join(testBase, "foo"))
	require.NoError(t, err)
	assert.Equal(t, "plain", string(data), "deleting /C:foo must leave /foo alone")
}

func TestNode_Delete(t *testing.T) {
	t.Parallel()

	medium := afero.NewMemMapFs()
	s := mountTest(t, medium)
	writeFile(t, medium, "/d.txt", "data")
	writeFile(t, medium, "/.hidden", "data")

	n := fileNode(t, s, "/d.txt")
	require.NoError(t, n.Delete())
	found, err := s.Root().Find("/d.txt")
	require.NoError(t, err)
	assert.Nil(t, found)

	assert.ErrorIs(t, fileNode(t, s, "/.hidden").Delete(), ErrHidden)
	assert.ErrorIs(t, fileNode(t, s, "/missing").Delete(), ErrDeleteFailed)
	assert.ErrorIs(t, s.Root().Delete(), ErrDeleteFailed)

	require.NoError(t, medium.MkdirAll(path.Join(testBase, "empty"), 0o755))
	require.NoError(t, fileNode(t, s, "/empty").Delete())
	exists, err := afero.DirExists(medium, path.Join(testBase, "empty"))
	require.NoError(t, err)
	assert.False(t, exists)
}
