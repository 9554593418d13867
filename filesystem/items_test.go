package filesystem

import (
	"iter"
	"path"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectPaths(t *testing.T, items iter.Seq2[Node, error]) []string {
	t.Helper()
	var out []string
	for n, err := range items {
		require.NoError(t, err)
		out = append(out, n.Path())
	}
	return out
}

// tree builds /a/b.txt, /a/.hidden/c.txt, /a/sub/e.txt, /d.txt and /.dot
func tree(t *testing.T) *Storage {
	t.Helper()
	medium := afero.NewMemMapFs()
	s := mountTest(t, medium)
	writeFile(t, medium, "/a/b.txt", "b")
	writeFile(t, medium, "/a/.hidden/c.txt", "c")
	writeFile(t, medium, "/a/sub/e.txt", "e")
	writeFile(t, medium, "/d.txt", "d")
	writeFile(t, medium, "/.dot", "dot")
	return s
}

func TestFolder_Items_Policy(t *testing.T) {
	t.Parallel()

	s := tree(t)

	tests := []struct {
		name string
		opts []ItemOption
		want []string
	}{
		{"no options", nil, []string{"/a", "/d.txt"}},
		{"files", []ItemOption{ItemFile}, []string{"/d.txt"}},
		{"folders", []ItemOption{ItemFolder}, []string{"/a"}},
		{"files and folders", []ItemOption{ItemFile, ItemFolder}, []string{"/a", "/d.txt"}},
		{"recursive", []ItemOption{ItemRecursive}, []string{"/a", "/a/b.txt", "/a/sub", "/a/sub/e.txt", "/d.txt"}},
		{"recursive files", []ItemOption{ItemRecursive, ItemFile}, []string{"/a/b.txt", "/a/sub/e.txt", "/d.txt"}},
		{"recursive folders", []ItemOption{ItemRecursive, ItemFolder}, []string{"/a", "/a/sub"}},
		{"recursive all", []ItemOption{ItemRecursive, ItemFile, ItemFolder}, []string{"/a", "/a/b.txt", "/a/sub", "/a/sub/e.txt", "/d.txt"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := s.Root().Items(tt.opts...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, collectPaths(t, items))
		})
	}
}

func TestFolder_Items_HiddenSubtreePruned(t *testing.T) {
	t.Parallel()

	medium := afero.NewMemMapFs()
	s := mountTest(t, medium)
	writeFile(t, medium, "/a/b.txt", "b")
	writeFile(t, medium, "/a/.hidden/c.txt", "c")
	writeFile(t, medium, "/d.txt", "d")

	items, err := s.Root().Items(ItemRecursive, ItemFile)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a/b.txt", "/d.txt"}, collectPaths(t, items))
}

func TestFolder_Items_OnlyReachableNames(t *testing.T) {
	t.Parallel()

	medium := afero.NewMemMapFs()
	s := mountTest(t, medium)
	writeFile(t, medium, "/C:foo", "drive")
	writeFile(t, medium, "/~draft.txt", "tilde")
	writeFile(t, medium, "/a/~b", "inner")
	writeFile(t, medium, "/d.txt", "d")

	items, err := s.Root().Items(ItemRecursive, ItemFile)
	require.NoError(t, err)
	listed := collectPaths(t, items)
	assert.Equal(t, []string{"/C:foo", "/a/~b", "/d.txt"}, listed)

	// every listed path resolves back to the same node
	for _, p := range listed {
		n, err := s.Root().Find(p)
		require.NoError(t, err)
		require.NotNil(t, n, p)
		assert.Equal(t, p, n.Path())
		assert.Equal(t, testBase+p, n.AbsolutePath())
	}
}

func TestFolder_Items_Variants(t *testing.T) {
	t.Parallel()

	s := tree(t)
	items, err := s.Root().Items(ItemRecursive)
	require.NoError(t, err)
	for n, err := range items {
		require.NoError(t, err)
		folder, err := n.IsFolder()
		require.NoError(t, err)
		_, isFolderNode := n.(*FolderNode)
		assert.Equal(t, folder, isFolderNode, n.Path())
	}
}

func TestFolder_Items_Subfolder(t *testing.T) {
	t.Parallel()

	s := tree(t)
	n := fileNode(t, s, "/a")
	folder := n.(*FolderNode)

	items, err := folder.Items(ItemRecursive, ItemFile)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a/b.txt", "/a/sub/e.txt"}, collectPaths(t, items))
}

func TestFolder_Items_Lazy(t *testing.T) {
	t.Parallel()

	medium := afero.NewMemMapFs()
	s := mountTest(t, medium)
	writeFile(t, medium, "/one.txt", "1")

	items, err := s.Root().Items()
	require.NoError(t, err)

	// entries are read when iterating, and every iteration re-lists
	writeFile(t, medium, "/two.txt", "2")
	assert.Equal(t, []string{"/one.txt", "/two.txt"}, collectPaths(t, items))

	var first []string
	for n := range items {
		first = append(first, n.Path())
		break
	}
	assert.Equal(t, []string{"/one.txt"}, first)
}

func TestFolder_Items_Errors(t *testing.T) {
	t.Parallel()

	medium := afero.NewMemMapFs()
	s := mountTest(t, medium)
	writeFile(t, medium, "/a/b.txt", "b")
	require.NoError(t, medium.MkdirAll(path.Join(testBase, ".git"), 0o755))

	t.Run("hidden folder", func(t *testing.T) {
		_, err := fileNode(t, s, "/.git").(*FolderNode).Items()
		assert.ErrorIs(t, err, ErrHidden)
	})

	t.Run("missing folder", func(t *testing.T) {
		dir := s.folderAt(path.Join(testBase, "gone"), "/gone")
		_, err := dir.Items()
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("file as folder", func(t *testing.T) {
		dir := s.folderAt(path.Join(testBase, "a/b.txt"), "/a/b.txt")
		_, err := dir.Items()
		assert.ErrorIs(t, err, ErrNotFolder)
	})

	t.Run("closed while iterating", func(t *testing.T) {
		s := mountTest(t, nil)
		_, err := s.Root().Mkdirs("x")
		require.NoError(t, err)
		items, err := s.Root().Items(ItemRecursive)
		require.NoError(t, err)
		require.NoError(t, s.Close())

		var errs []error
		for _, err := range items {
			errs = append(errs, err)
		}
		require.Len(t, errs, 1)
		assert.ErrorIs(t, errs[0], ErrStorageClosed)
	})
}

func TestStorage_Scenario(t *testing.T) {
	t.Parallel()

	s := mountTest(t, nil)

	_, err := s.Root().CreateFromBytes("reports/q1.csv", []byte("a,b\n1,2\n"))
	require.NoError(t, err)

	n, err := s.Root().Find("/reports/q1.csv")
	require.NoError(t, err)
	require.NotNil(t, n)

	size, err := n.Size()
	require.NoError(t, err)
	assert.EqualValues(t, 8, size)

	ct, err := n.ContentType()
	require.NoError(t, err)
	assert.Contains(t, []string{"text/csv", "text/plain"}, ct)

	reports, err := s.Root().Find("reports")
	require.NoError(t, err)
	folder, ok := reports.(*FolderNode)
	require.True(t, ok)

	items, err := folder.Items()
	require.NoError(t, err)
	var names []string
	for item, err := range items {
		require.NoError(t, err)
		names = append(names, item.Name())
	}
	assert.Equal(t, []string{"q1.csv"}, names)
}
