package requests

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	vfs "github.com/themodernway/themodernway-server-core-sub001"
	"github.com/themodernway/themodernway-server-core-sub001/adapters"
	"github.com/themodernway/themodernway-server-core-sub001/filesystem"
	"github.com/themodernway/themodernway-server-core-sub001/internal/mocks"
)

func mountTest(t *testing.T, writable bool) *filesystem.Storage {
	t.Helper()
	medium := afero.NewMemMapFs()
	require.NoError(t, medium.MkdirAll("/srv", 0o755))
	s, err := filesystem.Mount(filesystem.Options{
		Name:     "seed",
		BasePath: "/srv",
		Medium:   medium,
		Writable: writable,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func content(t *testing.T, s *filesystem.Storage, path string) string {
	t.Helper()
	n, err := s.Root().File(path)
	require.NoError(t, err)
	rc, err := n.Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func fileReq(path string, sources ...vfs.Source) *vfs.FileRequest {
	return &vfs.FileRequest{
		NodeRequest: vfs.NodeRequest{Path: path, Type: vfs.FileNodeType, UUID: "id-" + path},
		Sources:     sources,
	}
}

func dirReq(path string) *vfs.DirRequest {
	return &vfs.DirRequest{NodeRequest: vfs.NodeRequest{Path: path, Type: vfs.DirNodeType, UUID: "id-" + path}}
}

func TestApply(t *testing.T) {
	t.Parallel()

	s := mountTest(t, true)
	// file listed before its folder still lands inside it
	reqs := []vfs.Request{
		fileReq("/docs/a.txt", vfs.Source{Resource: adapters.BytesResource("alpha")}),
		dirReq("/docs/empty"),
	}

	results := Apply(context.Background(), s.Root(), reqs)

	require.Len(t, results, 2)
	assert.Empty(t, Failed(results))
	assert.Equal(t, "/docs/empty", results[0].Path)
	assert.IsType(t, &filesystem.FolderNode{}, results[0].Node)
	assert.Equal(t, "id-/docs/a.txt", results[1].UUID)
	assert.Equal(t, "alpha", content(t, s, "/docs/a.txt"))
}

func TestApply_SourcePriority(t *testing.T) {
	t.Parallel()

	s := mountTest(t, true)
	broken := &mocks.MockResource{}
	broken.On("Open", mock.Anything).Return(nil, errors.New("unreachable"))

	reqs := []vfs.Request{fileReq("/a.txt",
		vfs.Source{Resource: adapters.BytesResource("third"), Priority: 3},
		vfs.Source{Resource: broken, Priority: 1},
		vfs.Source{Resource: adapters.BytesResource("second"), Priority: 2},
	)}

	results := Apply(context.Background(), s.Root(), reqs)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "second", content(t, s, "/a.txt"))
	broken.AssertNumberOfCalls(t, "Open", 1)
}

func TestApply_Failures(t *testing.T) {
	t.Parallel()

	t.Run("all sources fail", func(t *testing.T) {
		s := mountTest(t, true)
		broken := &mocks.MockResource{}
		broken.On("Open", mock.Anything).Return(nil, errors.New("unreachable"))

		results := Apply(context.Background(), s.Root(), []vfs.Request{
			fileReq("/a.txt", vfs.Source{Resource: broken}),
			fileReq("/b.txt", vfs.Source{Resource: adapters.BytesResource("b")}),
		})

		failed := Failed(results)
		require.Len(t, failed, 1)
		assert.ErrorIs(t, failed[0].Err, ErrNoSource)
		assert.ErrorContains(t, failed[0].Err, "unreachable")
		assert.Nil(t, failed[0].Node)
		assert.Equal(t, "b", content(t, s, "/b.txt"), "later requests still run")
	})

	t.Run("read-only storage", func(t *testing.T) {
		s := mountTest(t, false)
		results := Apply(context.Background(), s.Root(), []vfs.Request{
			dirReq("/x"),
			fileReq("/y.txt", vfs.Source{Resource: adapters.BytesResource("y")}),
		})
		require.Len(t, Failed(results), 2)
		for _, r := range results {
			assert.ErrorIs(t, r.Err, filesystem.ErrReadOnly)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		s := mountTest(t, true)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		results := Apply(ctx, s.Root(), []vfs.Request{dirReq("/x")})
		assert.ErrorIs(t, results[0].Err, context.Canceled)
	})

	t.Run("source read fails mid copy", func(t *testing.T) {
		s := mountTest(t, true)
		res := &mocks.MockResource{}
		res.On("Open", mock.Anything).Return(io.NopCloser(io.MultiReader(strings.NewReader("part"), errReader{})), nil)

		results := Apply(context.Background(), s.Root(), []vfs.Request{fileReq("/p.txt", vfs.Source{Resource: res})})
		require.Error(t, results[0].Err)
		exists, err := s.Root().Find("/p.txt")
		require.NoError(t, err)
		assert.Nil(t, exists)
	})
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }
