package adapters

import (
	"context"
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vfs "github.com/themodernway/themodernway-server-core-sub001"
)

func readAll(t *testing.T, res vfs.Resource) string {
	t.Helper()
	rc, err := res.Open(context.Background())
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestFileResource(t *testing.T) {
	t.Parallel()

	medium := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(medium, "/src/a.txt", []byte("alpha"), 0o644))
	r := NewRegistry()
	RegisterFile(r, medium)

	t.Run("reads path", func(t *testing.T) {
		res, err := r.NewResource([]byte(`{"type":"file","path":"/src/a.txt"}`))
		require.NoError(t, err)
		assert.Equal(t, "alpha", readAll(t, res))
		// every open is a fresh reader
		assert.Equal(t, "alpha", readAll(t, res))
	})

	t.Run("missing path field", func(t *testing.T) {
		_, err := r.NewResource([]byte(`{"type":"file"}`))
		assert.ErrorContains(t, err, "requires a path")
	})

	t.Run("missing file fails on open", func(t *testing.T) {
		res, err := r.NewResource([]byte(`{"type":"file","path":"/src/none.txt"}`))
		require.NoError(t, err)
		_, err = res.Open(context.Background())
		assert.Error(t, err)
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewFileResource(medium, "/src/a.txt").Open(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestInlineResource(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	RegisterInline(r)

	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"plain", `{"type":"inline","content":"hello"}`, "hello", false},
		{"empty", `{"type":"inline"}`, "", false},
		{"base64", `{"type":"inline","content":"aGVsbG8=","encoding":"base64"}`, "hello", false},
		{"bad base64", `{"type":"inline","content":"%%%","encoding":"base64"}`, "", true},
		{"unknown encoding", `{"type":"inline","content":"x","encoding":"rot13"}`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.NewResource([]byte(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, readAll(t, res))
		})
	}
}
