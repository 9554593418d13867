package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/afero"
	vfs "github.com/themodernway/themodernway-server-core-sub001"
)

// FileSource copies a file from a local medium
type FileSource struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// RegisterFile registers a provider under "file" reading from medium
func RegisterFile(r *Registry, medium afero.Fs) {
	r.Register(FileType, ProviderFunc(func(raw []byte) (vfs.Resource, error) {
		var src FileSource
		if err := json.Unmarshal(raw, &src); err != nil {
			return nil, err
		}
		if src.Path == "" {
			return nil, fmt.Errorf("file source requires a path")
		}
		return &FileResource{medium: medium, path: src.Path}, nil
	}))
}

// FileResource implements [vfs.Resource] over a path of an afero medium
type FileResource struct {
	medium afero.Fs
	path   string
}

func NewFileResource(medium afero.Fs, path string) *FileResource {
	return &FileResource{medium: medium, path: path}
}

func (f *FileResource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.medium.Open(f.path)
}
