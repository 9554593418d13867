// Package vfs contains the collaborator contracts shared by the virtual
// filesystem packages: content type resolution, byte sources for writes and
// the metadata document produced for nodes.
package vfs

import (
	"context"
	"io"
)

// ContentTypeResolver maps a virtual path to a MIME type.
// Implementations must be safe for concurrent use.
type ContentTypeResolver interface {
	ContentType(path string) string
}

// Resource is an abstract byte source that can be copied into a storage.
// Each call to Open returns a fresh reader that the caller must close.
type Resource interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// ResourceFunc adapts a plain function to [Resource]
type ResourceFunc func(ctx context.Context) (io.ReadCloser, error)

func (f ResourceFunc) Open(ctx context.Context) (io.ReadCloser, error) {
	return f(ctx)
}
