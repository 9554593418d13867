package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
	vfs "github.com/themodernway/themodernway-server-core-sub001"
)

// MockResource implements vfs.Resource for testing across packages
type MockResource struct {
	mock.Mock
}

func (m *MockResource) Open(ctx context.Context) (io.ReadCloser, error) {
	args := m.Called(ctx)

	// Handle function return types so each call can get a fresh reader
	if fn, ok := args.Get(0).(func(context.Context) io.ReadCloser); ok {
		return fn(ctx), args.Error(1)
	}

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

var _ vfs.Resource = (*MockResource)(nil)

// MockContentTypeResolver implements vfs.ContentTypeResolver
type MockContentTypeResolver struct {
	mock.Mock
}

func (m *MockContentTypeResolver) ContentType(path string) string {
	args := m.Called(path)
	return args.String(0)
}

var _ vfs.ContentTypeResolver = (*MockContentTypeResolver)(nil)

// MockContentCache records invalidations made by a storage
type MockContentCache struct {
	mock.Mock
}

func (m *MockContentCache) Remove(key string) bool {
	args := m.Called(key)
	return args.Bool(0)
}

// MockProvider builds resources from raw source descriptions
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) NewResource(raw []byte) (vfs.Resource, error) {
	args := m.Called(raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(vfs.Resource), args.Error(1)
}
