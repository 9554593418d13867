package cache

import (
	"bytes"
	"io"
	"time"
)

// CacheNode is an immutable snapshot of one file: its content and the
// attributes captured with it. It never reads the backing medium again.
type CacheNode struct {
	name        string
	path        string
	size        int64
	modified    time.Time
	contentType string
	data        []byte
}

func (n *CacheNode) Name() string {
	return n.name
}

// Path is the virtual path the snapshot was taken from
func (n *CacheNode) Path() string {
	return n.path
}

func (n *CacheNode) Size() int64 {
	return n.size
}

func (n *CacheNode) LastModified() time.Time {
	return n.modified
}

func (n *CacheNode) ContentType() string {
	return n.contentType
}

// Bytes returns a copy of the content
func (n *CacheNode) Bytes() []byte {
	return bytes.Clone(n.data)
}

// NewReader returns an independent reader over the content
func (n *CacheNode) NewReader() *bytes.Reader {
	return bytes.NewReader(n.data)
}

func (n *CacheNode) WriteTo(w io.Writer) (int64, error) {
	written, err := w.Write(n.data)
	return int64(written), err
}
