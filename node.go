package vfs

import "time"

// Metadata keys of the default node document
const (
	MetaPath         = "path"
	MetaSize         = "size"
	MetaLastModified = "lastModified"
	MetaContentType  = "contentType"
	MetaMode         = "mode"
)

// Metadata is the opaque document describing one node. Its serialization
// is left to consumers.
type Metadata map[string]any

// Path returns the virtual path entry or "" if absent
func (m Metadata) Path() string {
	s, _ := m[MetaPath].(string)
	return s
}

// Size returns the size entry or 0 if absent
func (m Metadata) Size() int64 {
	n, _ := m[MetaSize].(int64)
	return n
}

// LastModified returns the modification time entry or the zero time
func (m Metadata) LastModified() time.Time {
	t, _ := m[MetaLastModified].(time.Time)
	return t
}

// ContentType returns the MIME type entry or "" if absent
func (m Metadata) ContentType() string {
	s, _ := m[MetaContentType].(string)
	return s
}

// Mode returns the three character mode string, i.e. "drw" or "-r-"
func (m Metadata) Mode() string {
	s, _ := m[MetaMode].(string)
	return s
}

// ModeString builds the "d|-", "r|-", "w|-" triplet used in [Metadata]
func ModeString(folder, readable, writable bool) string {
	b := []byte("---")
	if folder {
		b[0] = 'd'
	}
	if readable {
		b[1] = 'r'
	}
	if writable {
		b[2] = 'w'
	}
	return string(b)
}
