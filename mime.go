package vfs

import (
	"mime"
	"path"
	"strings"
	"sync"
)

// DefaultContentType is returned when no mapping is known for an extension
const DefaultContentType = "application/octet-stream"

// builtinTypes covers the extensions served most often. The stdlib table is
// consulted after this one, so entries here win over /etc/mime.types.
var builtinTypes = map[string]string{
	".css":  "text/css",
	".csv":  "text/csv",
	".gif":  "image/gif",
	".htm":  "text/html",
	".html": "text/html",
	".ico":  "image/x-icon",
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".js":   "text/javascript",
	".json": "application/json",
	".md":   "text/markdown",
	".pdf":  "application/pdf",
	".png":  "image/png",
	".svg":  "image/svg+xml",
	".txt":  "text/plain",
	".xml":  "application/xml",
	".yaml": "application/yaml",
	".yml":  "application/yaml",
	".zip":  "application/zip",
}

// MimeTypes resolves content types from file extensions. Each Storage gets
// its own instance so overrides never leak between mounts.
type MimeTypes struct {
	mu        sync.RWMutex
	overrides map[string]string
}

var _ ContentTypeResolver = (*MimeTypes)(nil)

// NewMimeTypes creates a resolver with optional extension overrides.
// Keys may be given with or without the leading dot.
func NewMimeTypes(overrides map[string]string) *MimeTypes {
	m := &MimeTypes{overrides: make(map[string]string, len(overrides))}
	for ext, typ := range overrides {
		m.Set(ext, typ)
	}
	return m
}

// Set adds or replaces the mapping for one extension
func (m *MimeTypes) Set(ext, contentType string) {
	ext = normalizeExt(ext)
	if ext == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[ext] = contentType
}

// ContentType returns the MIME type for the path's extension, falling back to
// [DefaultContentType].
func (m *MimeTypes) ContentType(p string) string {
	ext := normalizeExt(path.Ext(p))
	if ext == "" {
		return DefaultContentType
	}
	m.mu.RLock()
	typ, ok := m.overrides[ext]
	m.mu.RUnlock()
	if ok {
		return typ
	}
	if typ, ok := builtinTypes[ext]; ok {
		return typ
	}
	if typ := mime.TypeByExtension(ext); typ != "" {
		// drop parameters such as "; charset=utf-8"
		if i := strings.IndexByte(typ, ';'); i >= 0 {
			typ = strings.TrimSpace(typ[:i])
		}
		return typ
	}
	return DefaultContentType
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
