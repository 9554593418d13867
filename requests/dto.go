package requests

import (
	vfs "github.com/themodernway/themodernway-server-core-sub001"
)

// NodeRequestDTO is the JSON representation of [vfs.NodeRequest]
type NodeRequestDTO struct {
	Path string              `json:"path"`
	Type vfs.NodeRequestType `json:"type"`
	UUID *string             `json:"uuid,omitempty"` // Optional, generated when missing
}

// FileRequestDTO is the JSON representation of [vfs.FileRequest]
type FileRequestDTO struct {
	NodeRequestDTO
	Sources []SourceConfigDTO `json:"sources"`
}

// DirRequestDTO is the JSON representation of [vfs.DirRequest]
type DirRequestDTO struct {
	NodeRequestDTO
}

// SourceConfigDTO is the JSON representation of static [vfs.Source] fields
//
// Additional fields depend on the "type" value:
//
// Ex. For type="http" (see [adapters.HTTPSource]):
//
//	URL     string            `json:"url"`
//	Method  *string           `json:"method,omitempty"`
//	Headers map\[string\]string `json:"headers,omitempty"`
//
// See adapters package for built-ins complete field specifications.
type SourceConfigDTO struct {
	Type     string `json:"type"`
	Priority *int   `json:"priority,omitempty"` // Lower number = higher priority, defaults to array index
}
