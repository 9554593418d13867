package adapters

import (
	"net/http"

	"github.com/spf13/afero"
)

// NOTE: If build bloat becomes a concern for unused adapters
// look into build tags i.e. +build !nohttp

type BuiltInType = string

const (
	HTTPType   BuiltInType = "http"
	FileType   BuiltInType = "file"
	InlineType BuiltInType = "inline"
)

// RegisterBuiltins registers all built-in providers by default
// or only the specific ones if keys are provided.
// File sources are read from the local OS filesystem.
func RegisterBuiltins(r *Registry, types ...BuiltInType) {
	if len(types) == 0 {
		// Include all built-in providers here when adding implementations
		types = append(types, HTTPType, FileType, InlineType)
	}

	for _, key := range types {
		switch key {
		case HTTPType:
			RegisterHTTP(r, http.DefaultClient)
		case FileType:
			RegisterFile(r, afero.NewOsFs())
		case InlineType:
			RegisterInline(r)
		}
	}
}

// NewDefaultRegistry returns a registry holding every built-in provider
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterBuiltins(r)
	return r
}
