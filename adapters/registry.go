// Package adapters turns source descriptions into [vfs.Resource] byte sources
// that can be written into a storage. Each description is a JSON object whose
// "type" field selects the registered [Provider].
package adapters

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/puzpuzpuz/xsync/v4"
	vfs "github.com/themodernway/themodernway-server-core-sub001"
)

var ErrUnknownType = errors.New("no provider registered for source type")

// Provider builds resources from raw source descriptions of one type.
// Implementations should handle shared state (clients, media) for the
// resources they create.
type Provider interface {
	NewResource(raw []byte) (vfs.Resource, error)
}

// ProviderFunc adapts a plain function to [Provider]
type ProviderFunc func(raw []byte) (vfs.Resource, error)

func (f ProviderFunc) NewResource(raw []byte) (vfs.Resource, error) {
	return f(raw)
}

// Registry maps source types to providers. It is safe for concurrent use.
type Registry struct {
	providers *xsync.Map[string, Provider]
}

func NewRegistry() *Registry {
	return &Registry{providers: xsync.NewMap[string, Provider]()}
}

// Register ties a provider to a "type" key. The first registration of a key
// wins and later ones are ignored.
func (r *Registry) Register(sourceType string, p Provider) {
	r.providers.LoadOrStore(sourceType, p)
}

// GetProvider returns the provider registered for sourceType
func (r *Registry) GetProvider(sourceType string) (Provider, error) {
	p, ok := r.providers.Load(sourceType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, sourceType)
	}
	return p, nil
}

// Types lists the registered source types
func (r *Registry) Types() []string {
	types := make([]string, 0, r.providers.Size())
	r.providers.Range(func(k string, _ Provider) bool {
		types = append(types, k)
		return true
	})
	return types
}

// NewResource picks the provider by the "type" field of raw and lets it
// build the resource.
func (r *Registry) NewResource(raw []byte) (vfs.Resource, error) {
	var meta struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("failed to determine source type: %w", err)
	}
	if meta.Type == "" {
		return nil, fmt.Errorf("source is missing the \"type\" field")
	}
	p, err := r.GetProvider(meta.Type)
	if err != nil {
		return nil, err
	}
	return p.NewResource(raw)
}
