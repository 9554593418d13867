package adapters

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	vfs "github.com/themodernway/themodernway-server-core-sub001"
)

// InlineSource carries the content in the description itself
type InlineSource struct {
	Type     string `json:"type"`
	Content  string `json:"content"`
	Encoding string `json:"encoding,omitempty"` // "" or "base64"
}

// RegisterInline registers the "inline" provider
func RegisterInline(r *Registry) {
	r.Register(InlineType, ProviderFunc(func(raw []byte) (vfs.Resource, error) {
		var src InlineSource
		if err := json.Unmarshal(raw, &src); err != nil {
			return nil, err
		}
		switch src.Encoding {
		case "":
			return BytesResource([]byte(src.Content)), nil
		case "base64":
			data, err := base64.StdEncoding.DecodeString(src.Content)
			if err != nil {
				return nil, fmt.Errorf("failed to decode inline content: %w", err)
			}
			return BytesResource(data), nil
		default:
			return nil, fmt.Errorf("unknown inline encoding %q", src.Encoding)
		}
	}))
}

// BytesResource serves a fixed byte slice
type BytesResource []byte

func (b BytesResource) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b)), nil
}
