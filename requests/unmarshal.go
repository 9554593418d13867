// Package requests decodes seed manifests of file and folder requests and
// applies them to a storage folder.
package requests

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	vfs "github.com/themodernway/themodernway-server-core-sub001"
	"github.com/themodernway/themodernway-server-core-sub001/adapters"
	"gopkg.in/yaml.v3"
)

// Decoder turns raw requests into [vfs.Request]s, building sources through
// its adapter registry
type Decoder struct {
	registry *adapters.Registry
}

func NewDecoder(registry *adapters.Registry) *Decoder {
	return &Decoder{registry: registry}
}

// GetNodeType extracts the node type from JSON without full unmarshaling
func GetNodeType(data []byte) (vfs.NodeRequestType, error) {
	var meta struct {
		Type vfs.NodeRequestType `json:"type"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return "", err
	}
	return meta.Type, nil
}

// UnmarshalRequest decodes a file or dir request depending on its "type"
func (d *Decoder) UnmarshalRequest(data []byte) (vfs.Request, error) {
	nodeType, err := GetNodeType(data)
	if err != nil {
		return nil, err
	}
	switch nodeType {
	case vfs.FileNodeType:
		return d.UnmarshalFileRequest(data)
	case vfs.DirNodeType:
		return UnmarshalDirRequest(data)
	default:
		return nil, fmt.Errorf("unknown node type: %q", nodeType)
	}
}

// UnmarshalFileRequest handles file-specific unmarshaling with sources
func (d *Decoder) UnmarshalFileRequest(data []byte) (*vfs.FileRequest, error) {
	var dto FileRequestDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, err
	}
	node, err := convertNodeDTO(dto.NodeRequestDTO)
	if err != nil {
		return nil, err
	}
	if len(dto.Sources) == 0 {
		return nil, fmt.Errorf("file request %q has no sources", node.Path)
	}

	sources, err := d.unmarshalSources(dto.Sources, data)
	if err != nil {
		return nil, fmt.Errorf("file request %q: %w", node.Path, err)
	}

	return &vfs.FileRequest{
		NodeRequest: node,
		Sources:     sources,
	}, nil
}

// UnmarshalDirRequest handles explicit directory unmarshaling (no sources)
func UnmarshalDirRequest(data []byte) (*vfs.DirRequest, error) {
	var dto DirRequestDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, err
	}
	node, err := convertNodeDTO(dto.NodeRequestDTO)
	if err != nil {
		return nil, err
	}
	return &vfs.DirRequest{NodeRequest: node}, nil
}

// Helper function to process sources array
func (d *Decoder) unmarshalSources(sourceDTOs []SourceConfigDTO, rawData []byte) ([]vfs.Source, error) {
	// Extract raw sources array from JSON for adapter registry
	var rawMessage struct {
		Sources []json.RawMessage `json:"sources"`
	}
	if err := json.Unmarshal(rawData, &rawMessage); err != nil {
		return nil, err
	}

	sources := make([]vfs.Source, 0, len(rawMessage.Sources))
	for i, rawSource := range rawMessage.Sources {
		res, err := d.registry.NewResource(rawSource)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal source %d: %w", i, err)
		}

		// Apply priority default
		priority := i
		if sourceDTOs[i].Priority != nil {
			priority = *sourceDTOs[i].Priority
		}

		sources = append(sources, vfs.Source{
			Resource: res,
			Priority: priority,
		})
	}
	return sources, nil
}

// Conversion logic with defaults in the unmarshaling layer
func convertNodeDTO(dto NodeRequestDTO) (vfs.NodeRequest, error) {
	if strings.TrimSpace(dto.Path) == "" {
		return vfs.NodeRequest{}, fmt.Errorf("%s request is missing a path", dto.Type)
	}
	return vfs.NodeRequest{
		Path: dto.Path,
		Type: dto.Type,
		UUID: valueOrDefault(dto.UUID, uuid.New().String()),
	}, nil
}

func valueOrDefault[T any](ptr *T, defaultVal T) T {
	if ptr != nil {
		return *ptr
	}
	return defaultVal
}

// UnmarshalManifest decodes a JSON array of requests
func (d *Decoder) UnmarshalManifest(data []byte) ([]vfs.Request, error) {
	var rawNodes []json.RawMessage
	if err := json.Unmarshal(data, &rawNodes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	reqs := make([]vfs.Request, 0, len(rawNodes))
	for i, raw := range rawNodes {
		req, err := d.UnmarshalRequest(raw)
		if err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// LoadManifest reads a manifest file. Supports both YAML (.yaml, .yml) and
// JSON (.json) formats.
func (d *Decoder) LoadManifest(path string) ([]vfs.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		// sources are decoded by the registry from JSON, so re-encode
		var doc []any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return nil, fmt.Errorf("failed to convert manifest: %w", err)
		}
	case ".json":
	default:
		return nil, fmt.Errorf("unknown manifest file extension: %s", path)
	}
	return d.UnmarshalManifest(data)
}
