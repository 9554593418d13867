package filesystem

import (
	vfs "github.com/themodernway/themodernway-server-core-sub001"
)

// MetadataFactory builds the metadata document of a node
type MetadataFactory interface {
	BuildMetadata(n Node) (vfs.Metadata, error)
}

// MetadataFunc adapts a plain function to [MetadataFactory]
type MetadataFunc func(n Node) (vfs.Metadata, error)

func (f MetadataFunc) BuildMetadata(n Node) (vfs.Metadata, error) {
	return f(n)
}

func buildMetadata(n Node) (vfs.Metadata, error) {
	if factory := n.Storage().metadata; factory != nil {
		if err := n.Validate(); err != nil {
			return nil, err
		}
		return factory.BuildMetadata(n)
	}
	return DefaultMetadata(n)
}

// DefaultMetadata builds the document holding path, size, last modified time,
// content type and the mode string from one attribute probe.
func DefaultMetadata(n Node) (vfs.Metadata, error) {
	fn := n.node()
	ctx, err := fn.begin("metadata")
	if err != nil {
		return nil, err
	}
	defer ctx.Close()

	attrs, err := ctx.Attributes()
	if err != nil {
		return nil, err
	}
	size, err := n.Size()
	if err != nil {
		return nil, err
	}
	modified, err := n.LastModified()
	if err != nil {
		return nil, err
	}
	contentType, err := n.ContentType()
	if err != nil {
		return nil, err
	}
	return vfs.Metadata{
		vfs.MetaPath:         n.Path(),
		vfs.MetaSize:         size,
		vfs.MetaLastModified: modified,
		vfs.MetaContentType:  contentType,
		vfs.MetaMode:         vfs.ModeString(attrs.Folder, attrs.Readable, attrs.Writable),
	}, nil
}
