package filesystem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path"

	"github.com/spf13/afero"
	vfs "github.com/themodernway/themodernway-server-core-sub001"
	"github.com/themodernway/themodernway-server-core-sub001/internal/util"
	"github.com/themodernway/themodernway-server-core-sub001/paths"
)

const (
	filePerm   = 0o644
	folderPerm = 0o755
	tempPrefix = ".vfs-"
)

// FolderNode is a folder. Content reads always fail with [ErrNotFile].
type FolderNode struct {
	FileNode
}

var _ Node = (*FolderNode)(nil)

func (f *FolderNode) readFolder(op string) error {
	if err := f.storage.Validate(); err != nil {
		return f.fail(op, err)
	}
	return f.fail(op, ErrNotFile)
}

func (f *FolderNode) Open() (io.ReadCloser, error) {
	return nil, f.readFolder("open")
}

func (f *FolderNode) BufferedReader() (*BufferedReader, error) {
	return nil, f.readFolder("open")
}

func (f *FolderNode) Lines() (iter.Seq2[string, error], error) {
	return nil, f.readFolder("lines")
}

func (f *FolderNode) WriteTo(io.Writer) (int64, error) {
	return 0, f.readFolder("writeTo")
}

func (f *FolderNode) Metadata() (vfs.Metadata, error) {
	return buildMetadata(f)
}

func (f *FolderNode) Delete() error {
	return deleteNode(f)
}

// File resolves name against this folder without touching content. Rooted
// names are taken from the storage root, relative names from this folder.
// The result is a *FolderNode when the medium currently holds a folder there
// and a *FileNode otherwise, including for paths that do not exist yet.
func (f *FolderNode) File(name string) (Node, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	vpath, err := paths.Resolve(f.vpath, name)
	if err != nil {
		return nil, newError("file", f.storage.name, name, fmt.Errorf("%w: %w", ErrUnresolvable, err))
	}
	abs := f.storage.abs(vpath)
	if abs == "" {
		return nil, newError("file", f.storage.name, name, ErrUnresolvable)
	}
	return f.storage.nodeAt(abs, vpath), nil
}

// Find returns the node for name if it exists, otherwise nil with no error
func (f *FolderNode) Find(name string) (Node, error) {
	n, err := f.File(name)
	if err != nil {
		return nil, err
	}
	exists, err := n.Exists()
	if err != nil || !exists {
		return nil, err
	}
	return n, nil
}

// Create writes the full content of src to name, creating parent folders as
// needed, and returns the new file. Content goes to a temporary file in the
// target folder first and replaces the target by rename.
func (f *FolderNode) Create(name string, src io.Reader) (*FileNode, error) {
	const op = "create"
	logger := util.GetLogger("Storage")

	s := f.storage
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if !s.IsWritable() {
		return nil, newError(op, s.name, name, ErrReadOnly)
	}
	target, err := f.File(name)
	if err != nil {
		return nil, err
	}
	if _, ok := target.(*FolderNode); ok {
		return nil, target.node().fail(op, ErrNotFile)
	}
	file := target.node()
	if file.vpath == paths.Root {
		return nil, file.fail(op, ErrNotFile)
	}

	ctx, err := file.begin(op)
	if err != nil {
		return nil, err
	}
	defer ctx.Close()

	attrs, err := ctx.Attributes()
	if err != nil {
		return nil, err
	}
	switch {
	case attrs.Folder:
		return nil, ctx.fail(ErrNotFile)
	case attrs.Hidden || isHiddenName(file.Name()):
		return nil, ctx.fail(ErrHidden)
	case attrs.Exists && !attrs.Writable:
		return nil, ctx.fail(ErrNotWritable)
	}

	dir := path.Dir(file.abs)
	if err := s.medium.MkdirAll(dir, folderPerm); err != nil {
		return nil, ctx.fail(fmt.Errorf("%w: %w", ErrNotFolder, err))
	}
	written, err := writeAtomic(s.medium, dir, file.abs, src)
	if err != nil {
		logger.Error().Err(err).Str("storage", s.name).Str("path", file.vpath).Msg("Failed to create file")
		return nil, ctx.fail(err)
	}
	s.invalidate(file.vpath)

	logger.Debug().Str("storage", s.name).Str("path", file.vpath).Int64("size", written).Msg("Created file")
	return s.fileAt(file.abs, file.vpath), nil
}

// writeAtomic copies src to a temp file in dir, syncs it and renames it over
// target. The temp file is removed on any failure.
func writeAtomic(medium afero.Fs, dir, target string, src io.Reader) (written int64, err error) {
	tmp, err := afero.TempFile(medium, dir, tempPrefix+"*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = medium.Remove(tmpName)
		}
	}()

	if written, err = io.Copy(tmp, src); err != nil {
		return written, fmt.Errorf("write content: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return written, fmt.Errorf("sync: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return written, fmt.Errorf("close: %w", err)
	}
	if err = medium.Chmod(tmpName, filePerm); err != nil {
		return written, fmt.Errorf("chmod: %w", err)
	}
	if err = medium.Rename(tmpName, target); err != nil {
		return written, fmt.Errorf("rename: %w", err)
	}
	return written, nil
}

// CreateFromBytes writes data to name
func (f *FolderNode) CreateFromBytes(name string, data []byte) (*FileNode, error) {
	return f.Create(name, bytes.NewReader(data))
}

// CreateFromPath copies the local file at src to name
func (f *FolderNode) CreateFromPath(name, src string) (*FileNode, error) {
	in, err := os.Open(src)
	if err != nil {
		return nil, newError("create", f.storage.name, name, err)
	}
	defer in.Close()
	return f.Create(name, in)
}

// CreateFromResource copies the content of res to name
func (f *FolderNode) CreateFromResource(ctx context.Context, name string, res vfs.Resource) (*FileNode, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if !f.storage.IsWritable() {
		return nil, newError("create", f.storage.name, name, ErrReadOnly)
	}
	rc, err := res.Open(ctx)
	if err != nil {
		return nil, newError("create", f.storage.name, name, fmt.Errorf("open resource: %w", err))
	}
	defer rc.Close()
	return f.Create(name, rc)
}

// Mkdirs creates the folder name along with any missing parents. An existing
// folder is returned as is.
func (f *FolderNode) Mkdirs(name string) (*FolderNode, error) {
	const op = "mkdirs"

	s := f.storage
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if !s.IsWritable() {
		return nil, newError(op, s.name, name, ErrReadOnly)
	}
	target, err := f.File(name)
	if err != nil {
		return nil, err
	}
	if folder, ok := target.(*FolderNode); ok {
		return folder, nil
	}
	file := target.node()
	ctx, err := file.begin(op)
	if err != nil {
		return nil, err
	}
	defer ctx.Close()

	attrs, err := ctx.Attributes()
	if err != nil {
		return nil, err
	}
	switch {
	case attrs.Exists:
		return nil, ctx.fail(ErrNotFolder)
	case isHiddenName(file.Name()):
		return nil, ctx.fail(ErrHidden)
	}
	if err := s.medium.MkdirAll(file.abs, folderPerm); err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, ctx.fail(ErrNotFolder)
		}
		return nil, ctx.fail(err)
	}
	s.invalidate(file.vpath)

	logger := util.GetLogger("Storage")
	logger.Debug().Str("storage", s.name).Str("path", file.vpath).Msg("Created folder")
	return s.folderAt(file.abs, file.vpath), nil
}
