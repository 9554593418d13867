package filesystem

import (
	"bufio"
	"errors"
	"io"
	iofs "io/fs"
	"iter"
	"strings"
	"time"

	vfs "github.com/themodernway/themodernway-server-core-sub001"
	"github.com/themodernway/themodernway-server-core-sub001/internal/util"
	"github.com/themodernway/themodernway-server-core-sub001/paths"
)

// Node is a handle on one path of a Storage: either a [*FileNode] or a
// [*FolderNode]. Nodes hold nothing but their path and a reference to the
// Storage, and every operation checks the Storage state anew.
type Node interface {
	Storage() *Storage
	Validate() error

	Path() string
	AbsolutePath() string
	Name() string
	BaseName() string
	Extension() string

	Attributes() (Attributes, error)
	Exists() (bool, error)
	IsHidden() (bool, error)
	IsReadable() (bool, error)
	IsWritable() (bool, error)
	IsFile() (bool, error)
	IsFolder() (bool, error)

	Size() (int64, error)
	LastModified() (time.Time, error)
	ContentType() (string, error)
	Metadata() (vfs.Metadata, error)
	Delete() error

	Open() (io.ReadCloser, error)
	BufferedReader() (*BufferedReader, error)
	Lines() (iter.Seq2[string, error], error)
	WriteTo(w io.Writer) (int64, error)

	node() *FileNode
}

// BufferedReader is a buffered reader over an open file. Close releases the file.
type BufferedReader struct {
	*bufio.Reader
	closer io.Closer
}

func (r *BufferedReader) Close() error {
	return r.closer.Close()
}

// FileNode is a file or a not yet existing path
type FileNode struct {
	storage *Storage
	abs     string // path on the medium
	vpath   string // virtual path
}

var _ Node = (*FileNode)(nil)

func (n *FileNode) node() *FileNode {
	return n
}

func (n *FileNode) fail(op string, err error) error {
	return newError(op, n.storage.name, n.vpath, err)
}

// Storage returns the owning Storage
func (n *FileNode) Storage() *Storage {
	return n.storage
}

func (n *FileNode) Validate() error {
	if err := n.storage.Validate(); err != nil {
		return n.fail("validate", err)
	}
	return nil
}

// Path returns the virtual path
func (n *FileNode) Path() string {
	return n.vpath
}

// AbsolutePath returns the path on the backing medium
func (n *FileNode) AbsolutePath() string {
	return n.abs
}

func (n *FileNode) Name() string {
	return paths.Name(n.vpath)
}

func (n *FileNode) BaseName() string {
	return paths.BaseName(n.vpath)
}

func (n *FileNode) Extension() string {
	return paths.Extension(n.vpath)
}

// Attributes probes the medium. A failed probe is returned as an error
// wrapping [ErrProbe] and never as a partial snapshot.
func (n *FileNode) Attributes() (Attributes, error) {
	ctx, err := n.begin("attributes")
	if err != nil {
		return Attributes{}, err
	}
	defer ctx.Close()
	return ctx.Attributes()
}

func (n *FileNode) predicate(op string, pred func(Attributes) bool) (bool, error) {
	ctx, err := n.begin(op)
	if err != nil {
		return false, err
	}
	defer ctx.Close()
	return ctx.is(pred)
}

func (n *FileNode) Exists() (bool, error) {
	return n.predicate("exists", func(a Attributes) bool { return a.Exists })
}

func (n *FileNode) IsHidden() (bool, error) {
	return n.predicate("hidden", func(a Attributes) bool { return a.Hidden })
}

func (n *FileNode) IsReadable() (bool, error) {
	return n.predicate("readable", func(a Attributes) bool { return a.Readable })
}

func (n *FileNode) IsWritable() (bool, error) {
	return n.predicate("writable", func(a Attributes) bool { return a.Writable })
}

func (n *FileNode) IsFile() (bool, error) {
	return n.predicate("file", func(a Attributes) bool { return a.File })
}

func (n *FileNode) IsFolder() (bool, error) {
	return n.predicate("folder", func(a Attributes) bool { return a.Folder })
}

// stat returns nil info for a missing path
func (n *FileNode) stat(op string) (iofs.FileInfo, error) {
	if err := n.storage.Validate(); err != nil {
		return nil, n.fail(op, err)
	}
	info, err := n.storage.medium.Stat(n.abs)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, n.fail(op, probeError(err))
	}
	return info, nil
}

// Size returns the file length, 0 for folders and missing paths
func (n *FileNode) Size() (int64, error) {
	info, err := n.stat("size")
	if err != nil || info == nil || info.IsDir() {
		return 0, err
	}
	return info.Size(), nil
}

// LastModified returns the zero time for a missing path
func (n *FileNode) LastModified() (time.Time, error) {
	info, err := n.stat("lastModified")
	if err != nil || info == nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// ContentType resolves the MIME type of the path through the Storage resolver
func (n *FileNode) ContentType() (string, error) {
	if err := n.Validate(); err != nil {
		return "", err
	}
	return n.storage.contentTypes.ContentType(n.vpath), nil
}

// Metadata builds the node document with the Storage's factory, or the
// default document when none is configured.
func (n *FileNode) Metadata() (vfs.Metadata, error) {
	return buildMetadata(n)
}

// Delete removes the path from the medium and drops any cached snapshot of it
func (n *FileNode) Delete() error {
	return deleteNode(n)
}

func deleteNode(n Node) error {
	fn := n.node()
	ctx, err := fn.begin("delete")
	if err != nil {
		return err
	}
	defer ctx.Close()

	s := fn.storage
	if !s.IsWritable() {
		return ctx.fail(ErrReadOnly)
	}
	if fn.vpath == paths.Root {
		return ctx.fail(ErrDeleteFailed)
	}
	hidden, err := ctx.is(func(a Attributes) bool { return a.Hidden })
	if err != nil {
		return err
	}
	if hidden {
		return ctx.fail(ErrHidden)
	}
	if err := s.medium.Remove(fn.abs); err != nil {
		return ctx.fail(errors.Join(ErrDeleteFailed, err))
	}
	s.invalidate(fn.vpath)

	logger := util.GetLogger("Storage")
	logger.Debug().Str("storage", s.name).Str("path", fn.vpath).Msg("Deleted")
	return nil
}

// Open runs the read guards and opens the file. If the returned reader also
// has a Stat method it reports the opened file.
func (n *FileNode) Open() (io.ReadCloser, error) {
	ctx, err := n.begin("open")
	if err != nil {
		return nil, err
	}
	defer ctx.Close()
	return n.open(ctx)
}

func (n *FileNode) open(ctx *nodeContext) (io.ReadCloser, error) {
	if err := ctx.readTest(); err != nil {
		return nil, err
	}
	file, err := ctx.is(func(a Attributes) bool { return a.File })
	if err != nil {
		return nil, err
	}
	if !file {
		return nil, ctx.fail(ErrNotFile)
	}
	f, err := n.storage.medium.Open(n.abs)
	if err != nil {
		return nil, ctx.fail(err)
	}
	return f, nil
}

func (n *FileNode) BufferedReader() (*BufferedReader, error) {
	rc, err := n.Open()
	if err != nil {
		return nil, err
	}
	return &BufferedReader{Reader: bufio.NewReader(rc), closer: rc}, nil
}

// Lines returns the lines of the file without their terminators. The read
// guards run immediately; the file is opened when iteration starts and closed
// when it stops.
func (n *FileNode) Lines() (iter.Seq2[string, error], error) {
	ctx, err := n.begin("lines")
	if err != nil {
		return nil, err
	}
	if err := ctx.readTest(); err != nil {
		ctx.Close()
		return nil, err
	}
	ctx.Close()

	return func(yield func(string, error) bool) {
		r, err := n.BufferedReader()
		if err != nil {
			yield("", err)
			return
		}
		defer r.Close()
		for {
			line, err := r.ReadString('\n')
			if line != "" {
				line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
				if !yield(line, nil) {
					return
				}
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				yield("", n.fail("lines", err))
				return
			}
		}
	}, nil
}

// WriteTo copies the whole file to w
func (n *FileNode) WriteTo(w io.Writer) (int64, error) {
	ctx, err := n.begin("writeTo")
	if err != nil {
		return 0, err
	}
	defer ctx.Close()

	rc, err := n.open(ctx)
	if err != nil {
		return 0, err
	}
	ctx.AddClose(func() { _ = rc.Close() })

	written, err := io.Copy(w, rc)
	if err != nil {
		return written, ctx.fail(err)
	}
	return written, nil
}
