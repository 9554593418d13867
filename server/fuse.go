package server

import (
	"errors"
	"io"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/themodernway/themodernway-server-core-sub001/cache"
	"github.com/themodernway/themodernway-server-core-sub001/config"
	"github.com/themodernway/themodernway-server-core-sub001/filesystem"
	"github.com/themodernway/themodernway-server-core-sub001/internal/util"
	"github.com/themodernway/themodernway-server-core-sub001/paths"
)

const (
	dirMode    = syscall.S_IFDIR | 0o555
	fileMode   = syscall.S_IFREG | 0o444
	unknownIno = 0xffffffff
)

// inode is a kernel reference to a virtual path
type inode struct {
	vpath   string
	lookups atomic.Int64
}

// handle is an open file served to the kernel
type handle struct {
	io.ReaderAt
	close func() error
}

// FuseRaw implements the low-level FUSE wire protocol as a read-only view of
// a Storage. It serves as protocol adapter between the kernel and the
// storage, reading file content through the content cache when there is one.
// See https://www.man7.org/linux//man-pages/man4/fuse.4.html
type FuseRaw struct {
	fuse.RawFileSystem
	storage *filesystem.Storage
	cache   *cache.ContentCache
	attrTTL time.Duration
	entTTL  time.Duration

	nextID  atomic.Uint64
	inodes  *xsync.Map[uint64, *inode]
	ids     *xsync.Map[string, uint64]
	nextFh  atomic.Uint64
	handles *xsync.Map[uint64, *handle]
}

func NewFuseRaw(storage *filesystem.Storage, c *cache.ContentCache, cfg *config.Config) *FuseRaw {
	r := &FuseRaw{
		RawFileSystem: fuse.NewDefaultRawFileSystem(),
		storage:       storage,
		cache:         c,
		attrTTL:       time.Duration(cfg.AttrTimeout * float64(time.Second)),
		entTTL:        time.Duration(cfg.EntryTimeout * float64(time.Second)),
		inodes:        xsync.NewMap[uint64, *inode](),
		ids:           xsync.NewMap[string, uint64](),
		handles:       xsync.NewMap[uint64, *handle](),
	}
	root := &inode{vpath: paths.Root}
	root.lookups.Store(1)
	r.inodes.Store(fuse.FUSE_ROOT_ID, root)
	r.ids.Store(paths.Root, fuse.FUSE_ROOT_ID)
	r.nextID.Store(fuse.FUSE_ROOT_ID)
	return r
}

func (r *FuseRaw) Init(s *fuse.Server) {
	logger := util.GetLogger("Fuse.Init")
	logger.Debug().Str("storage", r.storage.Name()).Msg("FUSE initialized")
}

func (r *FuseRaw) OnUnmount() {
	logger := util.GetLogger("Fuse.OnUnmount")
	logger.Info().Str("storage", r.storage.Name()).Msg("FUSE unmounted")
}

func (r *FuseRaw) String() string {
	return "FuseRaw"
}

// toStatus maps storage errors onto errno values. Hidden paths look absent.
func toStatus(err error) fuse.Status {
	switch {
	case err == nil:
		return fuse.OK
	case errors.Is(err, filesystem.ErrNotFound), errors.Is(err, filesystem.ErrHidden):
		return fuse.ENOENT
	case errors.Is(err, filesystem.ErrNotReadable), errors.Is(err, filesystem.ErrNotWritable):
		return fuse.EACCES
	case errors.Is(err, filesystem.ErrNotFolder):
		return fuse.ENOTDIR
	case errors.Is(err, filesystem.ErrNotFile):
		return fuse.Status(syscall.EISDIR)
	case errors.Is(err, filesystem.ErrReadOnly):
		return fuse.EROFS
	case errors.Is(err, filesystem.ErrUnresolvable):
		return fuse.EINVAL
	default:
		return fuse.EIO
	}
}

// register returns the node ID of vpath, allocating one on first use, and
// counts one kernel lookup against it.
func (r *FuseRaw) register(vpath string) uint64 {
	id, _ := r.ids.LoadOrCompute(vpath, func() (uint64, bool) {
		return r.nextID.Add(1), false
	})
	ino, _ := r.inodes.LoadOrStore(id, &inode{vpath: vpath})
	ino.lookups.Add(1)
	return id
}

func (r *FuseRaw) pathOf(id uint64) (string, bool) {
	ino, ok := r.inodes.Load(id)
	if !ok {
		return "", false
	}
	return ino.vpath, true
}

func (r *FuseRaw) node(id uint64) (filesystem.Node, fuse.Status) {
	vpath, ok := r.pathOf(id)
	if !ok {
		return nil, fuse.Status(syscall.ESTALE)
	}
	n, err := r.storage.Root().File(vpath)
	if err != nil {
		return nil, toStatus(err)
	}
	return n, fuse.OK
}

// fillAttr copies one attribute snapshot of n into out. Missing and hidden
// nodes are reported as ENOENT.
func fillAttr(n filesystem.Node, out *fuse.Attr) fuse.Status {
	attrs, err := n.Attributes()
	if err != nil {
		return toStatus(err)
	}
	if !attrs.Exists || attrs.Hidden {
		return fuse.ENOENT
	}
	mtime, err := n.LastModified()
	if err != nil {
		return toStatus(err)
	}
	switch {
	case attrs.Folder:
		out.Mode = dirMode
		out.Nlink = 2
	default:
		size, err := n.Size()
		if err != nil {
			return toStatus(err)
		}
		out.Mode = fileMode
		if !attrs.Readable {
			out.Mode = syscall.S_IFREG
		}
		out.Nlink = 1
		out.Size = uint64(size)
		out.Blocks = (out.Size + 511) / 512
	}
	out.SetTimes(&mtime, &mtime, &mtime)
	return fuse.OK
}

// Lookup is called by the kernel when the VFS wants to know
// about a file inside a directory.
func (r *FuseRaw) Lookup(cancel <-chan struct{}, header *fuse.InHeader, name string, out *fuse.EntryOut) fuse.Status {
	logger := util.GetLogger("Fuse.Lookup")
	logger.Trace().Uint64("parent", header.NodeId).Str("name", name).Msg("Lookup called")

	parent, ok := r.pathOf(header.NodeId)
	if !ok {
		return fuse.Status(syscall.ESTALE)
	}
	vpath, err := paths.Resolve(parent, name)
	if err != nil || paths.Name(vpath) != name {
		// "~x" and the like resolve outside parent
		return fuse.ENOENT
	}
	n, err := r.storage.Root().File(vpath)
	if err != nil {
		return toStatus(err)
	}
	if status := fillAttr(n, &out.Attr); !status.Ok() {
		return status
	}
	id := r.register(n.Path())
	out.NodeId = id
	out.Ino = id
	out.SetEntryTimeout(r.entTTL)
	out.SetAttrTimeout(r.attrTTL)
	return fuse.OK
}

// Forget is called when the kernel discards entries from its
// dentry cache. Forget should not do I/O.
func (r *FuseRaw) Forget(nodeid, nlookup uint64) {
	if nodeid == fuse.FUSE_ROOT_ID {
		return
	}
	ino, ok := r.inodes.Load(nodeid)
	if !ok {
		return
	}
	if ino.lookups.Add(-int64(nlookup)) <= 0 {
		r.inodes.Delete(nodeid)
		r.ids.Compute(ino.vpath, func(old uint64, loaded bool) (uint64, xsync.ComputeOp) {
			if loaded && old == nodeid {
				return 0, xsync.DeleteOp
			}
			return old, xsync.CancelOp
		})
	}
}

func (r *FuseRaw) GetAttr(cancel <-chan struct{}, input *fuse.GetAttrIn, out *fuse.AttrOut) fuse.Status {
	n, status := r.node(input.NodeId)
	if !status.Ok() {
		return status
	}
	if status := fillAttr(n, &out.Attr); !status.Ok() {
		return status
	}
	out.Ino = input.NodeId
	out.SetTimeout(r.attrTTL)
	return fuse.OK
}

// Open hands out a handle reading the snapshot from the cache, or the
// storage file itself when caching is disabled. Writes are refused.
func (r *FuseRaw) Open(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	logger := util.GetLogger("Fuse.Open")

	if input.Flags&syscall.O_ACCMODE != syscall.O_RDONLY {
		return fuse.EROFS
	}
	n, status := r.node(input.NodeId)
	if !status.Ok() {
		return status
	}

	var h *handle
	if r.cache != nil {
		snap, ok := r.cache.Get(n.Path())
		if !ok {
			// cache only says absent, ask the storage why
			rc, err := n.Open()
			if err == nil {
				rc.Close()
				err = filesystem.ErrNotReadable
			}
			return toStatus(err)
		}
		h = &handle{ReaderAt: snap.NewReader(), close: func() error { return nil }}
		out.OpenFlags |= fuse.FOPEN_KEEP_CACHE
	} else {
		rc, err := n.Open()
		if err != nil {
			return toStatus(err)
		}
		ra, ok := rc.(io.ReaderAt)
		if !ok {
			rc.Close()
			return fuse.ENOTSUP
		}
		h = &handle{ReaderAt: ra, close: rc.Close}
	}

	fh := r.nextFh.Add(1)
	r.handles.Store(fh, h)
	out.Fh = fh
	logger.Debug().Str("path", n.Path()).Uint64("fh", fh).Msg("Opened file")
	return fuse.OK
}

func (r *FuseRaw) Read(cancel <-chan struct{}, input *fuse.ReadIn, buf []byte) (fuse.ReadResult, fuse.Status) {
	h, ok := r.handles.Load(input.Fh)
	if !ok {
		return nil, fuse.EBADF
	}
	size := min(int(input.Size), len(buf))
	n, err := h.ReadAt(buf[:size], int64(input.Offset))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fuse.EIO
	}
	return fuse.ReadResultData(buf[:n]), fuse.OK
}

func (r *FuseRaw) Release(cancel <-chan struct{}, input *fuse.ReleaseIn) {
	if h, ok := r.handles.LoadAndDelete(input.Fh); ok {
		_ = h.close()
	}
}

func (r *FuseRaw) OpenDir(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	n, status := r.node(input.NodeId)
	if !status.Ok() {
		return status
	}
	folder, ok := n.(*filesystem.FolderNode)
	if !ok {
		return fuse.ENOTDIR
	}
	if _, err := folder.Items(); err != nil {
		return toStatus(err)
	}
	return fuse.OK
}

// dirEntries lists the visible children of a folder after "." and "..",
// sorted by name.
func (r *FuseRaw) dirEntries(id uint64) ([]fuse.DirEntry, fuse.Status) {
	logger := util.GetLogger("Fuse.ReadDir")

	n, status := r.node(id)
	if !status.Ok() {
		return nil, status
	}
	folder, ok := n.(*filesystem.FolderNode)
	if !ok {
		return nil, fuse.ENOTDIR
	}
	items, err := folder.Items()
	if err != nil {
		return nil, toStatus(err)
	}

	entries := []fuse.DirEntry{
		{Name: ".", Mode: dirMode, Ino: id},
		{Name: "..", Mode: dirMode, Ino: unknownIno},
	}
	for item, err := range items {
		if err != nil {
			logger.Error().Err(err).Str("path", folder.Path()).Msg("Failed to list folder")
			return nil, toStatus(err)
		}
		mode := uint32(fileMode)
		if _, ok := item.(*filesystem.FolderNode); ok {
			mode = dirMode
		}
		entries = append(entries, fuse.DirEntry{Name: item.Name(), Mode: mode, Ino: unknownIno})
	}
	return entries, fuse.OK
}

// ReadDir lists a folder. Entry offsets are the position in the listing so
// the kernel can resume a partial read.
func (r *FuseRaw) ReadDir(cancel <-chan struct{}, input *fuse.ReadIn, out *fuse.DirEntryList) fuse.Status {
	entries, status := r.dirEntries(input.NodeId)
	if !status.Ok() {
		return status
	}
	for i := int(input.Offset); i < len(entries); i++ {
		e := entries[i]
		e.Off = uint64(i + 1)
		if !out.AddDirEntry(e) {
			// The buffer is full; the kernel calls again with a new offset.
			break
		}
	}
	return fuse.OK
}

func (r *FuseRaw) ReleaseDir(input *fuse.ReleaseIn) {}

func (r *FuseRaw) StatFs(cancel <-chan struct{}, input *fuse.InHeader, out *fuse.StatfsOut) fuse.Status {
	out.NameLen = 255
	out.Bsize = 4096
	return fuse.OK
}

// Access allows reads of anything the storage exposes and refuses writes
func (r *FuseRaw) Access(cancel <-chan struct{}, input *fuse.AccessIn) fuse.Status {
	if input.Mask&0o2 != 0 {
		return fuse.EROFS
	}
	_, status := r.node(input.NodeId)
	return status
}
