package filesystem

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	vfs "github.com/themodernway/themodernway-server-core-sub001"
	"github.com/themodernway/themodernway-server-core-sub001/internal/util"
	"github.com/themodernway/themodernway-server-core-sub001/paths"
)

// ContentCache is the part of a content cache a Storage needs to keep it
// coherent with writes.
type ContentCache interface {
	Remove(key string) bool
}

// Options configure a [Storage]. Only BasePath is required.
type Options struct {
	Name                string                  // display name used in errors and logs (Default: last base path segment)
	BasePath            string                  // absolute path of the storage root on Medium
	Medium              afero.Fs                // backing medium (Default: afero.NewOsFs())
	Writable            bool                    // allow create/mkdirs/delete
	AttributesPreferred bool                    // share one attribute snapshot per operation
	ContentTypes        vfs.ContentTypeResolver // (Default: vfs.NewMimeTypes(nil))
	Metadata            MetadataFactory         // optional metadata document builder
}

// Storage is the guarded root of one mounted tree. It is created closed and
// every Node operation fails with [ErrStorageClosed] until it is opened.
// The open, writable and attributes-preferred flags are re-read on each call.
type Storage struct {
	id           string
	name         string
	basePath     string
	medium       afero.Fs
	contentTypes vfs.ContentTypeResolver
	metadata     MetadataFactory

	open           atomic.Bool
	writable       atomic.Bool
	attrsPreferred atomic.Bool

	cacheMu sync.RWMutex
	cache   ContentCache
}

// NewStorage creates a closed Storage; call [Storage.Open] before use
func NewStorage(opts Options) (*Storage, error) {
	base := paths.Normalize(opts.BasePath)
	if !strings.HasPrefix(base, paths.Separator) {
		return nil, fmt.Errorf("%w: %q must be absolute", ErrBasePath, opts.BasePath)
	}
	s := &Storage{
		id:           uuid.NewString(),
		name:         opts.Name,
		basePath:     base,
		medium:       opts.Medium,
		contentTypes: opts.ContentTypes,
		metadata:     opts.Metadata,
	}
	if s.name == "" {
		s.name = paths.Name(base)
		if s.name == "" {
			s.name = paths.Root
		}
	}
	if s.medium == nil {
		s.medium = afero.NewOsFs()
	}
	if s.contentTypes == nil {
		s.contentTypes = vfs.NewMimeTypes(nil)
	}
	s.writable.Store(opts.Writable)
	s.attrsPreferred.Store(opts.AttributesPreferred)
	return s, nil
}

// Mount creates a Storage and opens it
func Mount(opts Options) (*Storage, error) {
	s, err := NewStorage(opts)
	if err != nil {
		return nil, err
	}
	if err := s.Open(); err != nil {
		return nil, err
	}
	return s, nil
}

// Open verifies the base path exists, is a folder and is readable, then
// transitions the Storage to open.
func (s *Storage) Open() error {
	logger := util.GetLogger("Storage")

	if err := s.verifyBase(); err != nil {
		logger.Error().Err(err).Str("storage", s.name).Str("base", s.basePath).Msg("Failed to open storage")
		return err
	}
	s.open.Store(true)
	logger.Info().
		Str("storage", s.name).
		Str("id", s.id).
		Str("base", s.basePath).
		Bool("writable", s.IsWritable()).
		Msg("Storage opened")
	return nil
}

func (s *Storage) verifyBase() error {
	info, err := s.medium.Stat(s.basePath)
	switch {
	case errors.Is(err, iofs.ErrNotExist):
		return newError("open", s.name, paths.Root, ErrNotFound)
	case err != nil:
		return newError("open", s.name, paths.Root, probeError(err))
	case !info.IsDir():
		return newError("open", s.name, paths.Root, ErrNotFolder)
	case !mediumAllows(s.medium, s.basePath, info, false):
		return newError("open", s.name, paths.Root, ErrNotReadable)
	}
	return nil
}

// Close transitions the Storage to closed. Nodes obtained earlier fail from
// their next operation on.
func (s *Storage) Close() error {
	if s.open.Swap(false) {
		logger := util.GetLogger("Storage")
		logger.Info().Str("storage", s.name).Str("id", s.id).Msg("Storage closed")
	}
	return nil
}

// SetOpen flips the open flag without verifying the base path
func (s *Storage) SetOpen(open bool) {
	s.open.Store(open)
}

// IsOpen reports whether the Storage is open
func (s *Storage) IsOpen() bool {
	return s.open.Load()
}

// Validate fails with [ErrStorageClosed] while the Storage is closed
func (s *Storage) Validate() error {
	if !s.open.Load() {
		return &Error{Op: "validate", Storage: s.name, Path: paths.Root, Err: ErrStorageClosed}
	}
	return nil
}

func (s *Storage) SetWritable(writable bool) {
	s.writable.Store(writable)
}

func (s *Storage) IsWritable() bool {
	return s.writable.Load()
}

func (s *Storage) SetAttributesPreferred(preferred bool) {
	s.attrsPreferred.Store(preferred)
}

func (s *Storage) IsAttributesPreferred() bool {
	return s.attrsPreferred.Load()
}

// ID is unique per Storage instance
func (s *Storage) ID() string {
	return s.id
}

func (s *Storage) Name() string {
	return s.name
}

// BasePath is the normalized absolute path of the root on the medium
func (s *Storage) BasePath() string {
	return s.basePath
}

func (s *Storage) Medium() afero.Fs {
	return s.medium
}

func (s *Storage) ContentTypes() vfs.ContentTypeResolver {
	return s.contentTypes
}

// Root returns the root folder. It is handed out even while closed.
func (s *Storage) Root() *FolderNode {
	return s.folderAt(s.basePath, paths.Root)
}

// SetCache associates a content cache; nil detaches the current one
func (s *Storage) SetCache(c ContentCache) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cache = c
}

// Cache returns the associated content cache or nil
func (s *Storage) Cache() ContentCache {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache
}

// invalidate drops the cached snapshot of vpath after a write
func (s *Storage) invalidate(vpath string) {
	if c := s.Cache(); c != nil {
		c.Remove(vpath)
	}
}

// abs maps a virtual path onto the medium
func (s *Storage) abs(vpath string) string {
	return paths.Join(s.basePath, vpath)
}

// nodeAt returns the node variant matching the medium's current kind of abs.
// Missing and unstatable paths get the file form.
func (s *Storage) nodeAt(abs, vpath string) Node {
	if info, err := s.medium.Stat(abs); err == nil && info.IsDir() {
		return s.folderAt(abs, vpath)
	}
	return s.fileAt(abs, vpath)
}

func (s *Storage) fileAt(abs, vpath string) *FileNode {
	return &FileNode{storage: s, abs: abs, vpath: vpath}
}

func (s *Storage) folderAt(abs, vpath string) *FolderNode {
	return &FolderNode{FileNode: FileNode{storage: s, abs: abs, vpath: vpath}}
}
