// Package server wires a configuration into a running storage with its
// content cache and can expose the storage as a read-only FUSE mount.
package server

import (
	"errors"
	"fmt"
	"io"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	vfs "github.com/themodernway/themodernway-server-core-sub001"
	"github.com/themodernway/themodernway-server-core-sub001/cache"
	"github.com/themodernway/themodernway-server-core-sub001/config"
	"github.com/themodernway/themodernway-server-core-sub001/filesystem"
	"github.com/themodernway/themodernway-server-core-sub001/internal/util"
)

// Server holds the storage built from a config, its optional content cache
// and the FUSE server once mounted.
type Server struct {
	cfg     *config.Config
	storage *filesystem.Storage
	cache   *cache.ContentCache
	fuse    *fuse.Server
}

type options struct {
	medium     afero.Fs
	registerer prometheus.Registerer
}

// Option customizes [New]
type Option func(*options)

// WithMedium replaces the OS filesystem as backing medium
func WithMedium(medium afero.Fs) Option {
	return func(o *options) { o.medium = medium }
}

// WithRegisterer registers cache metrics on reg
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// New opens the storage described by cfg and puts a content cache in front
// of it when enabled.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	logger := util.GetLogger("Server")

	o := options{medium: afero.NewOsFs()}
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.CreateBase {
		if err := o.medium.MkdirAll(cfg.BasePath, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create base path %q: %w", cfg.BasePath, err)
		}
	}

	storage, err := filesystem.Mount(filesystem.Options{
		Name:                cfg.StorageName,
		BasePath:            cfg.BasePath,
		Medium:              o.medium,
		Writable:            cfg.Writable,
		AttributesPreferred: cfg.AttributesPreferred,
		ContentTypes:        vfs.NewMimeTypes(cfg.ContentTypes),
	})
	if err != nil {
		return nil, err
	}

	srv := &Server{cfg: cfg, storage: storage}
	if cfg.CacheEnabled {
		sweep := cfg.SweepInterval()
		if sweep <= 0 {
			sweep = -1
		}
		srv.cache = cache.New(storage, cache.Options{
			IdleTimeout:   cfg.IdleTimeout(),
			MaxEntries:    cfg.CacheMaxEntries,
			SweepInterval: sweep,
			Registerer:    o.registerer,
		})
	}
	logger.Debug().
		Str("storage", storage.Name()).
		Str("base", storage.BasePath()).
		Bool("cache", srv.cache != nil).
		Msg("Server initialized")
	return srv, nil
}

func (s *Server) Storage() *filesystem.Storage {
	return s.storage
}

// Cache returns the content cache, nil when disabled
func (s *Server) Cache() *cache.ContentCache {
	return s.cache
}

// Open returns the content of the file at vpath, served from the cache when
// one is configured. Misses fall through to the storage so callers get the
// precise error.
func (s *Server) Open(vpath string) (io.ReadCloser, error) {
	if s.cache != nil {
		if node, ok := s.cache.Get(vpath); ok {
			return io.NopCloser(node.NewReader()), nil
		}
	}
	n, err := s.storage.Root().File(vpath)
	if err != nil {
		return nil, err
	}
	return n.Open()
}

// Serve mounts and serves the storage read-only at the given mountPoint.
func (s *Server) Serve(mountPoint string) error {
	raw := NewFuseRaw(s.storage, s.cache, s.cfg)
	opts := s.cfg.MountOptions
	srv, err := fuse.NewServer(raw, mountPoint, &fuse.MountOptions{
		Name:       opts.Name,
		FsName:     opts.FsName,
		Debug:      opts.Debug || s.cfg.LogLvl == util.TraceLevel,
		AllowOther: opts.AllowOther,
		Logger:     util.NewLogLogger("FuseServer", util.WarnLevel),
	})
	if err != nil {
		return err
	}
	s.fuse = srv

	go srv.Serve()
	return srv.WaitMount()
}

func (s *Server) ServeAsync(mountPoint string) <-chan error {
	done := make(chan error, 1)

	go func() {
		done <- s.Serve(mountPoint)
		close(done)
	}()

	return done
}

// Unmount cleanly unmounts the filesystem.
func (s *Server) Unmount() error {
	if s.fuse == nil {
		return nil
	}
	if err := s.fuse.Unmount(); err != nil {
		return err
	}
	s.fuse = nil
	return nil
}

// Close unmounts if needed, stops the cache and closes the storage
func (s *Server) Close() error {
	var errs []error
	if err := s.Unmount(); err != nil {
		errs = append(errs, err)
	}
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
	}
	errs = append(errs, s.storage.Close())
	return errors.Join(errs...)
}
