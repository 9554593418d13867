// Package cache keeps immutable content snapshots of storage files keyed by
// virtual path. Each key is populated at most once at a time and snapshots
// are evicted after a period without access.
package cache

import (
	"io"
	iofs "io/fs"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/themodernway/themodernway-server-core-sub001/filesystem"
	"github.com/themodernway/themodernway-server-core-sub001/internal/util"
	"github.com/themodernway/themodernway-server-core-sub001/paths"
)

// DefaultIdleTimeout is how long a snapshot survives without being accessed
const DefaultIdleTimeout = 30 * time.Second

// Cause tells why a snapshot left the cache
type Cause int

const (
	Expired  Cause = iota // idle longer than the idle timeout
	Explicit              // Remove or Clear
	Size                  // pushed out by MaxEntries
	Other                 // storage closed
)

func (c Cause) String() string {
	switch c {
	case Expired:
		return "EXPIRED"
	case Explicit:
		return "EXPLICIT"
	case Size:
		return "SIZE"
	default:
		return "OTHER"
	}
}

// Notification describes one eviction. Node is nil when the entry was still
// being populated.
type Notification struct {
	Key   string
	Cause Cause
	Node  *CacheNode
}

// Options configure a [ContentCache]
type Options struct {
	IdleTimeout   time.Duration         // (Default: 30s)
	MaxEntries    int                   // 0 means unbounded
	SweepInterval time.Duration         // background sweep period; negative disables it (Default: IdleTimeout/2)
	OnEvict       func(Notification)    // called synchronously for every eviction
	Registerer    prometheus.Registerer // metrics registry; nil leaves metrics unregistered, same-named storages share series
	Now           func() time.Time      // clock (Default: time.Now)
}

// entry is pending until ready is closed. node stays nil when the key turned
// out to be absent.
type entry struct {
	ready      chan struct{}
	node       *CacheNode
	lastAccess atomic.Int64
}

func (e *entry) isReady() bool {
	select {
	case <-e.ready:
		return true
	default:
		return false
	}
}

// populated reports whether the entry holds a snapshot, without blocking
func (e *entry) populated() bool {
	return e.isReady() && e.node != nil
}

// ContentCache maps virtual paths of one Storage to [CacheNode] snapshots.
// It is safe for concurrent use.
type ContentCache struct {
	storage *filesystem.Storage
	idle    time.Duration
	max     int
	onEvict func(Notification)
	now     func() time.Time
	entries *xsync.Map[string, *entry]
	metrics *metrics

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a cache in front of storage and associates it with the storage
// so writes through the storage invalidate their keys.
func New(storage *filesystem.Storage, opts Options) *ContentCache {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.SweepInterval == 0 {
		opts.SweepInterval = opts.IdleTimeout / 2
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := &ContentCache{
		storage: storage,
		idle:    opts.IdleTimeout,
		max:     opts.MaxEntries,
		onEvict: opts.OnEvict,
		now:     opts.Now,
		entries: xsync.NewMap[string, *entry](),
		metrics: newMetrics(opts.Registerer, storage.Name()),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	storage.SetCache(c)
	if opts.SweepInterval > 0 {
		go c.sweepLoop(opts.SweepInterval)
	} else {
		close(c.done)
	}
	return c
}

// Storage returns the storage the cache reads from
func (c *ContentCache) Storage() *filesystem.Storage {
	return c.storage
}

// key canonicalizes a lookup key into a rooted virtual path
func key(k string) (string, bool) {
	v, err := paths.Resolve(paths.Root, k)
	return v, err == nil
}

// Get returns the snapshot for k, reading it from the storage if it is not
// cached. Concurrent callers for the same key share one read. ok is false
// when the key does not resolve to readable file content; that result is
// not cached and backing errors are only logged.
func (c *ContentCache) Get(k string) (node *CacheNode, ok bool) {
	k, ok = key(k)
	if !ok {
		c.metrics.misses.Inc()
		return nil, false
	}

	e := &entry{ready: make(chan struct{})}
	actual, loaded := c.entries.LoadOrStore(k, e)
	if loaded {
		<-actual.ready
		if actual.node == nil {
			c.metrics.misses.Inc()
			return nil, false
		}
		actual.lastAccess.Store(c.now().UnixNano())
		c.metrics.hits.Inc()
		return actual.node, true
	}

	e.node = c.populate(k)
	if e.node == nil {
		// only remove our own pending entry, a Remove may have raced us
		c.entries.Compute(k, func(old *entry, loaded bool) (*entry, xsync.ComputeOp) {
			if loaded && old == e {
				return nil, xsync.DeleteOp
			}
			return old, xsync.CancelOp
		})
		close(e.ready)
		c.metrics.misses.Inc()
		return nil, false
	}
	e.lastAccess.Store(c.now().UnixNano())
	close(e.ready)

	c.metrics.populations.Inc()
	c.metrics.misses.Inc()
	c.enforceMax()
	c.metrics.entries.Set(float64(c.Size()))
	return e.node, true
}

func (c *ContentCache) populate(k string) *CacheNode {
	logger := util.GetLogger("ContentCache")

	n, err := c.storage.Root().File(k)
	if err != nil {
		logger.Warn().Err(err).Str("key", k).Msg("Failed to resolve cache key")
		return nil
	}
	attrs, err := n.Attributes()
	if err != nil {
		logger.Error().Err(err).Str("key", k).Msg("Failed to probe cache key")
		return nil
	}
	if !attrs.IsValidForReading() {
		logger.Debug().
			Str("key", k).
			Bool("exists", attrs.Exists).
			Bool("file", attrs.File).
			Bool("readable", attrs.Readable).
			Bool("hidden", attrs.Hidden).
			Msg("Cache key not readable, entry absent")
		return nil
	}
	node, err := snapshot(n)
	if err != nil {
		logger.Error().Err(err).Str("key", k).Msg("Failed to populate cache entry")
		return nil
	}
	logger.Debug().Str("key", k).Int64("size", node.size).Str("contentType", node.contentType).Msg("Populated cache entry")
	return node
}

// snapshot reads the full content and takes the size and modification time
// from the opened file so all fields describe the same state.
func snapshot(n filesystem.Node) (*CacheNode, error) {
	contentType, err := n.ContentType()
	if err != nil {
		return nil, err
	}
	rc, err := n.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var modified time.Time
	if st, ok := rc.(interface{ Stat() (iofs.FileInfo, error) }); ok {
		info, err := st.Stat()
		if err != nil {
			return nil, err
		}
		modified = info.ModTime()
	} else if modified, err = n.LastModified(); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return &CacheNode{
		name:        n.Name(),
		path:        n.Path(),
		size:        int64(len(data)),
		modified:    modified,
		contentType: contentType,
		data:        data,
	}, nil
}

// IsDefined reports whether a snapshot for k is held. It never blocks or
// populates.
func (c *ContentCache) IsDefined(k string) bool {
	k, ok := key(k)
	if !ok {
		return false
	}
	e, ok := c.entries.Load(k)
	return ok && e.populated()
}

// Remove evicts k and reports whether an entry was present
func (c *ContentCache) Remove(k string) bool {
	k, ok := key(k)
	if !ok {
		return false
	}
	e, ok := c.entries.LoadAndDelete(k)
	if !ok {
		return false
	}
	c.evicted(k, e, Explicit)
	return true
}

// Clear evicts every entry
func (c *ContentCache) Clear() {
	c.entries.Range(func(k string, _ *entry) bool {
		if e, ok := c.entries.LoadAndDelete(k); ok {
			c.evicted(k, e, Explicit)
		}
		return true
	})
}

// Keys returns the keys of held snapshots in lexical order
func (c *ContentCache) Keys() []string {
	keys := make([]string, 0, c.entries.Size())
	c.entries.Range(func(k string, e *entry) bool {
		if e.populated() {
			keys = append(keys, k)
		}
		return true
	})
	sort.Strings(keys)
	return keys
}

// Values returns the held snapshots ordered by key
func (c *ContentCache) Values() []*CacheNode {
	keys := c.Keys()
	values := make([]*CacheNode, 0, len(keys))
	for _, k := range keys {
		if e, ok := c.entries.Load(k); ok && e.populated() {
			values = append(values, e.node)
		}
	}
	return values
}

// Size returns the number of held snapshots
func (c *ContentCache) Size() int {
	size := 0
	c.entries.Range(func(_ string, e *entry) bool {
		if e.populated() {
			size++
		}
		return true
	})
	return size
}

// Sweep evicts snapshots idle for longer than the idle timeout. While the
// storage is closed every snapshot is evicted.
func (c *ContentCache) Sweep() {
	open := c.storage.IsOpen()
	deadline := c.now().Add(-c.idle).UnixNano()
	c.entries.Range(func(k string, e *entry) bool {
		if !e.populated() {
			return true
		}
		cause := Other
		if open {
			if e.lastAccess.Load() > deadline {
				return true
			}
			cause = Expired
		}
		if c.deleteEntry(k, e) {
			c.evicted(k, e, cause)
		}
		return true
	})
}

// enforceMax evicts the least recently accessed snapshots beyond MaxEntries
func (c *ContentCache) enforceMax() {
	if c.max <= 0 {
		return
	}
	type candidate struct {
		key    string
		e      *entry
		access int64
	}
	var held []candidate
	c.entries.Range(func(k string, e *entry) bool {
		if e.populated() {
			held = append(held, candidate{k, e, e.lastAccess.Load()})
		}
		return true
	})
	if len(held) <= c.max {
		return
	}
	sort.Slice(held, func(i, j int) bool { return held[i].access < held[j].access })
	for _, cand := range held[:len(held)-c.max] {
		if c.deleteEntry(cand.key, cand.e) {
			c.evicted(cand.key, cand.e, Size)
		}
	}
}

// deleteEntry removes k only while it still maps to e
func (c *ContentCache) deleteEntry(k string, e *entry) bool {
	deleted := false
	c.entries.Compute(k, func(old *entry, loaded bool) (*entry, xsync.ComputeOp) {
		if loaded && old == e {
			deleted = true
			return nil, xsync.DeleteOp
		}
		return old, xsync.CancelOp
	})
	return deleted
}

func (c *ContentCache) evicted(k string, e *entry, cause Cause) {
	var node *CacheNode
	if e.isReady() {
		node = e.node
	}
	c.metrics.evictions.WithLabelValues(cause.String()).Inc()
	c.metrics.entries.Set(float64(c.Size()))

	logger := util.GetLogger("ContentCache")
	logger.Debug().Str("key", k).Stringer("cause", cause).Msg("Evicted cache entry")

	if c.onEvict != nil {
		c.onEvict(Notification{Key: k, Cause: cause, Node: node})
	}
}

func (c *ContentCache) sweepLoop(interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Close stops the background sweeper and detaches the cache from its
// storage. Held snapshots stay readable.
func (c *ContentCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stop)
		<-c.done
		if cur, ok := c.storage.Cache().(*ContentCache); ok && cur == c {
			c.storage.SetCache(nil)
		}
	})
	return nil
}
