package config

import "github.com/themodernway/themodernway-server-core-sub001/internal/util"

// Log verbosity as given on the command line or in an override file.
// Higher is chattier; values outside the range are clamped.
const (
	ErrorVerbose = iota + 1
	WarnVerbose
	InfoVerbose
	DebugVerbose
	TraceVerbose
)

// Default configuration constants. See [Config] for field descriptions.
const (
	DefaultLogLvl = util.InfoLevel

	DefaultStorageName         = "content"
	DefaultBasePath            = "/srv/content"
	DefaultWritable            = true
	DefaultAttributesPreferred = true
	DefaultCreateBase          = false

	DefaultCacheEnabled       = true
	DefaultCacheIdleTimeout   = 30.0
	DefaultCacheMaxEntries    = 0
	DefaultCacheSweepInterval = 15.0

	// DefaultAttrTimeout is the FUSE attribute cache timeout in seconds
	DefaultAttrTimeout = 1.0
	// DefaultEntryTimeout is the FUSE directory entry cache timeout in seconds
	DefaultEntryTimeout = 1.0

	DefaultFsName = "vfs"
	DefaultName   = "vfsctl"
)

// verbosityToLevel maps a clamped verbosity onto a util log level
func verbosityToLevel(v int) util.LogLevel {
	v = max(ErrorVerbose, min(TraceVerbose, v))
	return util.ErrorLevel - util.LogLevel(v-ErrorVerbose)
}
