package config

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/themodernway/themodernway-server-core-sub001/internal/util"
	"gopkg.in/yaml.v3"
)

// Config contains runtime configuration values for a storage, its content
// cache and the optional FUSE view.
type Config struct {
	MountOptions
	LogLvl util.LogLevel // internal log level derived from the verbosity 1-5 (Default info)

	StorageName         string // name used in errors and logs (Default "content")
	BasePath            string // absolute root of the storage on disk (Default /srv/content)
	Writable            bool   // allow create/mkdir/delete (Default true)
	AttributesPreferred bool   // probe attributes once per operation (Default true)
	CreateBase          bool   // create BasePath when missing (Default false)

	CacheEnabled       bool    // put a content cache in front of reads (Default true)
	CacheIdleTimeout   float64 // seconds a snapshot survives without access (Default 30)
	CacheMaxEntries    int     // upper bound on held snapshots, 0 is unbounded (Default 0)
	CacheSweepInterval float64 // seconds between background sweeps, 0 disables them (Default 15)

	ContentTypes map[string]string // extension to MIME type overrides

	// NOTE: Low-level FUSE config (strongly recommend defaults unless you really know what you're doing):

	AttrTimeout  float64 // Attribute cache timeout in seconds (Default 1.0)
	EntryTimeout float64 // Directory entry cache timeout in seconds (Default 1.0)
}

// IdleTimeout returns CacheIdleTimeout as a duration
func (c *Config) IdleTimeout() time.Duration {
	return seconds(c.CacheIdleTimeout)
}

// SweepInterval returns CacheSweepInterval as a duration
func (c *Config) SweepInterval() time.Duration {
	return seconds(c.CacheSweepInterval)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
type ConfigOverride struct {
	LogLvl *int `yaml:"log_level,omitempty" json:"log_level,omitempty"` // verbosity 1 (error) to 5 (trace)

	StorageName         *string `yaml:"storage_name,omitempty" json:"storage_name,omitempty"`
	BasePath            *string `yaml:"base_path,omitempty" json:"base_path,omitempty"`
	Writable            *bool   `yaml:"writable,omitempty" json:"writable,omitempty"`
	AttributesPreferred *bool   `yaml:"attributes_preferred,omitempty" json:"attributes_preferred,omitempty"`
	CreateBase          *bool   `yaml:"create_base,omitempty" json:"create_base,omitempty"`

	CacheEnabled       *bool    `yaml:"cache_enabled,omitempty" json:"cache_enabled,omitempty"`
	CacheIdleTimeout   *float64 `yaml:"cache_idle_timeout,omitempty" json:"cache_idle_timeout,omitempty"`
	CacheMaxEntries    *int     `yaml:"cache_max_entries,omitempty" json:"cache_max_entries,omitempty"`
	CacheSweepInterval *float64 `yaml:"cache_sweep_interval,omitempty" json:"cache_sweep_interval,omitempty"`

	ContentTypes map[string]string `yaml:"content_types,omitempty" json:"content_types,omitempty"`

	AttrTimeout  *float64 `yaml:"attr_timeout,omitempty" json:"attr_timeout,omitempty"`
	EntryTimeout *float64 `yaml:"entry_timeout,omitempty" json:"entry_timeout,omitempty"`

	Debug      *bool   `yaml:"debug,omitempty" json:"debug,omitempty"`
	FsName     *string `yaml:"fs_name,omitempty" json:"fs_name,omitempty"`
	Name       *string `yaml:"name,omitempty" json:"name,omitempty"`
	AllowOther *bool   `yaml:"allow_other,omitempty" json:"allow_other,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		MountOptions: MountOptions{
			FsName: DefaultFsName,
			Name:   DefaultName,
		},
		LogLvl:              DefaultLogLvl,
		StorageName:         DefaultStorageName,
		BasePath:            DefaultBasePath,
		Writable:            DefaultWritable,
		AttributesPreferred: DefaultAttributesPreferred,
		CreateBase:          DefaultCreateBase,
		CacheEnabled:        DefaultCacheEnabled,
		CacheIdleTimeout:    DefaultCacheIdleTimeout,
		CacheMaxEntries:     DefaultCacheMaxEntries,
		CacheSweepInterval:  DefaultCacheSweepInterval,
		AttrTimeout:         DefaultAttrTimeout,
		EntryTimeout:        DefaultEntryTimeout,
	}
}

// NewConfig creates a Config from defaults with override applied on top.
// A nil override yields the defaults.
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
// Content type overrides are added to the existing ones.
func (c *Config) Merge(override *ConfigOverride) {
	if override.LogLvl != nil {
		c.LogLvl = verbosityToLevel(*override.LogLvl)
	}
	if override.StorageName != nil {
		c.StorageName = *override.StorageName
	}
	if override.BasePath != nil {
		c.BasePath = *override.BasePath
	}
	if override.Writable != nil {
		c.Writable = *override.Writable
	}
	if override.AttributesPreferred != nil {
		c.AttributesPreferred = *override.AttributesPreferred
	}
	if override.CreateBase != nil {
		c.CreateBase = *override.CreateBase
	}
	if override.CacheEnabled != nil {
		c.CacheEnabled = *override.CacheEnabled
	}
	if override.CacheIdleTimeout != nil {
		c.CacheIdleTimeout = *override.CacheIdleTimeout
	}
	if override.CacheMaxEntries != nil {
		c.CacheMaxEntries = *override.CacheMaxEntries
	}
	if override.CacheSweepInterval != nil {
		c.CacheSweepInterval = *override.CacheSweepInterval
	}
	if len(override.ContentTypes) > 0 {
		if c.ContentTypes == nil {
			c.ContentTypes = make(map[string]string, len(override.ContentTypes))
		}
		maps.Copy(c.ContentTypes, override.ContentTypes)
	}
	if override.AttrTimeout != nil {
		c.AttrTimeout = *override.AttrTimeout
	}
	if override.EntryTimeout != nil {
		c.EntryTimeout = *override.EntryTimeout
	}
	if override.Debug != nil {
		c.Debug = *override.Debug
	}
	if override.FsName != nil {
		c.FsName = *override.FsName
	}
	if override.Name != nil {
		c.Name = *override.Name
	}
	if override.AllowOther != nil {
		c.AllowOther = *override.AllowOther
	}
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	// Determine format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults.
// This is a convenience function that combines NewDefaultConfig, LoadConfigOverrideFile, and Merge.
func NewConfigFromFile(path string) (*Config, error) {
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	return NewConfig(override), nil
}
