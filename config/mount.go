package config

// MountOptions holds high-level settings for the read-only FUSE view.
// No go-fuse types are exposed here.
type MountOptions struct {
	Debug      bool   // fuse debug logs
	FsName     string // mount's FsName
	Name       string // mount's Name
	AllowOther bool   // let other users access the mount
}
