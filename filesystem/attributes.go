package filesystem

import (
	"errors"
	iofs "io/fs"
	"strings"

	"github.com/themodernway/themodernway-server-core-sub001/paths"
)

// Attributes is a point-in-time snapshot of a backing path.
// When the probe itself failed every flag is false and Err holds the cause.
type Attributes struct {
	Exists   bool
	Hidden   bool
	Readable bool
	Writable bool
	File     bool
	Folder   bool
	Err      error
}

// IsValidForReading reports whether content may be read from the path
func (a Attributes) IsValidForReading() bool {
	return a.Exists && a.File && a.Readable && !a.Hidden
}

// probe stats abs on the storage medium. Nothing past existence is
// computed for a missing path.
func probe(s *Storage, abs, vpath string) Attributes {
	info, err := s.medium.Stat(abs)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return Attributes{}
		}
		return Attributes{Err: err}
	}
	return Attributes{
		Exists:   true,
		Hidden:   vpath != paths.Root && isHiddenName(paths.Name(vpath)),
		Readable: mediumAllows(s.medium, abs, info, false),
		Writable: s.IsWritable() && mediumAllows(s.medium, abs, info, true),
		File:     info.Mode().IsRegular(),
		Folder:   info.IsDir(),
	}
}

func isHiddenName(name string) bool {
	return strings.HasPrefix(name, ".")
}

// modeAllows checks the owner permission bits
func modeAllows(info iofs.FileInfo, write bool) bool {
	if write {
		return info.Mode().Perm()&0o200 != 0
	}
	return info.Mode().Perm()&0o400 != 0
}
