//go:build unix

package filesystem

import (
	iofs "io/fs"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

// mediumAllows asks the kernel through access(2) on the OS medium and falls
// back to permission bits on every other afero medium.
func mediumAllows(medium afero.Fs, abs string, info iofs.FileInfo, write bool) bool {
	if _, ok := medium.(*afero.OsFs); !ok {
		return modeAllows(info, write)
	}
	mode := uint32(unix.R_OK)
	if write {
		mode = unix.W_OK
	}
	return unix.Access(abs, mode) == nil
}
