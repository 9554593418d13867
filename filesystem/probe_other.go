//go:build !unix

package filesystem

import (
	iofs "io/fs"

	"github.com/spf13/afero"
)

func mediumAllows(_ afero.Fs, _ string, info iofs.FileInfo, write bool) bool {
	return modeAllows(info, write)
}
