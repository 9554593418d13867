package filesystem

import (
	"iter"
	"path"

	"github.com/spf13/afero"
	"github.com/themodernway/themodernway-server-core-sub001/internal/util"
	"github.com/themodernway/themodernway-server-core-sub001/paths"
)

// ItemOption selects what [FolderNode.Items] yields
type ItemOption uint8

const (
	ItemFile      ItemOption = 1 << iota // files
	ItemFolder                           // folders
	ItemRecursive                        // walk the whole subtree
)

type itemSet ItemOption

func newItemSet(opts []ItemOption) itemSet {
	var set itemSet
	for _, o := range opts {
		set |= itemSet(o)
	}
	// no kind selected means both kinds
	if set&itemSet(ItemFile|ItemFolder) == 0 {
		set |= itemSet(ItemFile | ItemFolder)
	}
	return set
}

func (s itemSet) has(o ItemOption) bool {
	return s&itemSet(o) != 0
}

// Items lists the children of the folder, ordered by name. Hidden entries and
// entries whose names don't resolve back to themselves are never yielded and with [ItemRecursive] hidden folders are not descended
// into. The folder itself is never part of the result.
//
// The folder is checked up front; each folder's entries are read lazily as
// the sequence is consumed. Read errors are yielded and end the sequence.
func (f *FolderNode) Items(opts ...ItemOption) (iter.Seq2[Node, error], error) {
	const op = "items"

	ctx, err := f.begin(op)
	if err != nil {
		return nil, err
	}
	defer ctx.Close()

	if err := ctx.readTest(); err != nil {
		return nil, err
	}
	folder, err := ctx.is(func(a Attributes) bool { return a.Folder })
	if err != nil {
		return nil, err
	}
	if !folder {
		return nil, ctx.fail(ErrNotFolder)
	}

	set := newItemSet(opts)
	return func(yield func(Node, error) bool) {
		f.walk(f.abs, f.vpath, set, yield)
	}, nil
}

// walk returns false once the consumer stopped or an error was yielded
func (f *FolderNode) walk(abs, vpath string, set itemSet, yield func(Node, error) bool) bool {
	s := f.storage
	if err := s.Validate(); err != nil {
		yield(nil, newError("items", s.name, vpath, err))
		return false
	}
	infos, err := afero.ReadDir(s.medium, abs)
	if err != nil {
		yield(nil, newError("items", s.name, vpath, err))
		return false
	}
	for _, info := range infos {
		if isHiddenName(info.Name()) {
			continue
		}
		childAbs := path.Join(abs, info.Name())
		childPath := path.Join(vpath, info.Name())
		if v, err := paths.Resolve(paths.Root, childPath); err != nil || v != childPath {
			// names like "~tmp" resolve to another path and can't be reached again
			logger := util.GetLogger("Storage")
			logger.Debug().Str("storage", s.name).Str("path", childPath).Msg("Skipped unresolvable entry")
			continue
		}
		if !info.IsDir() {
			if set.has(ItemFile) && !yield(s.fileAt(childAbs, childPath), nil) {
				return false
			}
			continue
		}
		if set.has(ItemFolder) && !yield(s.folderAt(childAbs, childPath), nil) {
			return false
		}
		if set.has(ItemRecursive) && !f.walk(childAbs, childPath, set, yield) {
			return false
		}
	}
	return true
}
