package requests

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	vfs "github.com/themodernway/themodernway-server-core-sub001"
	"github.com/themodernway/themodernway-server-core-sub001/filesystem"
	"github.com/themodernway/themodernway-server-core-sub001/internal/util"
)

var ErrNoSource = errors.New("no source could be opened")

// Result is the outcome of one applied request
type Result struct {
	UUID string
	Path string
	Type vfs.NodeRequestType
	Node filesystem.Node // nil when Err is set
	Err  error
}

// Apply creates the requested nodes below folder. Dir requests run first so
// file requests may land in them. Files take their content from the first
// source, by priority, that opens. A failed request does not stop the rest.
func Apply(ctx context.Context, folder *filesystem.FolderNode, reqs []vfs.Request) []Result {
	logger := util.GetLogger("Requests")

	ordered := slices.Clone(reqs)
	slices.SortStableFunc(ordered, func(a, b vfs.Request) int {
		return cmp.Compare(rank(a), rank(b))
	})

	results := make([]Result, 0, len(ordered))
	created := 0
	for _, req := range ordered {
		if err := ctx.Err(); err != nil {
			results = append(results, failed(req, err))
			continue
		}
		res := Result{UUID: req.Node().UUID, Path: req.Node().Path, Type: req.Node().Type}
		switch r := req.(type) {
		case *vfs.DirRequest:
			res.Node, res.Err = applyDir(folder, r)
		case *vfs.FileRequest:
			res.Node, res.Err = applyFile(ctx, folder, r)
		default:
			res.Err = fmt.Errorf("unsupported request %T", req)
		}
		if res.Err != nil {
			res.Node = nil
			logger.Warn().Err(res.Err).Str("uuid", res.UUID).Str("path", res.Path).Msg("Failed to apply request")
		} else {
			created++
			logger.Debug().Str("uuid", res.UUID).Str("path", res.Path).Str("type", string(res.Type)).Msg("Applied request")
		}
		results = append(results, res)
	}
	logger.Info().Int("requests", len(reqs)).Int("applied", created).Msg("Applied manifest")
	return results
}

func rank(r vfs.Request) int {
	if _, ok := r.(*vfs.DirRequest); ok {
		return 0
	}
	return 1
}

func failed(req vfs.Request, err error) Result {
	n := req.Node()
	return Result{UUID: n.UUID, Path: n.Path, Type: n.Type, Err: err}
}

func applyDir(folder *filesystem.FolderNode, r *vfs.DirRequest) (filesystem.Node, error) {
	return folder.Mkdirs(r.Path)
}

func applyFile(ctx context.Context, folder *filesystem.FolderNode, r *vfs.FileRequest) (filesystem.Node, error) {
	logger := util.GetLogger("Requests")

	sources := slices.Clone(r.Sources)
	slices.SortStableFunc(sources, func(a, b vfs.Source) int {
		return cmp.Compare(a.Priority, b.Priority)
	})

	var errs []error
	for i, src := range sources {
		rc, err := src.Open(ctx)
		if err != nil {
			logger.Debug().Err(err).Str("path", r.Path).Int("source", i).Msg("Source failed, trying next")
			errs = append(errs, err)
			continue
		}
		node, err := folder.Create(r.Path, rc)
		rc.Close()
		return node, err
	}
	return nil, fmt.Errorf("%w for %q: %w", ErrNoSource, r.Path, errors.Join(errs...))
}

// Failed returns the results that carry an error
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
