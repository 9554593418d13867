package filesystem

import (
	"errors"
	"fmt"
)

// Error kinds returned by Storage and Node operations. Match them with
// errors.Is; the concrete error is usually an [*Error].
var (
	ErrStorageClosed = errors.New("storage is closed")
	ErrNotFound      = errors.New("path not found")
	ErrNotReadable   = errors.New("path is not readable")
	ErrHidden        = errors.New("path is hidden")
	ErrNotFolder     = errors.New("not a folder")
	ErrNotFile       = errors.New("can't read folder")
	ErrReadOnly      = errors.New("storage is read-only")
	ErrNotWritable   = errors.New("path is not writable")
	ErrUnresolvable  = errors.New("path can't be resolved")
	ErrProbe         = errors.New("attribute probe failed")
	ErrDeleteFailed  = errors.New("delete failed")
	ErrBasePath      = errors.New("invalid base path")
)

// Error records a failed operation on a virtual path of a named Storage
type Error struct {
	Op      string // operation, e.g. "create"
	Storage string // storage name
	Path    string // virtual path
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s [%s]: %v", e.Op, e.Path, e.Storage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// newError wraps err unless it already carries operation context
func newError(op, storage, path string, err error) error {
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	return &Error{Op: op, Storage: storage, Path: path, Err: err}
}

// probeError marks cause as an attribute probe failure
func probeError(cause error) error {
	return fmt.Errorf("%w: %w", ErrProbe, cause)
}
