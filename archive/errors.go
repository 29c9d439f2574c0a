package archive

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by providers.
var (
	// ErrUnsupported means the provider cannot perform the operation at
	// all, as opposed to failing at it. The delegated provider returns
	// this from direct file I/O.
	ErrUnsupported = errors.New("operation not supported by this provider")

	// ErrCorrupted means the archive bytes are structurally broken.
	ErrCorrupted = errors.New("archive is corrupted")
)

// NotFoundError reports a missing archive file.
type NotFoundError struct {
	Path string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("archive not found: %s", e.Path)
}

// PermissionError reports an archive path the process may not touch.
type PermissionError struct {
	Path string
	Err  error
}

func (e PermissionError) Error() string {
	return fmt.Sprintf("permission denied: %s", e.Path)
}

func (e PermissionError) Unwrap() error { return e.Err }

// IOError wraps any other filesystem failure.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e IOError) Unwrap() error { return e.Err }
