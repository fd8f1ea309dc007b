package tree

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// Error kinds reported by the tree builder and writer. Callers match them with errors.Is.
var (
	ErrPathNotFound         = errors.New("path not found")
	ErrNotADirectory        = errors.New("not a directory")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrWriteFailure         = errors.New("write failure")
)

const (
	errorKindPathNotFound         = "PathNotFound"
	errorKindNotADirectory        = "NotADirectory"
	errorKindPermissionDenied     = "PermissionDenied"
	errorKindInvalidConfiguration = "InvalidConfiguration"
	errorKindWriteFailure         = "WriteFailure"
	errorKindGeneric              = "Error"

	// errorKindPathFormat joins an error kind, the affected path and the underlying cause.
	errorKindPathFormat = "%w: %s: %w"
	// errorKindPathOnlyFormat joins an error kind with the affected path.
	errorKindPathOnlyFormat = "%w: %s"
	errorAccessPathFormat   = "accessing %s: %w"
)

var errorKindNames = []struct {
	kind error
	name string
}{
	{ErrPathNotFound, errorKindPathNotFound},
	{ErrNotADirectory, errorKindNotADirectory},
	{ErrPermissionDenied, errorKindPermissionDenied},
	{ErrInvalidConfiguration, errorKindInvalidConfiguration},
	{ErrWriteFailure, errorKindWriteFailure},
}

// ErrorKind returns the name of the first error kind found in the chain of err.
// An empty string is returned for a nil error.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, candidate := range errorKindNames {
		if errors.Is(err, candidate.kind) {
			return candidate.name
		}
	}
	return errorKindGeneric
}

// classifyFileSystemError tags a file system failure for path with the matching error kind.
// A path running through a regular file (ENOTDIR) does not exist.
func classifyFileSystemError(path string, fileSystemError error) error {
	switch {
	case errors.Is(fileSystemError, fs.ErrPermission):
		return fmt.Errorf(errorKindPathFormat, ErrPermissionDenied, path, fileSystemError)
	case errors.Is(fileSystemError, fs.ErrNotExist), errors.Is(fileSystemError, syscall.ENOTDIR):
		return fmt.Errorf(errorKindPathFormat, ErrPathNotFound, path, fileSystemError)
	default:
		return fmt.Errorf(errorAccessPathFormat, path, fileSystemError)
	}
}
