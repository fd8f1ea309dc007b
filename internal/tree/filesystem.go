package tree

import (
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
)

// DirectoryEntry is a single file system node read from a directory listing.
// IsDirectory and IsFile describe the symlink target when the entry is a link;
// a dangling link is neither.
type DirectoryEntry struct {
	Name        string
	IsDirectory bool
	IsFile      bool
	Path        string
}

// FileSystem is the narrow view of the file system the tree builder depends on.
type FileSystem interface {
	Exists(path string) (bool, error)
	IsDirectory(path string) (bool, error)
	ListChildren(path string) ([]DirectoryEntry, error)
}

// AferoFileSystem implements FileSystem on top of an afero file system.
type AferoFileSystem struct {
	Fs afero.Fs
}

// NewOSFileSystem returns a FileSystem backed by the host operating system.
func NewOSFileSystem() *AferoFileSystem {
	return &AferoFileSystem{Fs: afero.NewOsFs()}
}

// NewAferoFileSystem wraps an arbitrary afero file system, such as afero.NewMemMapFs.
func NewAferoFileSystem(backingFileSystem afero.Fs) *AferoFileSystem {
	return &AferoFileSystem{Fs: backingFileSystem}
}

// Exists reports whether path exists.
func (fileSystem *AferoFileSystem) Exists(path string) (bool, error) {
	return afero.Exists(fileSystem.Fs, path)
}

// IsDirectory reports whether path is a directory.
func (fileSystem *AferoFileSystem) IsDirectory(path string) (bool, error) {
	return afero.IsDir(fileSystem.Fs, path)
}

// ListChildren returns the immediate children of the directory at path.
// Symbolic links are resolved, so a link to a directory is listed as a directory.
func (fileSystem *AferoFileSystem) ListChildren(path string) ([]DirectoryEntry, error) {
	fileInfos, readDirectoryError := afero.ReadDir(fileSystem.Fs, path)
	if readDirectoryError != nil {
		return nil, readDirectoryError
	}
	entries := make([]DirectoryEntry, 0, len(fileInfos))
	for _, fileInfo := range fileInfos {
		entryPath := filepath.Join(path, fileInfo.Name())
		mode := fileInfo.Mode()
		if mode&fs.ModeSymlink != 0 {
			if targetInfo, statError := fileSystem.Fs.Stat(entryPath); statError == nil {
				mode = targetInfo.Mode()
			}
		}
		entries = append(entries, DirectoryEntry{
			Name:        fileInfo.Name(),
			IsDirectory: mode.IsDir(),
			IsFile:      mode.IsRegular(),
			Path:        entryPath,
		})
	}
	return entries, nil
}

var _ FileSystem = (*AferoFileSystem)(nil)
