// Package tree renders the contents of a directory as the lines of a text tree.
package tree

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/hashicorp/go-multierror"
)

// Rendering glyphs. The output must match them byte for byte.
const (
	VerticalGlyph      = "│"
	ElbowGlyph         = "└──"
	BranchGlyph        = "├──"
	ContinuationPrefix = "│   "
	BlankPrefix        = "    "
)

// PermissionPolicy decides what happens when a nested directory cannot be listed.
type PermissionPolicy int

const (
	// PermissionPolicySkip reports the directory through Warn, leaves its contents out and continues.
	PermissionPolicySkip PermissionPolicy = iota
	// PermissionPolicyAbort stops the whole build with ErrPermissionDenied.
	PermissionPolicyAbort
)

const (
	errorNegativeDepthFormat = "%w: max depth %d is negative"
	errorUnknownPolicyFormat = "%w: unknown permission policy %d"
	entryLineFormat          = "%s%s %s"
	directoryEntryLineFormat = "%s%s %s%s"
	headerLineFormat         = "%s%s"
	pathSeparator            = string(filepath.Separator)
)

// BuilderOptions configures a TreeBuilder.
type BuilderOptions struct {
	// DirOnly leaves files out of the tree.
	DirOnly bool
	// MaxDepth limits how many directory levels are expanded. Nil means unlimited.
	MaxDepth *int
	// FileSystem defaults to the host operating system.
	FileSystem       FileSystem
	PermissionPolicy PermissionPolicy
	// Compact drops the standalone spacer lines around nested directories.
	Compact bool
	// Warn receives every subtree skipped under PermissionPolicySkip.
	Warn func(skipError error)
}

// TreeBuilder walks a directory and produces the rendered tree lines.
type TreeBuilder struct {
	rootPath string
	options  BuilderOptions
	skipped  *multierror.Error
}

type workItemKind int

const (
	workItemLine workItemKind = iota
	workItemDirectory
)

// traversalFrame is the state of one directory waiting to be expanded.
type traversalFrame struct {
	directory string
	prefix    string
	depth     int
}

type workItem struct {
	kind  workItemKind
	line  string
	frame traversalFrame
}

// NewTreeBuilder validates the options and returns a builder for rootPath. No I/O is performed.
func NewTreeBuilder(rootPath string, options BuilderOptions) (*TreeBuilder, error) {
	if options.MaxDepth != nil {
		if *options.MaxDepth < 0 {
			return nil, fmt.Errorf(errorNegativeDepthFormat, ErrInvalidConfiguration, *options.MaxDepth)
		}
		maxDepth := *options.MaxDepth
		options.MaxDepth = &maxDepth
	}
	if options.PermissionPolicy != PermissionPolicySkip && options.PermissionPolicy != PermissionPolicyAbort {
		return nil, fmt.Errorf(errorUnknownPolicyFormat, ErrInvalidConfiguration, options.PermissionPolicy)
	}
	if options.FileSystem == nil {
		options.FileSystem = NewOSFileSystem()
	}
	if options.Warn == nil {
		options.Warn = func(error) {}
	}
	return &TreeBuilder{rootPath: filepath.Clean(rootPath), options: options}, nil
}

// Build walks the root directory depth first and returns the rendered lines.
// The first line is always the root path followed by the path separator.
func (treeBuilder *TreeBuilder) Build() ([]string, error) {
	treeBuilder.skipped = nil
	if validationError := treeBuilder.validateRoot(); validationError != nil {
		return nil, validationError
	}

	lines := []string{fmt.Sprintf(headerLineFormat, treeBuilder.rootPath, pathSeparator)}
	stack := []workItem{{kind: workItemDirectory, frame: traversalFrame{directory: treeBuilder.rootPath}}}
	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if item.kind == workItemLine {
			lines = append(lines, item.line)
			continue
		}
		childItems, expandError := treeBuilder.expandDirectory(item.frame)
		if expandError != nil {
			if !treeBuilder.canSkip(item.frame, expandError) {
				return nil, expandError
			}
			treeBuilder.skipped = multierror.Append(treeBuilder.skipped, expandError)
			treeBuilder.options.Warn(expandError)
			continue
		}
		for index := len(childItems) - 1; index >= 0; index-- {
			stack = append(stack, childItems[index])
		}
	}
	return lines, nil
}

// Skipped returns the aggregate of subtrees left out by the last Build, or nil.
func (treeBuilder *TreeBuilder) Skipped() error {
	return treeBuilder.skipped.ErrorOrNil()
}

func (treeBuilder *TreeBuilder) validateRoot() error {
	fileSystem := treeBuilder.options.FileSystem
	exists, existsError := fileSystem.Exists(treeBuilder.rootPath)
	if existsError != nil {
		return classifyFileSystemError(treeBuilder.rootPath, existsError)
	}
	if !exists {
		return fmt.Errorf(errorKindPathOnlyFormat, ErrPathNotFound, treeBuilder.rootPath)
	}
	isDirectory, isDirectoryError := fileSystem.IsDirectory(treeBuilder.rootPath)
	if isDirectoryError != nil {
		return classifyFileSystemError(treeBuilder.rootPath, isDirectoryError)
	}
	if !isDirectory {
		return fmt.Errorf(errorKindPathOnlyFormat, ErrNotADirectory, treeBuilder.rootPath)
	}
	return nil
}

// canSkip reports whether a failed expansion may be left out instead of aborting the build.
// The root directory is never skipped.
func (treeBuilder *TreeBuilder) canSkip(frame traversalFrame, expandError error) bool {
	if frame.depth == 0 || treeBuilder.options.PermissionPolicy != PermissionPolicySkip {
		return false
	}
	return errors.Is(expandError, ErrPermissionDenied)
}

// expandDirectory returns the pending lines and subdirectories of one directory in output order.
func (treeBuilder *TreeBuilder) expandDirectory(frame traversalFrame) ([]workItem, error) {
	if treeBuilder.options.MaxDepth != nil && frame.depth >= *treeBuilder.options.MaxDepth {
		return nil, nil
	}
	entries, prepareError := treeBuilder.prepareEntries(frame.directory)
	if prepareError != nil {
		return nil, prepareError
	}

	lastIndex := len(entries) - 1
	items := make([]workItem, 0, len(entries))
	for index, entry := range entries {
		connector := BranchGlyph
		childPrefix := frame.prefix + ContinuationPrefix
		if index == lastIndex {
			connector = ElbowGlyph
			childPrefix = frame.prefix + BlankPrefix
		}
		if !entry.IsDirectory {
			items = append(items, lineItem(fmt.Sprintf(entryLineFormat, frame.prefix, connector, entry.Name)))
			continue
		}
		if index == 0 && !treeBuilder.options.Compact {
			items = append(items, lineItem(frame.prefix+VerticalGlyph))
		}
		items = append(items, lineItem(fmt.Sprintf(directoryEntryLineFormat, frame.prefix, connector, entry.Name, pathSeparator)))
		items = append(items, workItem{
			kind:  workItemDirectory,
			frame: traversalFrame{directory: entry.Path, prefix: childPrefix, depth: frame.depth + 1},
		})
		if closingLine := strings.TrimRightFunc(childPrefix, unicode.IsSpace); closingLine != "" && !treeBuilder.options.Compact {
			items = append(items, lineItem(closingLine))
		}
	}
	return items, nil
}

// prepareEntries lists a directory sorted by path. Entries that are not regular files,
// directories and dangling links among them, are moved ahead of the files.
func (treeBuilder *TreeBuilder) prepareEntries(directory string) ([]DirectoryEntry, error) {
	entries, listError := treeBuilder.options.FileSystem.ListChildren(directory)
	if listError != nil {
		return nil, classifyFileSystemError(directory, listError)
	}
	sort.Slice(entries, func(left, right int) bool {
		return entries[left].Path < entries[right].Path
	})
	if treeBuilder.options.DirOnly {
		directories := entries[:0]
		for _, entry := range entries {
			if entry.IsDirectory {
				directories = append(directories, entry)
			}
		}
		return directories, nil
	}
	sort.SliceStable(entries, func(left, right int) bool {
		return !entries[left].IsFile && entries[right].IsFile
	})
	return entries, nil
}

func lineItem(line string) workItem {
	return workItem{kind: workItemLine, line: line}
}
