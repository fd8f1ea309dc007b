package tree

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
)

const (
	// FenceMarker opens and closes the code block wrapped around trees written to a file.
	FenceMarker = "```"

	outputFileMode         = 0o644
	outputFileOpenFlags    = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	errorOpenOutputFormat  = "%w: opening %s: %w"
	errorWriteOutputFormat = "%w: writing %s: %w"
	errorCloseOutputFormat = "%w: closing %s: %w"
	errorRenderHookFormat  = "handling rendered tree: %w"
	standardOutputName     = "standard output"
)

// Destination selects where a TreeWriter delivers the rendered tree.
type Destination struct {
	filePath string
}

// StandardOutputDestination writes the tree unwrapped to the standard output stream.
func StandardOutputDestination() Destination {
	return Destination{}
}

// FileDestination writes the tree wrapped in fence markers to the file at filePath.
// An empty path selects standard output.
func FileDestination(filePath string) Destination {
	return Destination{filePath: filePath}
}

// IsStandardOutput reports whether the destination is the standard output stream.
func (destination Destination) IsStandardOutput() bool {
	return destination.filePath == ""
}

// FilePath returns the output file path, empty for standard output.
func (destination Destination) FilePath() string {
	return destination.filePath
}

func (destination Destination) String() string {
	if destination.IsStandardOutput() {
		return standardOutputName
	}
	return destination.filePath
}

// WriterConfiguration holds everything a TreeWriter needs.
type WriterConfiguration struct {
	RootPath    string
	Builder     BuilderOptions
	Destination Destination

	// StandardOutput defaults to os.Stdout. It is never closed.
	StandardOutput io.Writer

	// OutputFileSystem hosts file destinations and defaults to the operating system.
	OutputFileSystem afero.Fs

	// OnRendered receives the unwrapped lines before they are written.
	OnRendered func(lines []string) error
}

// TreeWriter builds a tree and delivers it to its destination.
type TreeWriter struct {
	builder          *TreeBuilder
	destination      Destination
	standardOutput   io.Writer
	outputFileSystem afero.Fs
	onRendered       func(lines []string) error
}

// NewTreeWriter validates the configuration and returns a writer.
func NewTreeWriter(configuration WriterConfiguration) (*TreeWriter, error) {
	builder, builderError := NewTreeBuilder(configuration.RootPath, configuration.Builder)
	if builderError != nil {
		return nil, builderError
	}
	treeWriter := &TreeWriter{
		builder:          builder,
		destination:      configuration.Destination,
		standardOutput:   configuration.StandardOutput,
		outputFileSystem: configuration.OutputFileSystem,
		onRendered:       configuration.OnRendered,
	}
	if treeWriter.standardOutput == nil {
		treeWriter.standardOutput = os.Stdout
	}
	if treeWriter.outputFileSystem == nil {
		treeWriter.outputFileSystem = afero.NewOsFs()
	}
	return treeWriter, nil
}

// Builder exposes the underlying builder, whose Skipped reports subtrees left out by Generate.
func (treeWriter *TreeWriter) Builder() *TreeBuilder {
	return treeWriter.builder
}

// Generate builds the tree and writes it. Builder errors are returned unchanged.
func (treeWriter *TreeWriter) Generate() error {
	lines, buildError := treeWriter.builder.Build()
	if buildError != nil {
		return buildError
	}
	if treeWriter.onRendered != nil {
		if hookError := treeWriter.onRendered(lines); hookError != nil {
			return fmt.Errorf(errorRenderHookFormat, hookError)
		}
	}
	if treeWriter.destination.IsStandardOutput() {
		return writeLines(treeWriter.standardOutput, lines, standardOutputName)
	}
	wrapped := make([]string, 0, len(lines)+2)
	wrapped = append(wrapped, FenceMarker)
	wrapped = append(wrapped, lines...)
	wrapped = append(wrapped, FenceMarker)
	return treeWriter.writeFile(wrapped)
}

// writeFile creates or truncates the destination file and always closes it.
func (treeWriter *TreeWriter) writeFile(lines []string) (err error) {
	filePath := treeWriter.destination.FilePath()
	outputFile, openError := treeWriter.outputFileSystem.OpenFile(filePath, outputFileOpenFlags, outputFileMode)
	if openError != nil {
		return fmt.Errorf(errorOpenOutputFormat, ErrWriteFailure, filePath, openError)
	}
	defer func() {
		if closeError := outputFile.Close(); closeError != nil && err == nil {
			err = fmt.Errorf(errorCloseOutputFormat, ErrWriteFailure, filePath, closeError)
		}
	}()
	return writeLines(outputFile, lines, filePath)
}

func writeLines(target io.Writer, lines []string, targetName string) error {
	bufferedWriter := bufio.NewWriter(target)
	for _, line := range lines {
		if _, writeError := bufferedWriter.WriteString(line + "\n"); writeError != nil {
			return fmt.Errorf(errorWriteOutputFormat, ErrWriteFailure, targetName, writeError)
		}
	}
	if flushError := bufferedWriter.Flush(); flushError != nil {
		return fmt.Errorf(errorWriteOutputFormat, ErrWriteFailure, targetName, flushError)
	}
	return nil
}
