// Package clipboard copies rendered trees to the system clipboard.
package clipboard

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
)

// Copier copies textual data to the system clipboard.
type Copier interface {
	Copy(text string) error
}

// SystemClipboard implements Copier using github.com/atotto/clipboard.
type SystemClipboard struct{}

// NewSystemClipboard constructs a clipboard backed by the operating system.
func NewSystemClipboard() *SystemClipboard {
	return &SystemClipboard{}
}

// Copy writes text to the system clipboard.
func (systemClipboard *SystemClipboard) Copy(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard is not supported on this system")
	}
	return clipboard.WriteAll(text)
}

// CopyLines joins lines with line terminators and hands them to copier.
func CopyLines(copier Copier, lines []string) error {
	if copier == nil {
		return fmt.Errorf("clipboard copier is nil")
	}
	if copyErr := copier.Copy(strings.Join(lines, "\n") + "\n"); copyErr != nil {
		return fmt.Errorf("copy tree to clipboard: %w", copyErr)
	}
	return nil
}

var _ Copier = (*SystemClipboard)(nil)
