// Package tokenizer estimates how many model tokens a rendered tree occupies.
package tokenizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Counter estimates token counts for text content.
type Counter interface {
	Name() string
	CountString(input string) (int, error)
}

// Config captures tokenizer selection parameters provided by the CLI.
type Config struct {
	Model string
}

const (
	defaultModel        = "gpt-4o"
	defaultEncodingName = "cl100k_base"
)

var errEncodingMissing = errors.New("tokenizer encoding is not loaded")

// NewCounter returns a Counter for the requested model and the name it resolved to.
// Models tiktoken does not know are counted with the cl100k_base encoding.
func NewCounter(cfg Config) (Counter, string, error) {
	model := strings.ToLower(strings.TrimSpace(cfg.Model))
	if model == "" {
		model = defaultModel
	}
	encoding, resolvedName, encodingError := resolveEncoding(model)
	if encodingError != nil {
		return nil, "", encodingError
	}
	return encodingCounter{encoding: encoding, name: resolvedName}, resolvedName, nil
}

func resolveEncoding(model string) (*tiktoken.Tiktoken, string, error) {
	if encoding, modelError := tiktoken.EncodingForModel(model); modelError == nil && encoding != nil {
		return encoding, model, nil
	}
	encoding, fallbackError := tiktoken.GetEncoding(defaultEncodingName)
	if fallbackError != nil {
		return nil, "", fmt.Errorf("load %s encoding for model %q: %w", defaultEncodingName, model, fallbackError)
	}
	return encoding, defaultEncodingName, nil
}

// encodingCounter measures text with one byte-pair encoding.
// Special-token markers that appear in file names are encoded as ordinary text.
type encodingCounter struct {
	encoding *tiktoken.Tiktoken
	name     string
}

func (counter encodingCounter) Name() string {
	return counter.name
}

func (counter encodingCounter) CountString(input string) (int, error) {
	if counter.encoding == nil {
		return 0, errEncodingMissing
	}
	tokens := counter.encoding.Encode(input, nil, nil)
	return len(tokens), nil
}
