package tokenizer

import (
	"errors"
	"strings"
)

// CountLines estimates tokens for lines joined by line terminators, the way they are written out.
func CountLines(counter Counter, lines []string) (int, error) {
	if counter == nil {
		return 0, errors.New("nil tokenizer counter")
	}
	if len(lines) == 0 {
		return 0, nil
	}
	return counter.CountString(strings.Join(lines, "\n") + "\n")
}
