package document

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnreadable reports a source that could not be read into a document.
var ErrUnreadable = errors.New("document: source unreadable")

// citationMarker matches reference markers such as "[12]".
var citationMarker = regexp.MustCompile(`\[\d+\]`)

// Normalize drops the first skipLines lines of raw, strips citation markers
// and removes whitespace-only lines. Skipping more lines than raw holds is an
// error wrapping ErrUnreadable.
func Normalize(raw string, skipLines int) (string, error) {
	rest, err := skip(raw, skipLines)
	if err != nil {
		return "", err
	}
	rest = citationMarker.ReplaceAllString(rest, "")

	lines := strings.Split(rest, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n"), nil
}

// skip removes n lines, counting a trailing unterminated line as a line.
func skip(raw string, n int) (string, error) {
	rest := raw
	for i := 0; i < n; i++ {
		if rest == "" {
			return "", fmt.Errorf("%w: cannot skip %d lines, input has %d", ErrUnreadable, n, i)
		}
		idx := strings.IndexByte(rest, '\n')
		if idx < 0 {
			rest = ""
			continue
		}
		rest = rest[idx+1:]
	}
	return rest, nil
}
