package document

import (
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Loader memoizes normalized documents for its own lifetime.
// Entries are keyed by source path and skip count and never invalidated;
// failed loads are not cached.
type Loader struct {
	read  func(path string) (string, error)
	log   *slog.Logger
	group singleflight.Group

	mu    sync.RWMutex
	cache map[cacheKey]string
}

type cacheKey struct {
	path      string
	skipLines int
}

// NewLoader returns a Loader reading sources with ReadSource.
func NewLoader(log *slog.Logger) *Loader {
	return newLoader(ReadSource, log)
}

func newLoader(read func(string) (string, error), log *slog.Logger) *Loader {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Loader{read: read, log: log, cache: make(map[cacheKey]string)}
}

// Load returns the normalized text of the source at path.
func (l *Loader) Load(path string, skipLines int) (string, error) {
	key := cacheKey{path: path, skipLines: skipLines}
	l.mu.RLock()
	doc, ok := l.cache[key]
	l.mu.RUnlock()
	if ok {
		return doc, nil
	}

	v, err, _ := l.group.Do(fmt.Sprintf("%d:%s", skipLines, path), func() (any, error) {
		raw, err := l.read(path)
		if err != nil {
			return "", err
		}
		doc, err := Normalize(raw, skipLines)
		if err != nil {
			return "", fmt.Errorf("normalize %s: %w", path, err)
		}
		l.mu.Lock()
		l.cache[key] = doc
		l.mu.Unlock()
		l.log.Info("loaded document", "path", path, "skip_lines", skipLines, "bytes", len(doc))
		return doc, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
