package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Cache provides answer caching. Answers are produced at temperature 0, so a
// repeated question over the same document and model is served from here.
type Cache interface {
	// GetAnswer retrieves a cached answer by key.
	// Returns nil if not found
	GetAnswer(ctx context.Context, key string) (*Answer, error)

	// SetAnswer stores an answer with TTL
	SetAnswer(ctx context.Context, key string, answer *Answer, ttl time.Duration) error

	// Close closes the cache connection
	Close() error
}

// Answer represents a cached question/answer pair
type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Key derives a cache key from everything that determines an answer.
// The question is hashed exactly as it is sent.
func Key(model, subject, source string, skipLines int, question string) string {
	h := sha256.New()
	for _, part := range []string{model, subject, source, strconv.Itoa(skipLines), question} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
