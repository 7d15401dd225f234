package chunker

import (
	"log/slog"
	"strings"

	"doc-qa/internal/tokenizer"
)

const (
	// DefaultMaxTokens is used when a non-positive budget is requested.
	DefaultMaxTokens = 1600
	// DefaultMaxRecursion bounds how many times a piece of text is bisected.
	DefaultMaxRecursion = 5
)

// delimiters are tried in order, most structural first.
var delimiters = []string{"\n\n", "\n", ". "}

// Chunk represents a slice of the document text.
type Chunk struct {
	Index      int
	Text       string
	TokenCount int
}

// Chunker splits text into pieces that fit a token budget.
type Chunker struct {
	tok tokenizer.Tokenizer
	log *slog.Logger
}

// New returns a Chunker counting with tok. A nil logger discards warnings.
func New(tok tokenizer.Tokenizer, log *slog.Logger) *Chunker {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Chunker{tok: tok, log: log}
}

// Chunks splits text and annotates every piece with its position and token count.
func (c *Chunker) Chunks(text string, maxTokens, maxDepth int) []Chunk {
	parts := c.Split(text, maxTokens, maxDepth)
	chunks := make([]Chunk, 0, len(parts))
	for i, p := range parts {
		chunks = append(chunks, Chunk{
			Index:      i,
			Text:       p,
			TokenCount: c.tok.Count(p),
		})
	}
	return chunks
}

// Split returns text as an ordered list of strings holding at most maxTokens
// tokens each. It bisects on paragraph, line and sentence breaks, recursing at
// most maxDepth times, and truncates when no split helps. The delimiter at
// each split point is dropped.
func (c *Chunker) Split(text string, maxTokens, maxDepth int) []string {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if maxDepth < 0 {
		maxDepth = 0
	}
	return c.split(text, maxTokens, maxDepth)
}

func (c *Chunker) split(text string, maxTokens, depth int) []string {
	total := c.tok.Count(text)
	if total <= maxTokens {
		return []string{text}
	}
	if depth == 0 {
		return []string{c.truncate(text, total, maxTokens)}
	}
	for _, delim := range delimiters {
		left, right := c.halve(text, total, delim)
		if left == "" || right == "" {
			continue
		}
		out := c.split(left, maxTokens, depth-1)
		return append(out, c.split(right, maxTokens, depth-1)...)
	}
	return []string{c.truncate(text, total, maxTokens)}
}

// halve splits text in two on delim, aiming for half of total tokens on each
// side. The scan stops at the first split point that does not improve on the
// best one seen so far, so the result is not always the global optimum.
// An empty half means delim is unusable.
func (c *Chunker) halve(text string, total int, delim string) (string, string) {
	segments := strings.Split(text, delim)
	switch len(segments) {
	case 1:
		return text, ""
	case 2:
		return segments[0], segments[1]
	}

	halfway := total / 2
	best := halfway
	at := len(segments) - 1
	for i := range segments {
		left := strings.Join(segments[:i+1], delim)
		diff := abs(halfway - c.tok.Count(left))
		if diff >= best {
			at = i
			break
		}
		best = diff
	}
	return strings.Join(segments[:at], delim), strings.Join(segments[at:], delim)
}

func (c *Chunker) truncate(text string, total, maxTokens int) string {
	out := c.tok.Truncate(text, maxTokens)
	if total > maxTokens {
		c.log.Warn("truncated text to fit token budget", "from_tokens", total, "to_tokens", maxTokens)
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
