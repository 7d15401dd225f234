package chunker

import (
	"bytes"
	"log/slog"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-qa/internal/tokenizer"
)

func newTestChunker() *Chunker {
	return New(tokenizer.Whitespace{}, nil)
}

func TestSplitFitsBudgetUnchanged(t *testing.T) {
	c := newTestChunker()
	text := "Sam Altman is the CEO of OpenAI."

	got := c.Split(text, 50, DefaultMaxRecursion)

	require.Len(t, got, 1)
	assert.Equal(t, text, got[0])
}

func TestSplitDelimiterPreference(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want []string
	}{
		{
			name: "paragraph break",
			text: "a b c\n\nd e f",
			max:  3,
			want: []string{"a b c", "d e f"},
		},
		{
			name: "paragraph before line",
			text: "a b\nc\n\nd e f",
			max:  3,
			want: []string{"a b\nc", "d e f"},
		},
		{
			name: "line break",
			text: "a b c\nd e f",
			max:  3,
			want: []string{"a b c", "d e f"},
		},
		{
			name: "sentence break drops the delimiter",
			text: "a b c. d e f",
			max:  3,
			want: []string{"a b c", "d e f"},
		},
		{
			name: "no delimiter truncates",
			text: "a b c d e",
			max:  3,
			want: []string{"a b c"},
		},
		{
			name: "empty half falls through to next delimiter",
			text: "a b c d\n\n",
			max:  2,
			want: []string{"a b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newTestChunker().Split(tt.text, tt.max, DefaultMaxRecursion)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitBalancedHalves(t *testing.T) {
	// Word counts per line: 1, 1, 1, 1, 6. Halfway is 5 tokens.
	text := "a\nb\nc\nd\ne f g h i j"

	got := newTestChunker().Split(text, 6, DefaultMaxRecursion)

	assert.Equal(t, []string{"a\nb\nc\nd", "e f g h i j"}, got)
}

func TestSplitStopsAtFirstNonImprovingPoint(t *testing.T) {
	// Cumulative line counts are 4, 4, 5, 10. The scan stops at the plateau
	// after the first line even though a later point splits exactly in half.
	text := "a b c d\n \ne\nf g h i j"

	got := newTestChunker().Split(text, 6, DefaultMaxRecursion)

	assert.Equal(t, []string{"a b c d", " \ne\nf g h i j"}, got)
}

func TestSplitZeroDepthTruncates(t *testing.T) {
	c := newTestChunker()

	got := c.Split("a\n\nb c d", 2, 0)

	require.Len(t, got, 1)
	assert.Equal(t, "a\n\nb", got[0])
	assert.Equal(t, 2, tokenizer.Whitespace{}.Count(got[0]))
}

func TestSplitDepthBoundsChunkCount(t *testing.T) {
	words := make([]string, 64)
	for i := range words {
		words[i] = "w"
	}
	text := strings.Join(words, "\n")

	for depth := 0; depth <= 6; depth++ {
		got := newTestChunker().Split(text, 1, depth)
		assert.LessOrEqual(t, len(got), 1<<depth, "depth %d", depth)
		for _, chunk := range got {
			assert.LessOrEqual(t, tokenizer.Whitespace{}.Count(chunk), 1)
		}
	}
}

func TestSplitDefaults(t *testing.T) {
	text := strings.Repeat("word ", 10)

	got := newTestChunker().Split(text, 0, -3)

	assert.Equal(t, []string{text}, got)
}

func TestSplitEveryChunkWithinBudget(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		text := randomDocument(rng, 1+rng.Intn(4))
		for budget := 1; budget <= 12; budget++ {
			for depth := 0; depth <= 6; depth++ {
				for _, chunk := range newTestChunker().Split(text, budget, depth) {
					if n := (tokenizer.Whitespace{}).Count(chunk); n > budget {
						t.Fatalf("chunk %q has %d tokens, budget %d (depth %d)", chunk, n, budget, depth)
					}
				}
			}
		}
	}
}

func TestSplitPreservesContent(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 50; trial++ {
		text := randomDocument(rng, 4)

		chunks := newTestChunker().Split(text, 4, 32)

		want := strings.Fields(strings.ReplaceAll(text, ".", ""))
		got := strings.Fields(strings.ReplaceAll(strings.Join(chunks, " "), ".", ""))
		require.Equal(t, want, got, "trial %d", trial)
	}
}

func TestChunksAnnotatesIndexAndTokens(t *testing.T) {
	chunks := newTestChunker().Chunks("a b c\n\nd e", 3, DefaultMaxRecursion)

	require.Len(t, chunks, 2)
	assert.Equal(t, Chunk{Index: 0, Text: "a b c", TokenCount: 3}, chunks[0])
	assert.Equal(t, Chunk{Index: 1, Text: "d e", TokenCount: 2}, chunks[1])
}

func TestTruncationLogsWarning(t *testing.T) {
	var buf bytes.Buffer
	c := New(tokenizer.Whitespace{}, slog.New(slog.NewTextHandler(&buf, nil)))

	c.Split("a b c d e", 2, DefaultMaxRecursion)

	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "truncated text to fit token budget")
	assert.Contains(t, buf.String(), "from_tokens=5")
}

func TestNoWarningWithoutTruncation(t *testing.T) {
	var buf bytes.Buffer
	c := New(tokenizer.Whitespace{}, slog.New(slog.NewTextHandler(&buf, nil)))

	c.Split("a b\n\nc d", 2, DefaultMaxRecursion)

	assert.Empty(t, buf.String())
}

// randomDocument builds paragraphs of lines of sentences, each sentence at
// most maxSentence words long.
func randomDocument(rng *rand.Rand, maxSentence int) string {
	vocab := []string{"alpha", "beta", "gamma", "delta", "omega", "sigma"}
	paragraphs := make([]string, 1+rng.Intn(3))
	for p := range paragraphs {
		lines := make([]string, 1+rng.Intn(3))
		for l := range lines {
			sentences := make([]string, 1+rng.Intn(3))
			for s := range sentences {
				words := make([]string, 1+rng.Intn(maxSentence))
				for w := range words {
					words[w] = vocab[rng.Intn(len(vocab))]
				}
				sentences[s] = strings.Join(words, " ")
			}
			lines[l] = strings.Join(sentences, ". ")
		}
		paragraphs[p] = strings.Join(lines, "\n")
	}
	return strings.Join(paragraphs, "\n\n")
}
