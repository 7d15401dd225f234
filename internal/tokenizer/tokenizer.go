package tokenizer

// Counter reports how many model tokens a string holds.
// Implementations must be deterministic for a given input.
type Counter interface {
	Count(text string) int
}

// Tokenizer is a Counter that can also cut a string down to a token prefix.
type Tokenizer interface {
	Counter
	// Truncate returns the longest token prefix of text holding at most maxTokens tokens.
	Truncate(text string, maxTokens int) string
}

// CounterFunc adapts a plain function to the Counter interface.
type CounterFunc func(text string) int

func (f CounterFunc) Count(text string) int { return f(text) }
