package tokenizer

import "unicode"

// Whitespace approximates tokens by whitespace-delimited words.
// It needs no encoding files, which makes it the offline fallback.
type Whitespace struct{}

func (Whitespace) Count(text string) int {
	n := 0
	inWord := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			n++
			inWord = true
		}
	}
	return n
}

// Truncate keeps the original bytes up to the end of the maxTokens-th word.
func (Whitespace) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	words := 0
	inWord := false
	for i, r := range text {
		if unicode.IsSpace(r) {
			if inWord && words == maxTokens {
				return text[:i]
			}
			inWord = false
			continue
		}
		if !inWord {
			words++
			inWord = true
		}
	}
	return text
}
