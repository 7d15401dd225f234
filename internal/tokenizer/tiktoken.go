package tokenizer

import (
	"fmt"

	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// UseOfflineEncodings makes later NewTiktoken calls read BPE ranks compiled
// into the binary instead of downloading them.
func UseOfflineEncodings() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Tiktoken counts tokens with the BPE encoding OpenAI uses for a model.
type Tiktoken struct {
	model string
	enc   *tiktoken.Tiktoken
}

// NewTiktoken loads the encoding for the given model, e.g. "gpt-3.5-turbo".
func NewTiktoken(model string) (*Tiktoken, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: encoding for model %q: %w", model, err)
	}
	return &Tiktoken{model: model, enc: enc}, nil
}

// Model returns the model identifier the encoding was chosen for.
func (t *Tiktoken) Model() string { return t.model }

func (t *Tiktoken) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

func (t *Tiktoken) Truncate(text string, maxTokens int) string {
	if maxTokens < 0 {
		maxTokens = 0
	}
	tokens := t.enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return t.enc.Decode(tokens[:maxTokens])
}
