package llm

import (
	"context"
	"errors"
)

// ErrUpstream wraps failures of the completion service, including responses without choices.
var ErrUpstream = errors.New("completion service failed")

// Role names the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversation turn.
type Message struct {
	Role    Role
	Content string
}

// Client is a minimal completion interface to allow pluggable providers.
// Complete returns the content of the first candidate completion.
type Client interface {
	Complete(ctx context.Context, messages []Message, temperature float64) (string, error)
}
