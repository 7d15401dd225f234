package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIClient calls the OpenAI Chat Completions API.
type OpenAIClient struct {
	model   openai.ChatModel
	client  *openai.Client
	timeout time.Duration
}

const defaultChatTimeout = 30 * time.Second

// NewOpenAIClient builds a client with defaults against api.openai.com.
// Automatic retries are disabled; extra options are applied after the defaults.
func NewOpenAIClient(apiKey string, model openai.ChatModel, timeout time.Duration, opts ...option.RequestOption) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}
	if model == "" {
		model = openai.ChatModelGPT3_5Turbo
	}
	if timeout <= 0 {
		timeout = defaultChatTimeout
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	cli := openai.NewClient(opts...)
	return &OpenAIClient{
		model:   model,
		client:  &cli,
		timeout: timeout,
	}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, messages []Message, temperature float64) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("%w: nil openai client", ErrUpstream)
	}
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params, err := buildMessages(messages)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Chat.Completions.New(reqCtx, openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    params,
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai: no choices returned", ErrUpstream)
	}
	return resp.Choices[0].Message.Content, nil
}

func buildMessages(messages []Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			return nil, fmt.Errorf("unsupported message role %q", m.Role)
		}
	}
	return out, nil
}
