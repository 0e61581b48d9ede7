package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Options configures the OpenAI-compatible client. BaseURL may point at any
// endpoint speaking the chat-completions protocol (DeepSeek, a local proxy,
// OpenAI itself).
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	// ReadTimeout bounds a whole request in blocking mode and the wait for
	// the next chunk in streaming mode. Generations are slow; keep this
	// generous (the default is two minutes).
	ReadTimeout time.Duration
}

// OpenAIClient implements Client over the OpenAI chat completion API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIClient(opts Options) *OpenAIClient {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	timeout := opts.ReadTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  opts.Model,
	}
}

func (c *OpenAIClient) Model() string { return c.model }

func (c *OpenAIClient) Complete(ctx context.Context, prompt string, temperature float32) (string, error) {
	return c.Chat(ctx, []Message{{Role: RoleUser, Content: prompt}}, temperature)
}

func (c *OpenAIClient) Stream(ctx context.Context, prompt string, temperature float32) (FragmentStream, error) {
	return c.ChatStream(ctx, []Message{{Role: RoleUser, Content: prompt}}, temperature)
}

func (c *OpenAIClient) Chat(ctx context.Context, messages []Message, temperature float32) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toOpenAIMessages(messages),
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) ChatStream(ctx context.Context, messages []Message, temperature float32) (FragmentStream, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toOpenAIMessages(messages),
		Temperature: temperature,
		Stream:      true,
	})
	if err != nil {
		return nil, err
	}
	return &openaiStream{stream: stream}, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		switch role {
		case openai.ChatMessageRoleSystem, openai.ChatMessageRoleUser, openai.ChatMessageRoleAssistant:
		default:
			// coerce anything unknown to user
			role = openai.ChatMessageRoleUser
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

type openaiStream struct {
	stream *openai.ChatCompletionStream
}

// Recv returns the next non-empty text fragment, or io.EOF when the model is
// done. Chunks without delta content (role announcements, finish markers)
// are skipped.
func (s *openaiStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			return delta, nil
		}
	}
}

func (s *openaiStream) Close() error {
	return s.stream.Close()
}
