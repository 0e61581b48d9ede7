// Package llm wraps the chat-completion API consumed by the diagnosis
// pipeline and the chat service. It exposes two call shapes over one
// capability: a blocking call that returns the full response text, and a
// streaming call that yields text fragments as they arrive.
package llm

import (
	"context"
)

// Message is a single chat turn. Role is one of "system", "user" or
// "assistant".
type Message struct {
	Role    string
	Content string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// FragmentStream is a lazy, ordered, non-restartable sequence of text
// fragments. Recv returns io.EOF once the model has finished generating.
// Concatenating every fragment yields the same text a blocking call would
// have returned for the same request.
type FragmentStream interface {
	Recv() (string, error)
	Close() error
}

// Client is the completion capability. Implementations must be safe for
// concurrent use; the orchestrator shares one client across requests.
type Client interface {
	// Complete sends a single-turn user prompt and waits for the full text.
	Complete(ctx context.Context, prompt string, temperature float32) (string, error)
	// Stream sends a single-turn user prompt and returns the fragment stream.
	Stream(ctx context.Context, prompt string, temperature float32) (FragmentStream, error)
	// Chat sends a full message history and waits for the full text.
	Chat(ctx context.Context, messages []Message, temperature float32) (string, error)
	// ChatStream sends a full message history and returns the fragment stream.
	ChatStream(ctx context.Context, messages []Message, temperature float32) (FragmentStream, error)
	// Model reports the configured model name, recorded on persisted results.
	Model() string
}
