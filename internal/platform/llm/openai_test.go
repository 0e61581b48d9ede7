package llm

import (
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestToOpenAIMessages_CoercesUnknownRoles(t *testing.T) {
	msgs := toOpenAIMessages([]Message{
		{Role: RoleSystem, Content: "a"},
		{Role: RoleUser, Content: "b"},
		{Role: RoleAssistant, Content: "c"},
		{Role: "patient", Content: "d"},
	})

	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	if msgs[0].Role != openai.ChatMessageRoleSystem {
		t.Errorf("expected system role, got %s", msgs[0].Role)
	}
	if msgs[3].Role != openai.ChatMessageRoleUser {
		t.Errorf("expected unknown role coerced to user, got %s", msgs[3].Role)
	}
}

func TestNewOpenAIClient_Model(t *testing.T) {
	c := NewOpenAIClient(Options{APIKey: "sk-test", Model: "deepseek-chat"})
	if c.Model() != "deepseek-chat" {
		t.Errorf("expected model deepseek-chat, got %s", c.Model())
	}
}
