package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tcm/tcm/internal/platform/llm"
	"github.com/tcm/tcm/internal/platform/sse"
)

// Event types emitted by the streaming chat endpoint.
const (
	EventContent = "content"
	EventDone    = "done"
	EventError   = "error"
)

const chatTemperature = 0.7

const systemPrompt = "You are a knowledgeable traditional Chinese medicine assistant " +
	"helping a licensed physician. Answer concisely and flag anything that needs " +
	"an in-person examination."

// maxHistoryTurns bounds how many prior messages are replayed to the model.
const maxHistoryTurns = 40

// ContentPayload carries one streamed fragment of the assistant's reply.
type ContentPayload struct {
	Chunk string `json:"chunk"`
}

// DonePayload closes a streamed reply with the persisted message.
type DonePayload struct {
	Message *Message `json:"message"`
}

// ErrorPayload terminates a streamed reply.
type ErrorPayload struct {
	Message string `json:"message"`
}

type Service struct {
	repo   Repository
	llm    llm.Client
	logger zerolog.Logger
}

func NewService(repo Repository, client llm.Client, logger zerolog.Logger) *Service {
	return &Service{repo: repo, llm: client, logger: logger}
}

func (s *Service) CreateConversation(ctx context.Context, conv *Conversation) error {
	if conv.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if strings.TrimSpace(conv.Title) == "" {
		conv.Title = "New conversation"
	}
	return s.repo.CreateConversation(ctx, conv)
}

func (s *Service) GetConversation(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	return s.repo.GetConversation(ctx, id)
}

func (s *Service) ListConversations(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Conversation, int, error) {
	return s.repo.ListConversations(ctx, doctorID, limit, offset)
}

func (s *Service) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteConversation(ctx, id)
}

func (s *Service) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*Message, error) {
	return s.repo.ListMessages(ctx, conversationID)
}

// history replays the conversation as model messages, system prompt first.
func (s *Service) history(ctx context.Context, conversationID uuid.UUID) ([]llm.Message, error) {
	msgs, err := s.repo.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if len(msgs) > maxHistoryTurns {
		msgs = msgs[len(msgs)-maxHistoryTurns:]
	}
	out := make([]llm.Message, 0, len(msgs)+1)
	out = append(out, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	for _, m := range msgs {
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return out, nil
}

// SendMessage appends the user's message, asks the model for a reply over the
// full history, persists the reply and returns it.
func (s *Service) SendMessage(ctx context.Context, conversationID uuid.UUID, content string) (*Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("content is required")
	}
	if _, err := s.repo.GetConversation(ctx, conversationID); err != nil {
		return nil, fmt.Errorf("conversation not found: %w", err)
	}

	userMsg := &Message{ConversationID: conversationID, Role: llm.RoleUser, Content: content}
	if err := s.repo.AppendMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	hist, err := s.history(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	replyText, err := s.llm.Chat(ctx, hist, chatTemperature)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	reply := &Message{ConversationID: conversationID, Role: llm.RoleAssistant, Content: replyText}
	if err := s.repo.AppendMessage(ctx, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

// StreamMessage is SendMessage with the reply streamed as events: content per
// fragment, then one done event carrying the persisted assistant message. The
// assistant message is only persisted once the model finished generating.
func (s *Service) StreamMessage(ctx context.Context, conversationID uuid.UUID, content string) (<-chan sse.Event, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("content is required")
	}
	if _, err := s.repo.GetConversation(ctx, conversationID); err != nil {
		return nil, fmt.Errorf("conversation not found: %w", err)
	}

	userMsg := &Message{ConversationID: conversationID, Role: llm.RoleUser, Content: content}
	if err := s.repo.AppendMessage(ctx, userMsg); err != nil {
		return nil, err
	}
	hist, err := s.history(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	ch := make(chan sse.Event)
	go func() {
		defer close(ch)

		emit := func(ev sse.Event) bool {
			select {
			case ch <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}
		fail := func(err error) {
			s.logger.Error().Err(err).Str("conversation_id", conversationID.String()).Msg("chat stream failed")
			emit(sse.Event{Type: EventError, Data: ErrorPayload{Message: err.Error()}})
		}

		stream, err := s.llm.ChatStream(ctx, hist, chatTemperature)
		if err != nil {
			fail(err)
			return
		}
		defer stream.Close()

		var buf strings.Builder
		for {
			frag, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				fail(err)
				return
			}
			buf.WriteString(frag)
			if !emit(sse.Event{Type: EventContent, Data: ContentPayload{Chunk: frag}}) {
				return
			}
		}

		reply := &Message{ConversationID: conversationID, Role: llm.RoleAssistant, Content: buf.String()}
		if err := s.repo.AppendMessage(ctx, reply); err != nil {
			fail(err)
			return
		}
		emit(sse.Event{Type: EventDone, Data: DonePayload{Message: reply}})
	}()
	return ch, nil
}
