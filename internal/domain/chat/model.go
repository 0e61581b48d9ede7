package chat

import (
	"time"

	"github.com/google/uuid"
)

// Conversation maps to the chat_conversation table. Conversations belong to a
// doctor and optionally attach to a visit.
type Conversation struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	DoctorID  uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	VisitID   *uuid.UUID `db:"visit_id" json:"visit_id,omitempty"`
	Title     string     `db:"title" json:"title"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// Message maps to the chat_message table. Role is "user" or "assistant".
type Message struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ConversationID uuid.UUID `db:"conversation_id" json:"conversation_id"`
	Role           string    `db:"role" json:"role"`
	Content        string    `db:"content" json:"content"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
