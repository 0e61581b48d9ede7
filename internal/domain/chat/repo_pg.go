package chat

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const convCols = `id, doctor_id, visit_id, title, created_at, updated_at`

func (r *repoPG) CreateConversation(ctx context.Context, conv *Conversation) error {
	conv.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO chat_conversation (id, doctor_id, visit_id, title)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at, updated_at`,
		conv.ID, conv.DoctorID, conv.VisitID, conv.Title,
	).Scan(&conv.CreatedAt, &conv.UpdatedAt)
}

func (r *repoPG) GetConversation(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	var conv Conversation
	if err := r.pool.QueryRow(ctx, `SELECT `+convCols+` FROM chat_conversation WHERE id = $1`, id).Scan(
		&conv.ID, &conv.DoctorID, &conv.VisitID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *repoPG) ListConversations(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Conversation, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM chat_conversation WHERE doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+convCols+` FROM chat_conversation WHERE doctor_id = $1 ORDER BY updated_at DESC LIMIT $2 OFFSET $3`,
		doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Conversation
	for rows.Next() {
		var conv Conversation
		if err := rows.Scan(&conv.ID, &conv.DoctorID, &conv.VisitID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, &conv)
	}
	return out, total, rows.Err()
}

func (r *repoPG) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM chat_conversation WHERE id = $1`, id)
	return err
}

func (r *repoPG) AppendMessage(ctx context.Context, msg *Message) error {
	msg.ID = uuid.New()
	if err := r.pool.QueryRow(ctx, `
		INSERT INTO chat_message (id, conversation_id, role, content)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at`,
		msg.ID, msg.ConversationID, msg.Role, msg.Content,
	).Scan(&msg.CreatedAt); err != nil {
		return err
	}
	_, err := r.pool.Exec(ctx, `UPDATE chat_conversation SET updated_at=NOW() WHERE id = $1`, msg.ConversationID)
	return err
}

func (r *repoPG) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, conversation_id, role, content, created_at
		FROM chat_message WHERE conversation_id = $1 ORDER BY created_at ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &msg)
	}
	return out, rows.Err()
}
