package doctor

import (
	"time"

	"github.com/google/uuid"
)

// Doctor maps to the doctor table.
type Doctor struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"full_name"`
	Title        *string   `db:"title" json:"title,omitempty"`
	Department   *string   `db:"department" json:"department,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
