package diagnosis

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists diagnosis records.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	ListByVisit(ctx context.Context, visitID uuid.UUID, limit, offset int) ([]*Record, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
