package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error

	// GetByID returns ErrNotFound for missing or soft-deleted patients.
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	Update(ctx context.Context, id uuid.UUID, cmd *UpdateCommand) (*Patient, error)

	List(ctx context.Context, q *ListQuery) (*Paged, error)
}
