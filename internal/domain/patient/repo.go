package patient

import (
	"context"

	"github.com/google/uuid"
)

// SearchFilter narrows patient lookups. Zero-valued fields are ignored.
type SearchFilter struct {
	Keyword   string // matched against name, phone and empi_code
	Gender    string
	BloodType string
}

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByEMPI(ctx context.Context, code string) (*Patient, error)
	GetByIDCardHash(ctx context.Context, hash string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	Search(ctx context.Context, f SearchFilter, limit, offset int) ([]*Patient, int, error)
}
