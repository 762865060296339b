package practitioner

import (
	"context"

	"github.com/google/uuid"
)

// SearchFilter narrows doctor lookups. Zero-valued fields are ignored.
type SearchFilter struct {
	Keyword      string // matched against name and doctor_number
	Title        string
	Status       string
	DepartmentID uuid.UUID
}

type Repository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetByNumber(ctx context.Context, number string) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	List(ctx context.Context, limit, offset int) ([]*Doctor, int, error)
	ListByDepartment(ctx context.Context, departmentID uuid.UUID) ([]*Doctor, error)
	Search(ctx context.Context, f SearchFilter, limit, offset int) ([]*Doctor, int, error)

	// NextNumber draws the next doctor number from the backing sequence,
	// formatted DOC%06d.
	NextNumber(ctx context.Context) (string, error)
}
