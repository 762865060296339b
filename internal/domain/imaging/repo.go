package imaging

import (
	"context"

	"github.com/google/uuid"
)

type ImageFilter struct {
	CategoryID uuid.UUID
	MimeType   string
}

type Repository interface {
	CreateCategory(ctx context.Context, cat *ImageCategory) error
	GetCategory(ctx context.Context, id uuid.UUID) (*ImageCategory, error)
	UpdateCategory(ctx context.Context, cat *ImageCategory) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	ListCategories(ctx context.Context) ([]*ImageCategory, error)

	CreateImage(ctx context.Context, img *MedicalImage) error
	// GetImage never returns soft-deleted rows.
	GetImage(ctx context.Context, id uuid.UUID) (*MedicalImage, error)
	// UpdateImageMeta rewrites descriptive fields only; the file columns
	// and patient binding are fixed at upload.
	UpdateImageMeta(ctx context.Context, img *MedicalImage) error
	SoftDeleteImage(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, f ImageFilter, limit, offset int) ([]*MedicalImage, int, error)
	ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*MedicalImage, error)

	PatientExists(ctx context.Context, id uuid.UUID) (bool, error)
}
