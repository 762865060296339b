package visit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SearchFilter narrows visit lookups. Zero-valued fields are ignored.
type SearchFilter struct {
	PatientID     uuid.UUID
	DoctorID      uuid.UUID
	DepartmentID  uuid.UUID
	VisitType     string
	PaymentStatus string
	DateFrom      *time.Time
	DateTo        *time.Time
}

type Repository interface {
	Create(ctx context.Context, v *Visit) error
	GetByID(ctx context.Context, id uuid.UUID) (*Visit, error)
	GetByNumber(ctx context.Context, number string) (*Visit, error)

	// Update rewrites the mutable visit fields. It deliberately leaves the
	// bmi column alone: BMI is fixed at creation.
	Update(ctx context.Context, v *Visit) error

	// UpdateDiagnosis touches only diagnosis and advice.
	UpdateDiagnosis(ctx context.Context, id uuid.UUID, diagnosis, advice string) error

	ListByPatient(ctx context.Context, patientID uuid.UUID, f SearchFilter, limit, offset int) ([]*Visit, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, f SearchFilter, limit, offset int) ([]*Visit, int, error)
	Search(ctx context.Context, f SearchFilter, limit, offset int) ([]*Visit, int, error)

	PatientExists(ctx context.Context, id uuid.UUID) (bool, error)
	DoctorExists(ctx context.Context, id uuid.UUID) (bool, error)

	// NextNumber draws the next visit number from the backing sequence,
	// formatted VIS%08d.
	NextNumber(ctx context.Context) (string, error)
}
