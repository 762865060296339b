package pharmacy

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MedicationFilter narrows medication lookups. Zero-valued fields are
// ignored.
type MedicationFilter struct {
	Keyword  string // matched against name, generic_name and medication_code
	Category string
}

type Repository interface {
	// Medications
	CreateMedication(ctx context.Context, m *Medication) error
	GetMedication(ctx context.Context, id uuid.UUID) (*Medication, error)
	GetMedicationByCode(ctx context.Context, code string) (*Medication, error)
	UpdateMedication(ctx context.Context, m *Medication) error
	ListMedications(ctx context.Context, f MedicationFilter, limit, offset int) ([]*Medication, int, error)
	ListLowStock(ctx context.Context) ([]*Medication, error)

	// AdjustStock applies a single atomic increment (negative delta to
	// decrement) to stock_quantity.
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) error

	// Prescriptions
	CreatePrescription(ctx context.Context, p *Prescription) error
	GetPrescription(ctx context.Context, id uuid.UUID) (*Prescription, error)
	ListPrescriptionsByVisit(ctx context.Context, visitID uuid.UUID) ([]*Prescription, error)
	DeletePrescription(ctx context.Context, id uuid.UUID) error

	// PrescriptionExistsForUpdate locks the prescription row so concurrent
	// detail inserts serialize their total recompute behind it.
	PrescriptionExistsForUpdate(ctx context.Context, id uuid.UUID) (bool, error)
	SumDetailSubtotals(ctx context.Context, prescriptionID uuid.UUID) (decimal.Decimal, error)
	UpdateTotalAmount(ctx context.Context, id uuid.UUID, total decimal.Decimal) error

	// Details
	InsertDetail(ctx context.Context, d *PrescriptionDetail) error
	GetDetail(ctx context.Context, id uuid.UUID) (*PrescriptionDetail, error)
	GetDetailForUpdate(ctx context.Context, id uuid.UUID) (*PrescriptionDetail, error)
	ListDetails(ctx context.Context, prescriptionID uuid.UUID) ([]*PrescriptionDetail, error)
	UpdateDetail(ctx context.Context, d *PrescriptionDetail) error
	SetDetailDispensed(ctx context.Context, id, dispensedBy uuid.UUID, dispensedAt time.Time) error

	VisitExists(ctx context.Context, id uuid.UUID) (bool, error)

	// NextPrescriptionNumber draws the next number from the backing
	// sequence, formatted RX%08d.
	NextPrescriptionNumber(ctx context.Context) (string, error)
}
