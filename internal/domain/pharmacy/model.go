package pharmacy

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Medication maps to the medications table. Stock is adjusted only through
// atomic SQL increments, never read-modify-write.
type Medication struct {
	ID             uuid.UUID       `db:"medication_id" json:"medication_id"`
	MedicationCode string          `db:"medication_code" json:"medication_code"`
	Name           string          `db:"name" json:"name"`
	GenericName    *string         `db:"generic_name" json:"generic_name,omitempty"`
	Category       *string         `db:"category" json:"category,omitempty"`
	DosageForm     *string         `db:"dosage_form" json:"dosage_form,omitempty"`
	Specification  *string         `db:"specification" json:"specification,omitempty"`
	Unit           *string         `db:"unit" json:"unit,omitempty"`
	UnitPrice      decimal.Decimal `db:"unit_price" json:"unit_price"`
	StockQuantity  int             `db:"stock_quantity" json:"stock_quantity"`
	MinStockLevel  int             `db:"min_stock_level" json:"min_stock_level"`
	Manufacturer   *string         `db:"manufacturer" json:"manufacturer,omitempty"`
	IsActive       bool            `db:"is_active" json:"is_active"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// Prescription maps to the prescriptions table. TotalAmount is derived: it
// is recomputed as the sum of all detail subtotals every time a detail is
// inserted, never incremented in place.
type Prescription struct {
	ID                 uuid.UUID       `db:"prescription_id" json:"prescription_id"`
	PrescriptionNumber string          `db:"prescription_number" json:"prescription_number"`
	VisitID            uuid.UUID       `db:"visit_id" json:"visit_id"`
	DoctorID           uuid.UUID       `db:"doctor_id" json:"doctor_id"`
	Status             string          `db:"status" json:"status"`
	TotalAmount        decimal.Decimal `db:"total_amount" json:"total_amount"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`

	Details []*PrescriptionDetail `db:"-" json:"details,omitempty"`
}

// Prescription statuses.
const (
	StatusIssued    = "ISSUED"
	StatusCancelled = "CANCELLED"
)

// PrescriptionDetail maps to the prescription_details table. A detail has
// no status column: it counts as dispensed exactly when dispensed_by and
// dispensed_at are both set, and there is no way back.
type PrescriptionDetail struct {
	ID             uuid.UUID       `db:"detail_id" json:"detail_id"`
	PrescriptionID uuid.UUID       `db:"prescription_id" json:"prescription_id"`
	MedicationID   uuid.UUID       `db:"medication_id" json:"medication_id"`
	Quantity       int             `db:"quantity" json:"quantity"`
	UnitPrice      decimal.Decimal `db:"unit_price" json:"unit_price"`
	Subtotal       decimal.Decimal `db:"subtotal" json:"subtotal"`
	Dosage         *string         `db:"dosage" json:"dosage,omitempty"`
	Frequency      *string         `db:"frequency" json:"frequency,omitempty"`
	DurationDays   *int            `db:"duration_days" json:"duration_days,omitempty"`
	Notes          *string         `db:"notes" json:"notes,omitempty"`
	DispensedBy    *uuid.UUID      `db:"dispensed_by" json:"dispensed_by,omitempty"`
	DispensedAt    *time.Time      `db:"dispensed_at" json:"dispensed_at,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// Dispense statuses derived from field nullity.
const (
	DispensePending   = "PENDING"
	DispenseDispensed = "DISPENSED"
)

// Dispensed reports whether both dispense fields are set.
func (d *PrescriptionDetail) Dispensed() bool {
	return d.DispensedBy != nil && d.DispensedAt != nil
}

// DispenseStatus derives the detail's state from its dispense fields.
func (d *PrescriptionDetail) DispenseStatus() string {
	if d.Dispensed() {
		return DispenseDispensed
	}
	return DispensePending
}

func (d *PrescriptionDetail) MarshalJSON() ([]byte, error) {
	type alias PrescriptionDetail
	return json.Marshal(&struct {
		*alias
		DispenseStatus string `json:"dispense_status"`
	}{(*alias)(d), d.DispenseStatus()})
}
