package visit

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Visit maps to the medical_visits table. BMI is derived from height and
// weight when the visit is created and never recomputed afterwards.
type Visit struct {
	ID             uuid.UUID       `db:"visit_id" json:"visit_id"`
	VisitNumber    string          `db:"visit_number" json:"visit_number"`
	PatientID      uuid.UUID       `db:"patient_id" json:"patient_id"`
	HospitalID     uuid.UUID       `db:"hospital_id" json:"hospital_id"`
	DepartmentID   uuid.UUID       `db:"department_id" json:"department_id"`
	DoctorID       uuid.UUID       `db:"doctor_id" json:"doctor_id"`
	VisitDate      time.Time       `db:"visit_date" json:"visit_date"`
	VisitType      string          `db:"visit_type" json:"visit_type"`
	ChiefComplaint *string         `db:"chief_complaint" json:"chief_complaint,omitempty"`
	Diagnosis      *string         `db:"diagnosis" json:"diagnosis,omitempty"`
	Advice         *string         `db:"advice" json:"advice,omitempty"`
	Temperature    *float64        `db:"temperature" json:"temperature,omitempty"`
	BloodPressure  *string         `db:"blood_pressure" json:"blood_pressure,omitempty"`
	HeartRate      *int            `db:"heart_rate" json:"heart_rate,omitempty"`
	Height         *float64        `db:"height" json:"height,omitempty"`
	Weight         *float64        `db:"weight" json:"weight,omitempty"`
	BMI            *float64        `db:"bmi" json:"bmi,omitempty"`
	PaymentStatus  string          `db:"payment_status" json:"payment_status"`
	TotalFee       decimal.Decimal `db:"total_fee" json:"total_fee"`
	IsEmergency    bool            `db:"is_emergency" json:"is_emergency"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// Visit types.
const (
	TypeOutpatient = "OUTPATIENT"
	TypeEmergency  = "EMERGENCY"
	TypeFollowUp   = "FOLLOW_UP"
)

// Payment statuses.
const (
	PaymentUnpaid    = "UNPAID"
	PaymentPaid      = "PAID"
	PaymentInsurance = "INSURANCE"
	PaymentRefunded  = "REFUNDED"
)
