package practitioner

import (
	"time"

	"github.com/google/uuid"
)

// Doctor maps to the doctors table.
type Doctor struct {
	ID                  uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	DoctorNumber        string     `db:"doctor_number" json:"doctor_number"`
	Name                string     `db:"name" json:"name"`
	Gender              string     `db:"gender" json:"gender"`
	Title               *string    `db:"title" json:"title,omitempty"`
	DepartmentID        uuid.UUID  `db:"department_id" json:"department_id"`
	Specialty           *string    `db:"specialty" json:"specialty,omitempty"`
	QualificationNumber *string    `db:"qualification_number" json:"qualification_number,omitempty"`
	LicenseNumber       *string    `db:"license_number" json:"license_number,omitempty"`
	EmploymentDate      *time.Time `db:"employment_date" json:"employment_date,omitempty"`
	Status              string     `db:"status" json:"status"`
	ContactPhone        *string    `db:"contact_phone" json:"contact_phone,omitempty"`
	Email               *string    `db:"email" json:"email,omitempty"`
	Introduction        *string    `db:"introduction" json:"introduction,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// Employment statuses.
const (
	StatusActive   = "ACTIVE"
	StatusOnLeave  = "ON_LEAVE"
	StatusTraining = "TRAINING"
)
