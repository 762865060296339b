package org

import (
	"time"

	"github.com/google/uuid"
)

// Hospital maps to the hospitals table.
type Hospital struct {
	ID           uuid.UUID `db:"hospital_id" json:"hospital_id"`
	HospitalCode string    `db:"hospital_code" json:"hospital_code"`
	Name         string    `db:"name" json:"name"`
	Level        *string   `db:"level" json:"level,omitempty"`
	Type         *string   `db:"type" json:"type,omitempty"`
	Address      *string   `db:"address" json:"address,omitempty"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	Website      *string   `db:"website" json:"website,omitempty"`
	RegionCode   *string   `db:"region_code" json:"region_code,omitempty"`
	BedCount     *int      `db:"bed_count" json:"bed_count,omitempty"`
	IsInNetwork  bool      `db:"is_in_network" json:"is_in_network"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Department maps to the departments table. Codes are unique within one
// hospital, not globally.
type Department struct {
	ID           uuid.UUID  `db:"department_id" json:"department_id"`
	HospitalID   uuid.UUID  `db:"hospital_id" json:"hospital_id"`
	DeptCode     string     `db:"dept_code" json:"dept_code"`
	DeptName     string     `db:"dept_name" json:"dept_name"`
	DeptType     *string    `db:"dept_type" json:"dept_type,omitempty"`
	ParentDeptID *uuid.UUID `db:"parent_dept_id" json:"parent_dept_id,omitempty"`
	Phone        *string    `db:"phone" json:"phone,omitempty"`
	Location     *string    `db:"location" json:"location,omitempty"`
	Description  *string    `db:"description" json:"description,omitempty"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}
