package org

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Hospitals
	CreateHospital(ctx context.Context, h *Hospital) error
	GetHospital(ctx context.Context, id uuid.UUID) (*Hospital, error)
	GetHospitalByCode(ctx context.Context, code string) (*Hospital, error)
	UpdateHospital(ctx context.Context, h *Hospital) error
	DeactivateHospital(ctx context.Context, id uuid.UUID) error
	ListHospitals(ctx context.Context, limit, offset int) ([]*Hospital, int, error)

	// Departments
	CreateDepartment(ctx context.Context, d *Department) error
	GetDepartment(ctx context.Context, id uuid.UUID) (*Department, error)
	GetDepartmentByCode(ctx context.Context, hospitalID uuid.UUID, code string) (*Department, error)
	UpdateDepartment(ctx context.Context, d *Department) error
	DeactivateDepartment(ctx context.Context, id uuid.UUID) error
	ListDepartmentsByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*Department, error)
	ListDepartments(ctx context.Context, limit, offset int) ([]*Department, int, error)
}
