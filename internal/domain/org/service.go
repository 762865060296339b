package org

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateHospital(ctx context.Context, h *Hospital) error {
	if h.HospitalCode == "" {
		return fmt.Errorf("hospital_code is required")
	}
	if h.Name == "" {
		return fmt.Errorf("name is required")
	}
	if existing, err := s.repo.GetHospitalByCode(ctx, h.HospitalCode); err == nil && existing != nil {
		return fmt.Errorf("hospital_code %s already exists", h.HospitalCode)
	}
	h.IsActive = true
	return s.repo.CreateHospital(ctx, h)
}

func (s *Service) GetHospital(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	return s.repo.GetHospital(ctx, id)
}

func (s *Service) UpdateHospital(ctx context.Context, h *Hospital) error {
	if h.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.repo.UpdateHospital(ctx, h)
}

func (s *Service) DeactivateHospital(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeactivateHospital(ctx, id)
}

func (s *Service) ListHospitals(ctx context.Context, limit, offset int) ([]*Hospital, int, error) {
	return s.repo.ListHospitals(ctx, limit, offset)
}

func (s *Service) CreateDepartment(ctx context.Context, d *Department) error {
	if d.HospitalID == uuid.Nil {
		return fmt.Errorf("hospital_id is required")
	}
	if d.DeptCode == "" {
		return fmt.Errorf("dept_code is required")
	}
	if d.DeptName == "" {
		return fmt.Errorf("dept_name is required")
	}
	if _, err := s.repo.GetHospital(ctx, d.HospitalID); err != nil {
		return fmt.Errorf("hospital not found: %w", err)
	}
	if existing, err := s.repo.GetDepartmentByCode(ctx, d.HospitalID, d.DeptCode); err == nil && existing != nil {
		return fmt.Errorf("dept_code %s already exists in this hospital", d.DeptCode)
	}
	if d.ParentDeptID != nil {
		if _, err := s.repo.GetDepartment(ctx, *d.ParentDeptID); err != nil {
			return fmt.Errorf("parent department not found: %w", err)
		}
	}
	d.IsActive = true
	return s.repo.CreateDepartment(ctx, d)
}

func (s *Service) GetDepartment(ctx context.Context, id uuid.UUID) (*Department, error) {
	return s.repo.GetDepartment(ctx, id)
}

func (s *Service) UpdateDepartment(ctx context.Context, d *Department) error {
	if d.DeptName == "" {
		return fmt.Errorf("dept_name is required")
	}
	return s.repo.UpdateDepartment(ctx, d)
}

func (s *Service) DeactivateDepartment(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeactivateDepartment(ctx, id)
}

func (s *Service) ListDepartmentsByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*Department, error) {
	return s.repo.ListDepartmentsByHospital(ctx, hospitalID)
}

func (s *Service) ListDepartments(ctx context.Context, limit, offset int) ([]*Department, int, error) {
	return s.repo.ListDepartments(ctx, limit, offset)
}
