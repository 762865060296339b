package practitioner

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

var validGenders = map[string]bool{
	"M": true,
	"F": true,
}

var validStatuses = map[string]bool{
	StatusActive:   true,
	StatusOnLeave:  true,
	StatusTraining: true,
}

// CreateDoctor registers a doctor. The doctor number is drawn from the
// sequence unless the caller supplies one.
func (s *Service) CreateDoctor(ctx context.Context, d *Doctor) error {
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !validGenders[d.Gender] {
		return fmt.Errorf("invalid gender: %s", d.Gender)
	}
	if d.DepartmentID == uuid.Nil {
		return fmt.Errorf("department_id is required")
	}
	if d.Status == "" {
		d.Status = StatusActive
	}
	if !validStatuses[d.Status] {
		return fmt.Errorf("invalid status: %s", d.Status)
	}
	if d.DoctorNumber == "" {
		number, err := s.repo.NextNumber(ctx)
		if err != nil {
			return fmt.Errorf("generate doctor number: %w", err)
		}
		d.DoctorNumber = number
	} else if existing, err := s.repo.GetByNumber(ctx, d.DoctorNumber); err == nil && existing != nil {
		return fmt.Errorf("doctor_number %s already exists", d.DoctorNumber)
	}
	return s.repo.Create(ctx, d)
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetDoctorByNumber(ctx context.Context, number string) (*Doctor, error) {
	return s.repo.GetByNumber(ctx, number)
}

func (s *Service) UpdateDoctor(ctx context.Context, d *Doctor) error {
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !validGenders[d.Gender] {
		return fmt.Errorf("invalid gender: %s", d.Gender)
	}
	return s.repo.Update(ctx, d)
}

func (s *Service) UpdateDoctorStatus(ctx context.Context, id uuid.UUID, status string) error {
	if !validStatuses[status] {
		return fmt.Errorf("invalid status: %s", status)
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return fmt.Errorf("doctor not found: %w", err)
	}
	return s.repo.UpdateStatus(ctx, id, status)
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListDoctorsByDepartment(ctx context.Context, departmentID uuid.UUID) ([]*Doctor, error) {
	return s.repo.ListByDepartment(ctx, departmentID)
}

func (s *Service) SearchDoctors(ctx context.Context, f SearchFilter, limit, offset int) ([]*Doctor, int, error) {
	return s.repo.Search(ctx, f, limit, offset)
}
