package patient

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

var validBloodTypes = map[string]bool{
	"A":       true,
	"B":       true,
	"AB":      true,
	"O":       true,
	"UNKNOWN": true,
}

// RegisterPatient creates a patient record keyed by the national id card
// number. The EMPI code and id card hash are derived here; the raw number
// is discarded. Registering an id card that already has a record returns
// that record unchanged with created=false.
func (s *Service) RegisterPatient(ctx context.Context, p *Patient, idCard string) (bool, error) {
	if p.Name == "" {
		return false, fmt.Errorf("name is required")
	}
	if idCard == "" {
		return false, fmt.Errorf("id_card is required")
	}
	if !validGenders[p.Gender] {
		return false, fmt.Errorf("invalid gender: %s", p.Gender)
	}
	if p.BloodType != nil && !validBloodTypes[*p.BloodType] {
		return false, fmt.Errorf("invalid blood_type: %s", *p.BloodType)
	}

	hash := HashIDCard(idCard)
	if existing, err := s.repo.GetByIDCardHash(ctx, hash); err == nil && existing != nil {
		*p = *existing
		return false, nil
	}

	p.EMPICode = GenerateEMPI(idCard)
	p.IDCardHash = &hash
	p.IsActive = true
	if err := s.repo.Create(ctx, p); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetPatientByEMPI(ctx context.Context, code string) (*Patient, error) {
	return s.repo.GetByEMPI(ctx, code)
}

// UpdatePatient rewrites the mutable demographic fields. The EMPI code and
// id card hash are fixed at registration and never change.
func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !validGenders[p.Gender] {
		return fmt.Errorf("invalid gender: %s", p.Gender)
	}
	if p.BloodType != nil && !validBloodTypes[*p.BloodType] {
		return fmt.Errorf("invalid blood_type: %s", *p.BloodType)
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) DeactivatePatient(ctx context.Context, id uuid.UUID) error {
	return s.repo.Deactivate(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) SearchPatients(ctx context.Context, f SearchFilter, limit, offset int) ([]*Patient, int, error) {
	return s.repo.Search(ctx, f, limit, offset)
}
