package visit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/derive"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

var validVisitTypes = map[string]bool{
	TypeOutpatient: true,
	TypeEmergency:  true,
	TypeFollowUp:   true,
}

var validPaymentStatuses = map[string]bool{
	PaymentUnpaid:    true,
	PaymentPaid:      true,
	PaymentInsurance: true,
	PaymentRefunded:  true,
}

// CreateVisit records a visit. BMI is derived here, exactly once: it is set
// iff height and weight are both present and positive at creation, and any
// BMI supplied by the caller is discarded. Later edits to height or weight
// do not touch it.
func (s *Service) CreateVisit(ctx context.Context, v *Visit) error {
	if v.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if v.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if v.HospitalID == uuid.Nil {
		return fmt.Errorf("hospital_id is required")
	}
	if v.DepartmentID == uuid.Nil {
		return fmt.Errorf("department_id is required")
	}
	if v.VisitType == "" {
		v.VisitType = TypeOutpatient
	}
	if !validVisitTypes[v.VisitType] {
		return fmt.Errorf("invalid visit_type: %s", v.VisitType)
	}
	if v.PaymentStatus == "" {
		v.PaymentStatus = PaymentUnpaid
	}
	if !validPaymentStatuses[v.PaymentStatus] {
		return fmt.Errorf("invalid payment_status: %s", v.PaymentStatus)
	}
	if v.VisitDate.IsZero() {
		v.VisitDate = time.Now().UTC().Truncate(24 * time.Hour)
	}

	ok, err := s.repo.PatientExists(ctx, v.PatientID)
	if err != nil {
		return err
	}
	if !ok {
		return &derive.ReferenceError{Entity: "patient", ID: v.PatientID.String()}
	}
	ok, err = s.repo.DoctorExists(ctx, v.DoctorID)
	if err != nil {
		return err
	}
	if !ok {
		return &derive.ReferenceError{Entity: "doctor", ID: v.DoctorID.String()}
	}

	if v.VisitNumber == "" {
		number, err := s.repo.NextNumber(ctx)
		if err != nil {
			return fmt.Errorf("generate visit number: %w", err)
		}
		v.VisitNumber = number
	}

	v.BMI = nil
	if v.Height != nil && v.Weight != nil {
		if bmi, ok := derive.BMI(*v.Height, *v.Weight); ok {
			v.BMI = &bmi
		}
	}

	if err := s.repo.Create(ctx, v); err != nil {
		return &derive.PersistenceError{Op: "create visit", Err: err}
	}
	return nil
}

func (s *Service) GetVisit(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetVisitByNumber(ctx context.Context, number string) (*Visit, error) {
	return s.repo.GetByNumber(ctx, number)
}

// UpdateVisit rewrites the mutable fields of a visit. BMI is not recomputed
// even when height or weight change; it reflects the measurements taken at
// creation.
func (s *Service) UpdateVisit(ctx context.Context, v *Visit) error {
	if !validVisitTypes[v.VisitType] {
		return fmt.Errorf("invalid visit_type: %s", v.VisitType)
	}
	if !validPaymentStatuses[v.PaymentStatus] {
		return fmt.Errorf("invalid payment_status: %s", v.PaymentStatus)
	}
	return s.repo.Update(ctx, v)
}

// UpdateDiagnosis sets the diagnosis and advice on a visit, leaving every
// other field alone.
func (s *Service) UpdateDiagnosis(ctx context.Context, id uuid.UUID, diagnosis, advice string) error {
	if diagnosis == "" {
		return fmt.Errorf("diagnosis is required")
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return fmt.Errorf("visit not found: %w", err)
	}
	return s.repo.UpdateDiagnosis(ctx, id, diagnosis, advice)
}

func (s *Service) ListVisitsByPatient(ctx context.Context, patientID uuid.UUID, f SearchFilter, limit, offset int) ([]*Visit, int, error) {
	return s.repo.ListByPatient(ctx, patientID, f, limit, offset)
}

func (s *Service) ListVisitsByDoctor(ctx context.Context, doctorID uuid.UUID, f SearchFilter, limit, offset int) ([]*Visit, int, error) {
	return s.repo.ListByDoctor(ctx, doctorID, f, limit, offset)
}

func (s *Service) SearchVisits(ctx context.Context, f SearchFilter, limit, offset int) ([]*Visit, int, error) {
	return s.repo.Search(ctx, f, limit, offset)
}
