package pharmacy

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medrec/medrec/internal/derive"
	"github.com/medrec/medrec/internal/platform/db"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

var validPrescriptionStatuses = map[string]bool{
	StatusIssued:    true,
	StatusCancelled: true,
}

// -- Medications --

func (s *Service) CreateMedication(ctx context.Context, m *Medication) error {
	if m.MedicationCode == "" {
		return fmt.Errorf("medication_code is required")
	}
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	if m.UnitPrice.IsNegative() {
		return fmt.Errorf("unit_price must not be negative")
	}
	if m.StockQuantity < 0 {
		return fmt.Errorf("stock_quantity must not be negative")
	}
	if existing, err := s.repo.GetMedicationByCode(ctx, m.MedicationCode); err == nil && existing != nil {
		return fmt.Errorf("medication_code %s already exists", m.MedicationCode)
	}
	m.IsActive = true
	return s.repo.CreateMedication(ctx, m)
}

func (s *Service) GetMedication(ctx context.Context, id uuid.UUID) (*Medication, error) {
	return s.repo.GetMedication(ctx, id)
}

func (s *Service) UpdateMedication(ctx context.Context, m *Medication) error {
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	if m.UnitPrice.IsNegative() {
		return fmt.Errorf("unit_price must not be negative")
	}
	return s.repo.UpdateMedication(ctx, m)
}

// Restock adds quantity to a medication's stock through a single atomic
// increment.
func (s *Service) Restock(ctx context.Context, id uuid.UUID, quantity int) (*Medication, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	if _, err := s.repo.GetMedication(ctx, id); err != nil {
		return nil, fmt.Errorf("medication not found: %w", err)
	}
	if err := s.repo.AdjustStock(ctx, id, quantity); err != nil {
		return nil, err
	}
	return s.repo.GetMedication(ctx, id)
}

func (s *Service) ListMedications(ctx context.Context, f MedicationFilter, limit, offset int) ([]*Medication, int, error) {
	return s.repo.ListMedications(ctx, f, limit, offset)
}

func (s *Service) ListLowStock(ctx context.Context) ([]*Medication, error) {
	return s.repo.ListLowStock(ctx)
}

// -- Prescriptions --

// CreatePrescription issues a prescription for a visit, inserting any
// details supplied with it. Everything happens in one transaction: the
// prescription row, its details and the derived total commit together or
// not at all.
func (s *Service) CreatePrescription(ctx context.Context, p *Prescription) error {
	if p.VisitID == uuid.Nil {
		return fmt.Errorf("visit_id is required")
	}
	if p.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if p.Status == "" {
		p.Status = StatusIssued
	}
	if !validPrescriptionStatuses[p.Status] {
		return fmt.Errorf("invalid status: %s", p.Status)
	}

	return db.RunInTx(ctx, func(ctx context.Context) error {
		ok, err := s.repo.VisitExists(ctx, p.VisitID)
		if err != nil {
			return err
		}
		if !ok {
			return &derive.ReferenceError{Entity: "visit", ID: p.VisitID.String()}
		}

		if p.PrescriptionNumber == "" {
			number, err := s.repo.NextPrescriptionNumber(ctx)
			if err != nil {
				return fmt.Errorf("generate prescription number: %w", err)
			}
			p.PrescriptionNumber = number
		}
		p.TotalAmount = decimal.Zero
		if err := s.repo.CreatePrescription(ctx, p); err != nil {
			return &derive.PersistenceError{Op: "create prescription", Err: err}
		}

		for _, d := range p.Details {
			if err := s.insertDetail(ctx, p.ID, d); err != nil {
				return err
			}
		}
		if len(p.Details) > 0 {
			total, err := s.repo.SumDetailSubtotals(ctx, p.ID)
			if err != nil {
				return &derive.PersistenceError{Op: "sum detail subtotals", Err: err}
			}
			p.TotalAmount = total
		}
		return nil
	})
}

// AddDetail inserts a prescription detail and re-derives the prescription
// total as the sum over all details. The parent row is locked first, so
// concurrent inserts into the same prescription serialize their recompute,
// and a missing parent is a ReferenceError, never an implicit create.
func (s *Service) AddDetail(ctx context.Context, prescriptionID uuid.UUID, d *PrescriptionDetail) error {
	return db.RunInTx(ctx, func(ctx context.Context) error {
		ok, err := s.repo.PrescriptionExistsForUpdate(ctx, prescriptionID)
		if err != nil {
			return err
		}
		if !ok {
			return &derive.ReferenceError{Entity: "prescription", ID: prescriptionID.String()}
		}
		return s.insertDetail(ctx, prescriptionID, d)
	})
}

// insertDetail runs inside a transaction that already holds the
// prescription row (either locked or created there). The total is always
// recomputed from scratch, so a subtotal edited out of band is folded back
// in on the next insert.
func (s *Service) insertDetail(ctx context.Context, prescriptionID uuid.UUID, d *PrescriptionDetail) error {
	if d.MedicationID == uuid.Nil {
		return fmt.Errorf("medication_id is required")
	}
	if d.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	d.PrescriptionID = prescriptionID

	if d.UnitPrice.IsZero() {
		med, err := s.repo.GetMedication(ctx, d.MedicationID)
		if err != nil {
			return fmt.Errorf("medication not found: %w", err)
		}
		d.UnitPrice = med.UnitPrice
	}
	if d.Subtotal.IsZero() {
		d.Subtotal = d.UnitPrice.Mul(decimal.NewFromInt(int64(d.Quantity)))
	}

	if err := s.repo.InsertDetail(ctx, d); err != nil {
		return &derive.PersistenceError{Op: "insert prescription detail", Err: err}
	}
	total, err := s.repo.SumDetailSubtotals(ctx, prescriptionID)
	if err != nil {
		return &derive.PersistenceError{Op: "sum detail subtotals", Err: err}
	}
	if err := s.repo.UpdateTotalAmount(ctx, prescriptionID, total); err != nil {
		return &derive.PersistenceError{Op: "update prescription total", Err: err}
	}
	return nil
}

// Dispense marks a detail as handed out and decrements the medication's
// stock by the detail's quantity. The decrement fires only on the
// transition into the dispensed state; calling Dispense on an already
// dispensed detail changes nothing and returns the detail as is.
func (s *Service) Dispense(ctx context.Context, detailID, dispensedBy uuid.UUID) (*PrescriptionDetail, error) {
	if dispensedBy == uuid.Nil {
		return nil, fmt.Errorf("dispensed_by is required")
	}

	var out *PrescriptionDetail
	err := db.RunInTx(ctx, func(ctx context.Context) error {
		d, err := s.repo.GetDetailForUpdate(ctx, detailID)
		if err != nil {
			return fmt.Errorf("prescription detail not found: %w", err)
		}

		now := time.Now().UTC()
		if derive.DispenseTransition(d.DispensedBy, d.DispensedAt, &dispensedBy, &now) == derive.TransitionDispense {
			if err := s.repo.SetDetailDispensed(ctx, d.ID, dispensedBy, now); err != nil {
				return &derive.PersistenceError{Op: "record dispense", Err: err}
			}
			if err := s.repo.AdjustStock(ctx, d.MedicationID, -d.Quantity); err != nil {
				return &derive.PersistenceError{Op: "decrement stock", Err: err}
			}
			d.DispensedBy = &dispensedBy
			d.DispensedAt = &now
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateDetail rewrites a detail's fields. It carries the same dispense
// guard as Dispense: a pending detail whose dispense fields both become
// set triggers the stock decrement exactly once, clearing them again is
// refused, and any other edit leaves stock alone.
func (s *Service) UpdateDetail(ctx context.Context, d *PrescriptionDetail) error {
	if d.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}

	return db.RunInTx(ctx, func(ctx context.Context) error {
		cur, err := s.repo.GetDetailForUpdate(ctx, d.ID)
		if err != nil {
			return fmt.Errorf("prescription detail not found: %w", err)
		}
		d.PrescriptionID = cur.PrescriptionID
		d.MedicationID = cur.MedicationID

		switch derive.DispenseTransition(cur.DispensedBy, cur.DispensedAt, d.DispensedBy, d.DispensedAt) {
		case derive.TransitionRevert:
			return &derive.UnsupportedOperationError{Op: "undispense prescription detail " + d.ID.String()}
		case derive.TransitionDispense:
			if err := s.repo.UpdateDetail(ctx, d); err != nil {
				return &derive.PersistenceError{Op: "update prescription detail", Err: err}
			}
			if err := s.repo.AdjustStock(ctx, cur.MedicationID, -d.Quantity); err != nil {
				return &derive.PersistenceError{Op: "decrement stock", Err: err}
			}
		default:
			if err := s.repo.UpdateDetail(ctx, d); err != nil {
				return &derive.PersistenceError{Op: "update prescription detail", Err: err}
			}
		}
		return nil
	})
}

// GetPrescription returns a prescription with its details loaded.
func (s *Service) GetPrescription(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	p, err := s.repo.GetPrescription(ctx, id)
	if err != nil {
		return nil, err
	}
	details, err := s.repo.ListDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Details = details
	return p, nil
}

func (s *Service) GetDetail(ctx context.Context, id uuid.UUID) (*PrescriptionDetail, error) {
	return s.repo.GetDetail(ctx, id)
}

func (s *Service) ListPrescriptionsByVisit(ctx context.Context, visitID uuid.UUID) ([]*Prescription, error) {
	return s.repo.ListPrescriptionsByVisit(ctx, visitID)
}

// DeletePrescription removes a prescription and, through the cascade, its
// details. Totals of other prescriptions are untouched, and stock is not
// restored for details already dispensed.
func (s *Service) DeletePrescription(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetPrescription(ctx, id); err != nil {
		return fmt.Errorf("prescription not found: %w", err)
	}
	return s.repo.DeletePrescription(ctx, id)
}
