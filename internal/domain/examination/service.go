package examination

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/derive"
	"github.com/medrec/medrec/internal/platform/db"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

var validCreateStatuses = map[string]bool{
	StatusRegistered: true,
	StatusInProgress: true,
}

// -- Catalog --

func (s *Service) CreateItem(ctx context.Context, item *ExamItem) error {
	if item.ItemCode == "" {
		return fmt.Errorf("item_code is required")
	}
	if item.ItemName == "" {
		return fmt.Errorf("item_name is required")
	}
	if item.ReferencePrice.IsNegative() {
		return fmt.Errorf("reference_price must not be negative")
	}
	if existing, err := s.repo.GetItemByCode(ctx, item.ItemCode); err == nil && existing != nil {
		return fmt.Errorf("item_code %s already exists", item.ItemCode)
	}
	item.IsActive = true
	return s.repo.CreateItem(ctx, item)
}

func (s *Service) GetItem(ctx context.Context, id uuid.UUID) (*ExamItem, error) {
	return s.repo.GetItem(ctx, id)
}

func (s *Service) UpdateItem(ctx context.Context, item *ExamItem) error {
	if item.ItemName == "" {
		return fmt.Errorf("item_name is required")
	}
	if item.ReferencePrice.IsNegative() {
		return fmt.Errorf("reference_price must not be negative")
	}
	return s.repo.UpdateItem(ctx, item)
}

func (s *Service) DeactivateItem(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeactivateItem(ctx, id)
}

func (s *Service) ListItems(ctx context.Context, f ItemFilter, limit, offset int) ([]*ExamItem, int, error) {
	return s.repo.ListItems(ctx, f, limit, offset)
}

// -- Records --

// CreateExam registers an examination against a visit and a catalog item.
// Both parents must already exist; a dangling reference is refused, never
// created on the fly.
func (s *Service) CreateExam(ctx context.Context, e *ExamRecord) error {
	if e.VisitID == uuid.Nil {
		return fmt.Errorf("visit_id is required")
	}
	if e.ItemID == uuid.Nil {
		return fmt.Errorf("item_id is required")
	}
	if e.Status == "" {
		e.Status = StatusRegistered
	}
	if !validCreateStatuses[e.Status] {
		return fmt.Errorf("invalid status: %s", e.Status)
	}
	if e.ExamDate.IsZero() {
		e.ExamDate = time.Now().UTC().Truncate(24 * time.Hour)
	}

	ok, err := s.repo.VisitExists(ctx, e.VisitID)
	if err != nil {
		return err
	}
	if !ok {
		return &derive.ReferenceError{Entity: "visit", ID: e.VisitID.String()}
	}
	ok, err = s.repo.ItemExists(ctx, e.ItemID)
	if err != nil {
		return err
	}
	if !ok {
		return &derive.ReferenceError{Entity: "examination item", ID: e.ItemID.String()}
	}

	if e.ExamNumber == "" {
		number, err := s.repo.NextExamNumber(ctx)
		if err != nil {
			return fmt.Errorf("generate exam number: %w", err)
		}
		e.ExamNumber = number
	}
	if err := s.repo.CreateExam(ctx, e); err != nil {
		return &derive.PersistenceError{Op: "create examination", Err: err}
	}
	return nil
}

// UpdateResult stores the outcome of an examination and moves it to
// COMPLETED. A reviewed examination is signed off and can no longer change.
func (s *Service) UpdateResult(ctx context.Context, id uuid.UUID, summary *string, values, analysis json.RawMessage) (*ExamRecord, error) {
	var out *ExamRecord
	err := db.RunInTx(ctx, func(ctx context.Context) error {
		e, err := s.repo.GetExamForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("examination not found: %w", err)
		}
		if e.Status == StatusReviewed {
			return &derive.UnsupportedOperationError{
				Op: fmt.Sprintf("update result of reviewed examination %s", id),
			}
		}
		if err := s.repo.SetResult(ctx, id, summary, values, analysis, StatusCompleted); err != nil {
			return &derive.PersistenceError{Op: "record examination result", Err: err}
		}
		e.ResultSummary = summary
		e.ResultValues = values
		e.AIAnalysis = analysis
		e.Status = StatusCompleted
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Review signs off a completed examination. Only COMPLETED can move to
// REVIEWED; the reviewer must be a known doctor.
func (s *Service) Review(ctx context.Context, id, reviewedBy uuid.UUID) (*ExamRecord, error) {
	if reviewedBy == uuid.Nil {
		return nil, fmt.Errorf("reviewed_by is required")
	}

	var out *ExamRecord
	err := db.RunInTx(ctx, func(ctx context.Context) error {
		e, err := s.repo.GetExamForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("examination not found: %w", err)
		}
		if e.Status != StatusCompleted {
			return &derive.UnsupportedOperationError{
				Op: fmt.Sprintf("review examination %s in status %s", id, e.Status),
			}
		}
		ok, err := s.repo.DoctorExists(ctx, reviewedBy)
		if err != nil {
			return err
		}
		if !ok {
			return &derive.ReferenceError{Entity: "doctor", ID: reviewedBy.String()}
		}
		if err := s.repo.SetReviewed(ctx, id, reviewedBy); err != nil {
			return &derive.PersistenceError{Op: "review examination", Err: err}
		}
		e.Status = StatusReviewed
		e.ReviewedBy = &reviewedBy
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) GetExam(ctx context.Context, id uuid.UUID) (*ExamRecord, error) {
	return s.repo.GetExam(ctx, id)
}

func (s *Service) GetExamByNumber(ctx context.Context, number string) (*ExamRecord, error) {
	return s.repo.GetExamByNumber(ctx, number)
}

func (s *Service) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*ExamRecord, error) {
	return s.repo.ListByVisit(ctx, visitID)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, f ExamFilter, limit, offset int) ([]*ExamRecord, int, error) {
	return s.repo.ListByPatient(ctx, patientID, f, limit, offset)
}
