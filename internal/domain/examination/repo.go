package examination

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ItemFilter struct {
	Keyword  string
	ItemType string
	Modality string
}

type ExamFilter struct {
	ItemID   uuid.UUID
	Status   string
	DateFrom *time.Time
	DateTo   *time.Time
}

type Repository interface {
	// Catalog.
	CreateItem(ctx context.Context, item *ExamItem) error
	GetItem(ctx context.Context, id uuid.UUID) (*ExamItem, error)
	GetItemByCode(ctx context.Context, code string) (*ExamItem, error)
	UpdateItem(ctx context.Context, item *ExamItem) error
	DeactivateItem(ctx context.Context, id uuid.UUID) error
	ListItems(ctx context.Context, f ItemFilter, limit, offset int) ([]*ExamItem, int, error)

	// Records.
	CreateExam(ctx context.Context, e *ExamRecord) error
	GetExam(ctx context.Context, id uuid.UUID) (*ExamRecord, error)
	GetExamByNumber(ctx context.Context, number string) (*ExamRecord, error)
	// GetExamForUpdate locks the record row so a status transition is
	// decided against the row it will overwrite.
	GetExamForUpdate(ctx context.Context, id uuid.UUID) (*ExamRecord, error)
	SetResult(ctx context.Context, id uuid.UUID, summary *string, values, analysis json.RawMessage, status string) error
	SetReviewed(ctx context.Context, id, reviewedBy uuid.UUID) error
	ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*ExamRecord, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, f ExamFilter, limit, offset int) ([]*ExamRecord, int, error)

	// Parent checks for record creation and review.
	VisitExists(ctx context.Context, id uuid.UUID) (bool, error)
	ItemExists(ctx context.Context, id uuid.UUID) (bool, error)
	DoctorExists(ctx context.Context, id uuid.UUID) (bool, error)

	NextExamNumber(ctx context.Context) (string, error)
}
