package examination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medrec/medrec/internal/derive"
)

// -- Mock Repository --

type mockRepo struct {
	items   map[uuid.UUID]*ExamItem
	exams   map[uuid.UUID]*ExamRecord
	visits  map[uuid.UUID]uuid.UUID // visit -> patient
	doctors map[uuid.UUID]bool
	seq     int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		items:   make(map[uuid.UUID]*ExamItem),
		exams:   make(map[uuid.UUID]*ExamRecord),
		visits:  make(map[uuid.UUID]uuid.UUID),
		doctors: make(map[uuid.UUID]bool),
	}
}

func (m *mockRepo) CreateItem(_ context.Context, item *ExamItem) error {
	item.ID = uuid.New()
	cp := *item
	m.items[item.ID] = &cp
	return nil
}

func (m *mockRepo) GetItem(_ context.Context, id uuid.UUID) (*ExamItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return item, nil
}

func (m *mockRepo) GetItemByCode(_ context.Context, code string) (*ExamItem, error) {
	for _, item := range m.items {
		if item.ItemCode == code {
			return item, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

// UpdateItem mirrors the SQL, which does not include the item_code column.
func (m *mockRepo) UpdateItem(_ context.Context, item *ExamItem) error {
	stored, ok := m.items[item.ID]
	if !ok {
		return fmt.Errorf("not found")
	}
	cp := *item
	cp.ItemCode = stored.ItemCode
	m.items[item.ID] = &cp
	return nil
}

func (m *mockRepo) DeactivateItem(_ context.Context, id uuid.UUID) error {
	item, ok := m.items[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	item.IsActive = false
	return nil
}

func (m *mockRepo) ListItems(_ context.Context, f ItemFilter, limit, offset int) ([]*ExamItem, int, error) {
	var result []*ExamItem
	for _, item := range m.items {
		if f.ItemType != "" && (item.ItemType == nil || *item.ItemType != f.ItemType) {
			continue
		}
		result = append(result, item)
	}
	return result, len(result), nil
}

func (m *mockRepo) CreateExam(_ context.Context, e *ExamRecord) error {
	e.ID = uuid.New()
	cp := *e
	m.exams[e.ID] = &cp
	return nil
}

func (m *mockRepo) GetExam(_ context.Context, id uuid.UUID) (*ExamRecord, error) {
	e, ok := m.exams[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return e, nil
}

func (m *mockRepo) GetExamByNumber(_ context.Context, number string) (*ExamRecord, error) {
	for _, e := range m.exams {
		if e.ExamNumber == number {
			return e, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (m *mockRepo) GetExamForUpdate(_ context.Context, id uuid.UUID) (*ExamRecord, error) {
	e, ok := m.exams[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	cp := *e
	return &cp, nil
}

func (m *mockRepo) SetResult(_ context.Context, id uuid.UUID, summary *string, values, analysis json.RawMessage, status string) error {
	e, ok := m.exams[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	e.ResultSummary = summary
	e.ResultValues = values
	e.AIAnalysis = analysis
	e.Status = status
	return nil
}

func (m *mockRepo) SetReviewed(_ context.Context, id, reviewedBy uuid.UUID) error {
	e, ok := m.exams[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	e.Status = StatusReviewed
	e.ReviewedBy = &reviewedBy
	return nil
}

func (m *mockRepo) ListByVisit(_ context.Context, visitID uuid.UUID) ([]*ExamRecord, error) {
	var result []*ExamRecord
	for _, e := range m.exams {
		if e.VisitID == visitID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, f ExamFilter, limit, offset int) ([]*ExamRecord, int, error) {
	var result []*ExamRecord
	for _, e := range m.exams {
		if m.visits[e.VisitID] != patientID {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		if f.ItemID != uuid.Nil && e.ItemID != f.ItemID {
			continue
		}
		result = append(result, e)
	}
	return result, len(result), nil
}

func (m *mockRepo) VisitExists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := m.visits[id]
	return ok, nil
}

func (m *mockRepo) ItemExists(_ context.Context, id uuid.UUID) (bool, error) {
	item, ok := m.items[id]
	return ok && item.IsActive, nil
}

func (m *mockRepo) DoctorExists(_ context.Context, id uuid.UUID) (bool, error) {
	return m.doctors[id], nil
}

func (m *mockRepo) NextExamNumber(_ context.Context) (string, error) {
	m.seq++
	return fmt.Sprintf("EXAM%08d", m.seq), nil
}

// -- Helpers --

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo), repo
}

func seedItem(repo *mockRepo) *ExamItem {
	item := &ExamItem{
		ID:             uuid.New(),
		ItemCode:       fmt.Sprintf("ITEM%03d", len(repo.items)+1),
		ItemName:       "Chest X-Ray",
		ReferencePrice: decimal.RequireFromString("80.00"),
		IsActive:       true,
	}
	repo.items[item.ID] = item
	return item
}

func seedExam(svc *Service, repo *mockRepo) *ExamRecord {
	item := seedItem(repo)
	visitID := uuid.New()
	repo.visits[visitID] = uuid.New()
	e := &ExamRecord{VisitID: visitID, ItemID: item.ID}
	if err := svc.CreateExam(context.Background(), e); err != nil {
		panic(err)
	}
	return e
}

// -- Records --

func TestCreateExam(t *testing.T) {
	svc, repo := newTestService()
	e := seedExam(svc, repo)

	if e.ExamNumber != "EXAM00000001" {
		t.Errorf("number = %q, want EXAM00000001", e.ExamNumber)
	}
	if e.Status != StatusRegistered {
		t.Errorf("status = %q, want %q", e.Status, StatusRegistered)
	}
	if e.ExamDate.IsZero() {
		t.Error("exam_date not defaulted")
	}
}

func TestCreateExamMissingVisit(t *testing.T) {
	svc, repo := newTestService()
	item := seedItem(repo)

	e := &ExamRecord{VisitID: uuid.New(), ItemID: item.ID}
	err := svc.CreateExam(context.Background(), e)

	var refErr *derive.ReferenceError
	if !errors.As(err, &refErr) {
		t.Fatalf("expected ReferenceError, got %v", err)
	}
	if refErr.Entity != "visit" {
		t.Errorf("Entity = %q, want %q", refErr.Entity, "visit")
	}
	if len(repo.exams) != 0 {
		t.Error("exam persisted despite missing visit")
	}
}

func TestCreateExamMissingItem(t *testing.T) {
	svc, repo := newTestService()
	visitID := uuid.New()
	repo.visits[visitID] = uuid.New()

	e := &ExamRecord{VisitID: visitID, ItemID: uuid.New()}
	err := svc.CreateExam(context.Background(), e)

	var refErr *derive.ReferenceError
	if !errors.As(err, &refErr) {
		t.Fatalf("expected ReferenceError, got %v", err)
	}
	if refErr.Entity != "examination item" {
		t.Errorf("Entity = %q, want %q", refErr.Entity, "examination item")
	}
}

func TestCreateExamInactiveItem(t *testing.T) {
	svc, repo := newTestService()
	item := seedItem(repo)
	item.IsActive = false
	visitID := uuid.New()
	repo.visits[visitID] = uuid.New()

	e := &ExamRecord{VisitID: visitID, ItemID: item.ID}
	err := svc.CreateExam(context.Background(), e)

	var refErr *derive.ReferenceError
	if !errors.As(err, &refErr) {
		t.Fatalf("expected ReferenceError for inactive item, got %v", err)
	}
}

func TestUpdateResultCompletesExam(t *testing.T) {
	svc, repo := newTestService()
	e := seedExam(svc, repo)

	summary := "no acute findings"
	values := json.RawMessage(`{"cardiothoracic_ratio":0.45}`)
	out, err := svc.UpdateResult(context.Background(), e.ID, &summary, values, nil)
	if err != nil {
		t.Fatalf("UpdateResult: %v", err)
	}
	if out.Status != StatusCompleted {
		t.Errorf("status = %q, want %q", out.Status, StatusCompleted)
	}
	stored := repo.exams[e.ID]
	if stored.Status != StatusCompleted {
		t.Errorf("stored status = %q, want %q", stored.Status, StatusCompleted)
	}
	if stored.ResultSummary == nil || *stored.ResultSummary != summary {
		t.Error("result_summary not stored")
	}
	if string(stored.ResultValues) != string(values) {
		t.Error("result_values not stored")
	}
}

func TestUpdateResultOnReviewedRefused(t *testing.T) {
	svc, repo := newTestService()
	e := seedExam(svc, repo)
	repo.exams[e.ID].Status = StatusReviewed

	summary := "second thoughts"
	_, err := svc.UpdateResult(context.Background(), e.ID, &summary, nil, nil)

	var unsupErr *derive.UnsupportedOperationError
	if !errors.As(err, &unsupErr) {
		t.Fatalf("expected UnsupportedOperationError, got %v", err)
	}
	if repo.exams[e.ID].ResultSummary != nil {
		t.Error("result overwritten on reviewed exam")
	}
}

func TestReview(t *testing.T) {
	svc, repo := newTestService()
	e := seedExam(svc, repo)
	repo.exams[e.ID].Status = StatusCompleted
	doctorID := uuid.New()
	repo.doctors[doctorID] = true

	out, err := svc.Review(context.Background(), e.ID, doctorID)
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if out.Status != StatusReviewed {
		t.Errorf("status = %q, want %q", out.Status, StatusReviewed)
	}
	if out.ReviewedBy == nil || *out.ReviewedBy != doctorID {
		t.Error("reviewed_by not set")
	}
}

func TestReviewBeforeCompletionRefused(t *testing.T) {
	svc, repo := newTestService()
	e := seedExam(svc, repo)
	doctorID := uuid.New()
	repo.doctors[doctorID] = true

	_, err := svc.Review(context.Background(), e.ID, doctorID)

	var unsupErr *derive.UnsupportedOperationError
	if !errors.As(err, &unsupErr) {
		t.Fatalf("expected UnsupportedOperationError, got %v", err)
	}
	if repo.exams[e.ID].Status != StatusRegistered {
		t.Errorf("status changed to %q", repo.exams[e.ID].Status)
	}
}

func TestReviewUnknownDoctor(t *testing.T) {
	svc, repo := newTestService()
	e := seedExam(svc, repo)
	repo.exams[e.ID].Status = StatusCompleted

	_, err := svc.Review(context.Background(), e.ID, uuid.New())

	var refErr *derive.ReferenceError
	if !errors.As(err, &refErr) {
		t.Fatalf("expected ReferenceError, got %v", err)
	}
	if refErr.Entity != "doctor" {
		t.Errorf("Entity = %q, want %q", refErr.Entity, "doctor")
	}
	if repo.exams[e.ID].Status != StatusCompleted {
		t.Errorf("status changed despite refused review")
	}
}

func TestListByPatient(t *testing.T) {
	svc, repo := newTestService()
	e := seedExam(svc, repo)
	patientID := repo.visits[e.VisitID]
	seedExam(svc, repo) // different patient

	exams, total, err := svc.ListByPatient(context.Background(), patientID, ExamFilter{}, 20, 0)
	if err != nil {
		t.Fatalf("ListByPatient: %v", err)
	}
	if total != 1 || len(exams) != 1 {
		t.Fatalf("got %d exams, want 1", len(exams))
	}
	if exams[0].ID != e.ID {
		t.Error("wrong exam returned")
	}

	exams, _, _ = svc.ListByPatient(context.Background(), patientID, ExamFilter{Status: StatusCompleted}, 20, 0)
	if len(exams) != 0 {
		t.Errorf("status filter ignored: got %d exams", len(exams))
	}
}

// -- Catalog --

func TestCreateItemRejectsDuplicateCode(t *testing.T) {
	svc, repo := newTestService()
	existing := seedItem(repo)

	item := &ExamItem{ItemCode: existing.ItemCode, ItemName: "Other"}
	if err := svc.CreateItem(context.Background(), item); err == nil {
		t.Fatal("expected duplicate code error")
	}
}

func TestCreateItemValidation(t *testing.T) {
	svc, _ := newTestService()

	if err := svc.CreateItem(context.Background(), &ExamItem{ItemName: "No code"}); err == nil {
		t.Error("expected error for missing item_code")
	}
	if err := svc.CreateItem(context.Background(), &ExamItem{ItemCode: "X"}); err == nil {
		t.Error("expected error for missing item_name")
	}
	bad := &ExamItem{ItemCode: "X", ItemName: "Y", ReferencePrice: decimal.RequireFromString("-1")}
	if err := svc.CreateItem(context.Background(), bad); err == nil {
		t.Error("expected error for negative price")
	}
}

func TestExamDateDefaultNotOverwritten(t *testing.T) {
	svc, repo := newTestService()
	item := seedItem(repo)
	visitID := uuid.New()
	repo.visits[visitID] = uuid.New()

	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	e := &ExamRecord{VisitID: visitID, ItemID: item.ID, ExamDate: date}
	if err := svc.CreateExam(context.Background(), e); err != nil {
		t.Fatalf("CreateExam: %v", err)
	}
	if !e.ExamDate.Equal(date) {
		t.Errorf("exam_date = %v, want %v", e.ExamDate, date)
	}
}
