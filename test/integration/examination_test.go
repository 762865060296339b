package integration

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medrec/medrec/internal/derive"
	"github.com/medrec/medrec/internal/domain/examination"
)

func TestExaminationLifecycle(t *testing.T) {
	ctx := context.Background()
	fix := newClinicalFixture(t, ctx)
	v := createTestVisit(t, ctx, fix, nil, nil)
	svc := examination.NewService(examination.NewRepo(globalDB.Pool))

	item := &examination.ExamItem{
		ItemCode:       uniqueCode("XR"),
		ItemName:       "Chest X-Ray",
		Modality:       ptrStr("XR"),
		ReferencePrice: decimal.RequireFromString("120.00"),
	}
	if err := svc.CreateItem(dbCtx(ctx), item); err != nil {
		t.Fatalf("create exam item: %v", err)
	}

	newExam := func(t *testing.T) *examination.ExamRecord {
		t.Helper()
		e := &examination.ExamRecord{VisitID: v.ID, ItemID: item.ID}
		if err := svc.CreateExam(dbCtx(ctx), e); err != nil {
			t.Fatalf("CreateExam: %v", err)
		}
		return e
	}

	t.Run("Create_Starts_Registered", func(t *testing.T) {
		e := newExam(t)
		if !strings.HasPrefix(e.ExamNumber, "EXAM") {
			t.Errorf("expected generated exam number with EXAM prefix, got %s", e.ExamNumber)
		}
		if e.Status != examination.StatusRegistered {
			t.Errorf("expected status REGISTERED, got %s", e.Status)
		}
	})

	t.Run("Unknown_Visit_Rejected", func(t *testing.T) {
		e := &examination.ExamRecord{VisitID: uuid.New(), ItemID: item.ID}
		err := svc.CreateExam(dbCtx(ctx), e)

		var refErr *derive.ReferenceError
		if !errors.As(err, &refErr) {
			t.Fatalf("expected ReferenceError, got %v", err)
		}
		if refErr.Entity != "visit" {
			t.Errorf("expected entity visit in error, got %s", refErr.Entity)
		}
	})

	t.Run("Unknown_Item_Rejected", func(t *testing.T) {
		e := &examination.ExamRecord{VisitID: v.ID, ItemID: uuid.New()}
		err := svc.CreateExam(dbCtx(ctx), e)

		var refErr *derive.ReferenceError
		if !errors.As(err, &refErr) {
			t.Fatalf("expected ReferenceError, got %v", err)
		}
	})

	t.Run("Deactivated_Item_Rejected", func(t *testing.T) {
		retired := &examination.ExamItem{
			ItemCode:       uniqueCode("OLD"),
			ItemName:       "Retired Procedure",
			ReferencePrice: decimal.Zero,
		}
		if err := svc.CreateItem(dbCtx(ctx), retired); err != nil {
			t.Fatalf("create item: %v", err)
		}
		if err := svc.DeactivateItem(dbCtx(ctx), retired.ID); err != nil {
			t.Fatalf("deactivate item: %v", err)
		}

		e := &examination.ExamRecord{VisitID: v.ID, ItemID: retired.ID}
		err := svc.CreateExam(dbCtx(ctx), e)

		var refErr *derive.ReferenceError
		if !errors.As(err, &refErr) {
			t.Fatalf("expected ReferenceError for deactivated item, got %v", err)
		}
	})

	t.Run("Result_Moves_To_Completed", func(t *testing.T) {
		e := newExam(t)
		values := json.RawMessage(`{"opacity": "none"}`)
		got, err := svc.UpdateResult(dbCtx(ctx), e.ID, ptrStr("No acute findings"), values, nil)
		if err != nil {
			t.Fatalf("UpdateResult: %v", err)
		}
		if got.Status != examination.StatusCompleted {
			t.Errorf("expected status COMPLETED, got %s", got.Status)
		}

		fetched, err := svc.GetExam(dbCtx(ctx), e.ID)
		if err != nil {
			t.Fatalf("GetExam: %v", err)
		}
		if fetched.ResultSummary == nil || *fetched.ResultSummary != "No acute findings" {
			t.Errorf("expected stored result summary, got %v", fetched.ResultSummary)
		}
		if fetched.Status != examination.StatusCompleted {
			t.Errorf("expected stored status COMPLETED, got %s", fetched.Status)
		}
	})

	t.Run("Review_Requires_Completed", func(t *testing.T) {
		e := newExam(t)
		_, err := svc.Review(dbCtx(ctx), e.ID, fix.Doctor.ID)

		var unsupported *derive.UnsupportedOperationError
		if !errors.As(err, &unsupported) {
			t.Fatalf("expected UnsupportedOperationError reviewing a registered exam, got %v", err)
		}
	})

	t.Run("Review_Unknown_Doctor_Rejected", func(t *testing.T) {
		e := newExam(t)
		if _, err := svc.UpdateResult(dbCtx(ctx), e.ID, ptrStr("ok"), nil, nil); err != nil {
			t.Fatalf("UpdateResult: %v", err)
		}

		_, err := svc.Review(dbCtx(ctx), e.ID, uuid.New())
		var refErr *derive.ReferenceError
		if !errors.As(err, &refErr) {
			t.Fatalf("expected ReferenceError, got %v", err)
		}
		if refErr.Entity != "doctor" {
			t.Errorf("expected entity doctor in error, got %s", refErr.Entity)
		}

		// The refused review leaves the exam unreviewed and mutable.
		fetched, err := svc.GetExam(dbCtx(ctx), e.ID)
		if err != nil {
			t.Fatalf("GetExam: %v", err)
		}
		if fetched.Status != examination.StatusCompleted || fetched.ReviewedBy != nil {
			t.Errorf("expected exam untouched by failed review, got status=%s reviewed_by=%v",
				fetched.Status, fetched.ReviewedBy)
		}
	})

	t.Run("Reviewed_Is_Frozen", func(t *testing.T) {
		e := newExam(t)
		if _, err := svc.UpdateResult(dbCtx(ctx), e.ID, ptrStr("ok"), nil, nil); err != nil {
			t.Fatalf("UpdateResult: %v", err)
		}
		got, err := svc.Review(dbCtx(ctx), e.ID, fix.Doctor.ID)
		if err != nil {
			t.Fatalf("Review: %v", err)
		}
		if got.Status != examination.StatusReviewed {
			t.Errorf("expected status REVIEWED, got %s", got.Status)
		}
		if got.ReviewedBy == nil || *got.ReviewedBy != fix.Doctor.ID {
			t.Errorf("expected reviewer %s, got %v", fix.Doctor.ID, got.ReviewedBy)
		}

		_, err = svc.UpdateResult(dbCtx(ctx), e.ID, ptrStr("changed my mind"), nil, nil)
		var unsupported *derive.UnsupportedOperationError
		if !errors.As(err, &unsupported) {
			t.Fatalf("expected UnsupportedOperationError editing a reviewed exam, got %v", err)
		}
	})

	t.Run("ListByVisit", func(t *testing.T) {
		isolated := newClinicalFixture(t, ctx)
		iv := createTestVisit(t, ctx, isolated, nil, nil)
		for i := 0; i < 3; i++ {
			e := &examination.ExamRecord{VisitID: iv.ID, ItemID: item.ID}
			if err := svc.CreateExam(dbCtx(ctx), e); err != nil {
				t.Fatalf("CreateExam: %v", err)
			}
		}

		exams, err := svc.ListByVisit(dbCtx(ctx), iv.ID)
		if err != nil {
			t.Fatalf("ListByVisit: %v", err)
		}
		if len(exams) != 3 {
			t.Errorf("expected 3 exams for visit, got %d", len(exams))
		}
	})
}
