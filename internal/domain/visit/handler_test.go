package visit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *mockRepo, *echo.Echo) {
	repo := newMockRepo()
	h := NewHandler(NewService(repo))
	e := echo.New()
	return h, repo, e
}

func TestHandler_CreateVisit(t *testing.T) {
	h, repo, e := newTestHandler()

	patientID := uuid.New()
	doctorID := uuid.New()
	repo.patients[patientID] = true
	repo.doctors[doctorID] = true

	body := fmt.Sprintf(
		`{"patient_id":%q,"doctor_id":%q,"hospital_id":%q,"department_id":%q,"height":170,"weight":70}`,
		patientID, doctorID, uuid.New(), uuid.New())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/visits", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateVisit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	var v Visit
	json.Unmarshal(rec.Body.Bytes(), &v)
	if v.BMI == nil || *v.BMI != 24.22 {
		t.Errorf("expected BMI 24.22 in response, got %v", v.BMI)
	}
}

func TestHandler_CreateVisit_MissingPatientIs422(t *testing.T) {
	h, repo, e := newTestHandler()

	doctorID := uuid.New()
	repo.doctors[doctorID] = true

	body := fmt.Sprintf(
		`{"patient_id":%q,"doctor_id":%q,"hospital_id":%q,"department_id":%q}`,
		uuid.New(), doctorID, uuid.New(), uuid.New())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/visits", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.CreateVisit(c)
	if err == nil {
		t.Fatal("expected error for missing patient")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", httpErr.Code)
	}
}

func TestHandler_UpdateDiagnosis(t *testing.T) {
	h, repo, e := newTestHandler()

	v := seededVisit(repo)
	h.svc.CreateVisit(nil, v)

	body := `{"diagnosis":"Influenza","advice":"Rest and fluids"}`
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(v.ID.String())

	if err := h.UpdateDiagnosis(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var updated Visit
	json.Unmarshal(rec.Body.Bytes(), &updated)
	if updated.Diagnosis == nil || *updated.Diagnosis != "Influenza" {
		t.Error("expected diagnosis in response")
	}
}

func TestHandler_UpdateVisit_BMIPreserved(t *testing.T) {
	h, repo, e := newTestHandler()

	height, weight := 170.0, 70.0
	v := seededVisit(repo)
	v.Height = &height
	v.Weight = &weight
	h.svc.CreateVisit(nil, v)

	body := `{"visit_type":"FOLLOW_UP","weight":95,"bmi":11.11}`
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(v.ID.String())

	if err := h.UpdateVisit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var updated Visit
	json.Unmarshal(rec.Body.Bytes(), &updated)
	if updated.BMI == nil || *updated.BMI != 24.22 {
		t.Errorf("expected BMI preserved at 24.22, got %v", updated.BMI)
	}
	if updated.VisitType != TypeFollowUp {
		t.Errorf("expected FOLLOW_UP, got %s", updated.VisitType)
	}
}

func TestHandler_GetVisit_NotFound(t *testing.T) {
	h, _, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	if err := h.GetVisit(c); err == nil {
		t.Error("expected error for not found")
	}
}

func TestHandler_ListVisitsByPatient_DateFilter(t *testing.T) {
	h, repo, e := newTestHandler()

	v := seededVisit(repo)
	h.svc.CreateVisit(nil, v)

	req := httptest.NewRequest(http.MethodGet, "/?start_date=not-a-date", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(v.PatientID.String())

	if err := h.ListVisitsByPatient(c); err == nil {
		t.Error("expected error for malformed start_date")
	}
}
