package org

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	return h, e
}

func TestHandler_CreateHospital(t *testing.T) {
	h, e := newTestHandler()

	body := `{"hospital_code":"H001","name":"First People's Hospital","level":"TERTIARY_A"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/hospitals", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateHospital(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	var hosp Hospital
	json.Unmarshal(rec.Body.Bytes(), &hosp)
	if hosp.HospitalCode != "H001" {
		t.Errorf("expected H001, got %s", hosp.HospitalCode)
	}
}

func TestHandler_CreateHospital_BadRequest(t *testing.T) {
	h, e := newTestHandler()

	body := `{"name":"No Code"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/hospitals", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateHospital(c); err == nil {
		t.Error("expected error for missing hospital_code")
	}
}

func TestHandler_GetHospital_NotFound(t *testing.T) {
	h, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	if err := h.GetHospital(c); err == nil {
		t.Error("expected error for not found")
	}
}

func TestHandler_ListDepartmentsByHospital(t *testing.T) {
	h, e := newTestHandler()

	hosp := &Hospital{HospitalCode: "H001", Name: "First"}
	h.svc.CreateHospital(nil, hosp)
	h.svc.CreateDepartment(nil, &Department{HospitalID: hosp.ID, DeptCode: "CARD", DeptName: "Cardiology"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(hosp.ID.String())

	if err := h.ListDepartmentsByHospital(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var ds []*Department
	json.Unmarshal(rec.Body.Bytes(), &ds)
	if len(ds) != 1 {
		t.Errorf("expected 1 department, got %d", len(ds))
	}
}

func TestHandler_UpdateHospital_PreservesCode(t *testing.T) {
	h, e := newTestHandler()

	hosp := &Hospital{HospitalCode: "H001", Name: "First"}
	h.svc.CreateHospital(nil, hosp)

	body := `{"hospital_code":"HACKED","name":"Renamed"}`
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(hosp.ID.String())

	if err := h.UpdateHospital(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var updated Hospital
	json.Unmarshal(rec.Body.Bytes(), &updated)
	if updated.HospitalCode != "H001" {
		t.Errorf("expected code preserved, got %s", updated.HospitalCode)
	}
	if updated.Name != "Renamed" {
		t.Errorf("expected Renamed, got %s", updated.Name)
	}
}

func TestHandler_DeactivateDepartment(t *testing.T) {
	h, e := newTestHandler()

	hosp := &Hospital{HospitalCode: "H001", Name: "First"}
	h.svc.CreateHospital(nil, hosp)
	d := &Department{HospitalID: hosp.ID, DeptCode: "CARD", DeptName: "Cardiology"}
	h.svc.CreateDepartment(nil, d)

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(d.ID.String())

	if err := h.DeactivateDepartment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}
