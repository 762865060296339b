package org

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

// -- Mock Repository --

type mockRepo struct {
	hospitals   map[uuid.UUID]*Hospital
	departments map[uuid.UUID]*Department
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		hospitals:   make(map[uuid.UUID]*Hospital),
		departments: make(map[uuid.UUID]*Department),
	}
}

func (m *mockRepo) CreateHospital(_ context.Context, h *Hospital) error {
	h.ID = uuid.New()
	h.CreatedAt = time.Now()
	h.UpdatedAt = time.Now()
	m.hospitals[h.ID] = h
	return nil
}

func (m *mockRepo) GetHospital(_ context.Context, id uuid.UUID) (*Hospital, error) {
	h, ok := m.hospitals[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return h, nil
}

func (m *mockRepo) GetHospitalByCode(_ context.Context, code string) (*Hospital, error) {
	for _, h := range m.hospitals {
		if h.HospitalCode == code {
			return h, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (m *mockRepo) UpdateHospital(_ context.Context, h *Hospital) error {
	m.hospitals[h.ID] = h
	return nil
}

func (m *mockRepo) DeactivateHospital(_ context.Context, id uuid.UUID) error {
	h, ok := m.hospitals[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	h.IsActive = false
	return nil
}

func (m *mockRepo) ListHospitals(_ context.Context, limit, offset int) ([]*Hospital, int, error) {
	var result []*Hospital
	for _, h := range m.hospitals {
		result = append(result, h)
	}
	return result, len(result), nil
}

func (m *mockRepo) CreateDepartment(_ context.Context, d *Department) error {
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	d.UpdatedAt = time.Now()
	m.departments[d.ID] = d
	return nil
}

func (m *mockRepo) GetDepartment(_ context.Context, id uuid.UUID) (*Department, error) {
	d, ok := m.departments[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return d, nil
}

func (m *mockRepo) GetDepartmentByCode(_ context.Context, hospitalID uuid.UUID, code string) (*Department, error) {
	for _, d := range m.departments {
		if d.HospitalID == hospitalID && d.DeptCode == code {
			return d, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (m *mockRepo) UpdateDepartment(_ context.Context, d *Department) error {
	m.departments[d.ID] = d
	return nil
}

func (m *mockRepo) DeactivateDepartment(_ context.Context, id uuid.UUID) error {
	d, ok := m.departments[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	d.IsActive = false
	return nil
}

func (m *mockRepo) ListDepartmentsByHospital(_ context.Context, hospitalID uuid.UUID) ([]*Department, error) {
	var result []*Department
	for _, d := range m.departments {
		if d.HospitalID == hospitalID {
			result = append(result, d)
		}
	}
	return result, nil
}

func (m *mockRepo) ListDepartments(_ context.Context, limit, offset int) ([]*Department, int, error) {
	var result []*Department
	for _, d := range m.departments {
		result = append(result, d)
	}
	return result, len(result), nil
}

// -- Tests --

func newTestService() *Service {
	return NewService(newMockRepo())
}

func TestCreateHospital(t *testing.T) {
	svc := newTestService()

	h := &Hospital{HospitalCode: "H001", Name: "First People's Hospital"}
	if err := svc.CreateHospital(context.Background(), h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
	if !h.IsActive {
		t.Error("expected new hospital to be active")
	}
}

func TestCreateHospital_CodeRequired(t *testing.T) {
	svc := newTestService()

	h := &Hospital{Name: "No Code"}
	if err := svc.CreateHospital(context.Background(), h); err == nil {
		t.Error("expected error for missing hospital_code")
	}
}

func TestCreateHospital_DuplicateCode(t *testing.T) {
	svc := newTestService()

	svc.CreateHospital(context.Background(), &Hospital{HospitalCode: "H001", Name: "First"})

	err := svc.CreateHospital(context.Background(), &Hospital{HospitalCode: "H001", Name: "Second"})
	if err == nil {
		t.Error("expected error for duplicate hospital_code")
	}
}

func TestCreateDepartment(t *testing.T) {
	svc := newTestService()

	h := &Hospital{HospitalCode: "H001", Name: "First People's Hospital"}
	svc.CreateHospital(context.Background(), h)

	d := &Department{HospitalID: h.ID, DeptCode: "CARD", DeptName: "Cardiology"}
	if err := svc.CreateDepartment(context.Background(), d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
}

func TestCreateDepartment_HospitalMustExist(t *testing.T) {
	svc := newTestService()

	d := &Department{HospitalID: uuid.New(), DeptCode: "CARD", DeptName: "Cardiology"}
	if err := svc.CreateDepartment(context.Background(), d); err == nil {
		t.Error("expected error for missing hospital")
	}
}

func TestCreateDepartment_DuplicateCodeSameHospital(t *testing.T) {
	svc := newTestService()

	h := &Hospital{HospitalCode: "H001", Name: "First"}
	svc.CreateHospital(context.Background(), h)
	svc.CreateDepartment(context.Background(), &Department{HospitalID: h.ID, DeptCode: "CARD", DeptName: "Cardiology"})

	err := svc.CreateDepartment(context.Background(), &Department{HospitalID: h.ID, DeptCode: "CARD", DeptName: "Cardiology 2"})
	if err == nil {
		t.Error("expected error for duplicate dept_code in same hospital")
	}
}

func TestCreateDepartment_SameCodeDifferentHospital(t *testing.T) {
	svc := newTestService()

	h1 := &Hospital{HospitalCode: "H001", Name: "First"}
	h2 := &Hospital{HospitalCode: "H002", Name: "Second"}
	svc.CreateHospital(context.Background(), h1)
	svc.CreateHospital(context.Background(), h2)

	svc.CreateDepartment(context.Background(), &Department{HospitalID: h1.ID, DeptCode: "CARD", DeptName: "Cardiology"})

	err := svc.CreateDepartment(context.Background(), &Department{HospitalID: h2.ID, DeptCode: "CARD", DeptName: "Cardiology"})
	if err != nil {
		t.Errorf("dept_code should only be unique per hospital: %v", err)
	}
}

func TestCreateDepartment_ParentMustExist(t *testing.T) {
	svc := newTestService()

	h := &Hospital{HospitalCode: "H001", Name: "First"}
	svc.CreateHospital(context.Background(), h)

	parent := uuid.New()
	d := &Department{HospitalID: h.ID, DeptCode: "CARD2", DeptName: "Sub Cardiology", ParentDeptID: &parent}
	if err := svc.CreateDepartment(context.Background(), d); err == nil {
		t.Error("expected error for missing parent department")
	}
}

func TestListDepartmentsByHospital(t *testing.T) {
	svc := newTestService()

	h1 := &Hospital{HospitalCode: "H001", Name: "First"}
	h2 := &Hospital{HospitalCode: "H002", Name: "Second"}
	svc.CreateHospital(context.Background(), h1)
	svc.CreateHospital(context.Background(), h2)

	svc.CreateDepartment(context.Background(), &Department{HospitalID: h1.ID, DeptCode: "CARD", DeptName: "Cardiology"})
	svc.CreateDepartment(context.Background(), &Department{HospitalID: h1.ID, DeptCode: "NEUR", DeptName: "Neurology"})
	svc.CreateDepartment(context.Background(), &Department{HospitalID: h2.ID, DeptCode: "CARD", DeptName: "Cardiology"})

	ds, err := svc.ListDepartmentsByHospital(context.Background(), h1.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ds) != 2 {
		t.Errorf("expected 2 departments, got %d", len(ds))
	}
}

func TestDeactivateHospital(t *testing.T) {
	svc := newTestService()

	h := &Hospital{HospitalCode: "H001", Name: "First"}
	svc.CreateHospital(context.Background(), h)

	if err := svc.DeactivateHospital(context.Background(), h.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fetched, _ := svc.GetHospital(context.Background(), h.ID)
	if fetched.IsActive {
		t.Error("expected hospital to be inactive")
	}
}
