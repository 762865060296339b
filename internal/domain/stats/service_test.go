package stats

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// -- Mock Repository --

// mockRepo hands back canned aggregates and records the arguments it was
// called with, so tests can check the composition logic in isolation.
type mockRepo struct {
	visitStats *VisitStats
	examStats  *ExamStats
	topDepts   []DepartmentCount
	baseline   int64
	growth     []DailyGrowth
	genders    []GenderCount
	bands      []AgeBandCount
	daily      []DailyRevenue
	deptRev    []DepartmentRevenue
	totals     *RevenueTotals

	lastDay       time.Time
	lastStart     time.Time
	lastEnd       time.Time
	lastDeptLimit int
}

func (m *mockRepo) VisitStatsForDay(_ context.Context, day time.Time) (*VisitStats, error) {
	m.lastDay = day
	if m.visitStats == nil {
		return &VisitStats{AvgFee: decimal.Zero}, nil
	}
	return m.visitStats, nil
}

func (m *mockRepo) ExamStatsForDay(_ context.Context, day time.Time) (*ExamStats, error) {
	if m.examStats == nil {
		return &ExamStats{}, nil
	}
	return m.examStats, nil
}

func (m *mockRepo) TopDepartmentsForDay(_ context.Context, day time.Time, limit int) ([]DepartmentCount, error) {
	m.lastDeptLimit = limit
	return m.topDepts, nil
}

func (m *mockRepo) PatientCountBefore(_ context.Context, day time.Time) (int64, error) {
	return m.baseline, nil
}

func (m *mockRepo) PatientGrowth(_ context.Context, start, end time.Time) ([]DailyGrowth, error) {
	m.lastStart, m.lastEnd = start, end
	return m.growth, nil
}

func (m *mockRepo) GenderCounts(_ context.Context) ([]GenderCount, error) {
	return m.genders, nil
}

func (m *mockRepo) AgeBandCounts(_ context.Context) ([]AgeBandCount, error) {
	return m.bands, nil
}

func (m *mockRepo) RevenueByDay(_ context.Context, start, end time.Time) ([]DailyRevenue, error) {
	m.lastStart, m.lastEnd = start, end
	return m.daily, nil
}

func (m *mockRepo) RevenueByDepartment(_ context.Context, start, end time.Time, limit int) ([]DepartmentRevenue, error) {
	m.lastDeptLimit = limit
	return m.deptRev, nil
}

func (m *mockRepo) RevenueTotals(_ context.Context, start, end time.Time) (*RevenueTotals, error) {
	if m.totals == nil {
		return &RevenueTotals{Total: decimal.Zero, AvgFee: decimal.Zero}, nil
	}
	return m.totals, nil
}

// -- Helpers --

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		t.Fatalf("bad test date %s: %v", s, err)
	}
	return d
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// -- Tests --

func TestDailyReport(t *testing.T) {
	repo := &mockRepo{
		visitStats: &VisitStats{TotalVisits: 42, UniquePatients: 30, UniqueDoctors: 7, AvgFee: amount("123.456")},
		examStats: &ExamStats{TotalExams: 9, UniqueItems: 4, ByStatus: []StatusCount{
			{Status: "COMPLETED", Count: 6},
			{Status: "REGISTERED", Count: 3},
		}},
		topDepts: []DepartmentCount{{DepartmentID: uuid.New(), DeptName: "Cardiology", VisitCount: 15}},
	}
	svc := NewService(repo)

	report, err := svc.Daily(context.Background(), day(t, "2026-03-01"))
	if err != nil {
		t.Fatalf("Daily() error = %v", err)
	}

	if report.Date != "2026-03-01" {
		t.Errorf("date = %s, want 2026-03-01", report.Date)
	}
	if report.Visits.TotalVisits != 42 {
		t.Errorf("total visits = %d, want 42", report.Visits.TotalVisits)
	}
	if !report.Visits.AvgFee.Equal(amount("123.46")) {
		t.Errorf("avg fee = %s, want 123.46", report.Visits.AvgFee)
	}
	if len(report.Exams.ByStatus) != 2 || report.Exams.ByStatus[0].Status != "COMPLETED" {
		t.Errorf("exam status breakdown = %+v", report.Exams.ByStatus)
	}
	if repo.lastDeptLimit != 5 {
		t.Errorf("department ranking limit = %d, want 5", repo.lastDeptLimit)
	}
	if len(report.TopDepartments) != 1 || report.TopDepartments[0].DeptName != "Cardiology" {
		t.Errorf("top departments = %+v", report.TopDepartments)
	}
}

func TestPatientsRunningTotal(t *testing.T) {
	repo := &mockRepo{
		baseline: 10,
		growth: []DailyGrowth{
			{Date: "2026-03-01", NewPatients: 3},
			{Date: "2026-03-03", NewPatients: 2},
		},
	}
	svc := NewService(repo)

	report, err := svc.Patients(context.Background(), day(t, "2026-03-01"), day(t, "2026-03-07"))
	if err != nil {
		t.Fatalf("Patients() error = %v", err)
	}

	if report.DailyGrowth[0].RunningTotal != 13 {
		t.Errorf("running total day 1 = %d, want 13", report.DailyGrowth[0].RunningTotal)
	}
	if report.DailyGrowth[1].RunningTotal != 15 {
		t.Errorf("running total day 3 = %d, want 15", report.DailyGrowth[1].RunningTotal)
	}
	if report.TotalPatients != 15 {
		t.Errorf("total patients = %d, want 15", report.TotalPatients)
	}
	if report.Start != "2026-03-01" || report.End != "2026-03-07" {
		t.Errorf("range = %s..%s", report.Start, report.End)
	}
}

func TestPatientsGenderPercentages(t *testing.T) {
	repo := &mockRepo{
		genders: []GenderCount{
			{Gender: "M", Count: 3},
			{Gender: "F", Count: 1},
		},
	}
	svc := NewService(repo)

	report, err := svc.Patients(context.Background(), day(t, "2026-03-01"), day(t, "2026-03-07"))
	if err != nil {
		t.Fatalf("Patients() error = %v", err)
	}

	if report.ByGender[0].Percentage != 75 {
		t.Errorf("male percentage = %v, want 75", report.ByGender[0].Percentage)
	}
	if report.ByGender[1].Percentage != 25 {
		t.Errorf("female percentage = %v, want 25", report.ByGender[1].Percentage)
	}
}

func TestPatientsNoRegistrations(t *testing.T) {
	repo := &mockRepo{baseline: 7}
	svc := NewService(repo)

	report, err := svc.Patients(context.Background(), day(t, "2026-03-01"), day(t, "2026-03-07"))
	if err != nil {
		t.Fatalf("Patients() error = %v", err)
	}
	if report.TotalPatients != 7 {
		t.Errorf("total patients = %d, want baseline 7", report.TotalPatients)
	}
	if len(report.DailyGrowth) != 0 {
		t.Errorf("daily growth = %+v, want empty", report.DailyGrowth)
	}
}

func TestPatientsStartAfterEnd(t *testing.T) {
	svc := NewService(&mockRepo{})
	if _, err := svc.Patients(context.Background(), day(t, "2026-03-07"), day(t, "2026-03-01")); err == nil {
		t.Fatal("Patients() accepted inverted range")
	}
}

func TestRevenueReport(t *testing.T) {
	repo := &mockRepo{
		daily: []DailyRevenue{
			{Date: "2026-03-01", VisitCount: 4, Total: amount("400.00")},
			{Date: "2026-03-02", VisitCount: 2, Total: amount("150.00")},
		},
		deptRev: []DepartmentRevenue{{DepartmentID: uuid.New(), DeptName: "Cardiology", Total: amount("320.00")}},
		totals:  &RevenueTotals{Total: amount("550.00"), VisitCount: 6, AvgFee: amount("91.666667")},
	}
	svc := NewService(repo)

	report, err := svc.Revenue(context.Background(), day(t, "2026-03-01"), day(t, "2026-03-07"))
	if err != nil {
		t.Fatalf("Revenue() error = %v", err)
	}

	if len(report.Daily) != 2 {
		t.Fatalf("daily series length = %d, want 2", len(report.Daily))
	}
	if !report.Totals.Total.Equal(amount("550.00")) {
		t.Errorf("grand total = %s, want 550.00", report.Totals.Total)
	}
	if !report.Totals.AvgFee.Equal(amount("91.67")) {
		t.Errorf("avg fee = %s, want 91.67", report.Totals.AvgFee)
	}
	if repo.lastDeptLimit != 10 {
		t.Errorf("department revenue limit = %d, want 10", repo.lastDeptLimit)
	}
}

func TestRevenueStartAfterEnd(t *testing.T) {
	svc := NewService(&mockRepo{})
	if _, err := svc.Revenue(context.Background(), day(t, "2026-03-07"), day(t, "2026-03-01")); err == nil {
		t.Fatal("Revenue() accepted inverted range")
	}
}
