package stats

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VisitStats aggregates one day of visits.
type VisitStats struct {
	TotalVisits    int64           `json:"total_visits"`
	UniquePatients int64           `json:"unique_patients"`
	UniqueDoctors  int64           `json:"unique_doctors"`
	AvgFee         decimal.Decimal `json:"avg_fee"`
}

// ExamStats aggregates one day of examinations.
type ExamStats struct {
	TotalExams  int64         `json:"total_exams"`
	UniqueItems int64         `json:"unique_items"`
	ByStatus    []StatusCount `json:"by_status"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type DepartmentCount struct {
	DepartmentID uuid.UUID `json:"department_id"`
	DeptName     string    `json:"dept_name"`
	VisitCount   int64     `json:"visit_count"`
}

// DailyReport is the full snapshot for one calendar day.
type DailyReport struct {
	Date           string            `json:"date"`
	Visits         VisitStats        `json:"visits"`
	Exams          ExamStats         `json:"exams"`
	TopDepartments []DepartmentCount `json:"top_departments"`
}

// DailyGrowth is one day of patient registrations plus the cumulative
// patient count through that day.
type DailyGrowth struct {
	Date         string `json:"date"`
	NewPatients  int64  `json:"new_patients"`
	RunningTotal int64  `json:"running_total"`
}

type GenderCount struct {
	Gender     string  `json:"gender"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

type AgeBandCount struct {
	Band  string `json:"band"`
	Count int64  `json:"count"`
}

type PatientReport struct {
	Start         string         `json:"start"`
	End           string         `json:"end"`
	DailyGrowth   []DailyGrowth  `json:"daily_growth"`
	ByGender      []GenderCount  `json:"by_gender"`
	ByAgeBand     []AgeBandCount `json:"by_age_band"`
	TotalPatients int64          `json:"total_patients"`
}

type DailyRevenue struct {
	Date       string          `json:"date"`
	VisitCount int64           `json:"visit_count"`
	Total      decimal.Decimal `json:"total"`
}

type DepartmentRevenue struct {
	DepartmentID uuid.UUID       `json:"department_id"`
	DeptName     string          `json:"dept_name"`
	Total        decimal.Decimal `json:"total"`
}

type RevenueTotals struct {
	Total      decimal.Decimal `json:"total"`
	VisitCount int64           `json:"visit_count"`
	AvgFee     decimal.Decimal `json:"avg_fee"`
}

type RevenueReport struct {
	Start          string              `json:"start"`
	End            string              `json:"end"`
	Daily          []DailyRevenue      `json:"daily"`
	TopDepartments []DepartmentRevenue `json:"top_departments"`
	Totals         RevenueTotals       `json:"totals"`
}
