package stats

import (
	"context"
	"time"
)

// Repository exposes the raw aggregate queries. The service composes them
// into reports and derives running totals and percentages, so the SQL stays
// simple GROUP BYs.
type Repository interface {
	VisitStatsForDay(ctx context.Context, day time.Time) (*VisitStats, error)
	ExamStatsForDay(ctx context.Context, day time.Time) (*ExamStats, error)
	TopDepartmentsForDay(ctx context.Context, day time.Time, limit int) ([]DepartmentCount, error)

	// PatientCountBefore returns how many patients were registered strictly
	// before day, the baseline for running totals.
	PatientCountBefore(ctx context.Context, day time.Time) (int64, error)
	PatientGrowth(ctx context.Context, start, end time.Time) ([]DailyGrowth, error)
	GenderCounts(ctx context.Context) ([]GenderCount, error)
	AgeBandCounts(ctx context.Context) ([]AgeBandCount, error)

	RevenueByDay(ctx context.Context, start, end time.Time) ([]DailyRevenue, error)
	RevenueByDepartment(ctx context.Context, start, end time.Time, limit int) ([]DepartmentRevenue, error)
	RevenueTotals(ctx context.Context, start, end time.Time) (*RevenueTotals, error)
}
