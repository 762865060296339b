package stats

import (
	"context"
	"fmt"
	"math"
	"time"
)

const (
	topDepartmentsByVisits  = 5
	topDepartmentsByRevenue = 10
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Daily(ctx context.Context, day time.Time) (*DailyReport, error) {
	visits, err := s.repo.VisitStatsForDay(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("visit stats: %w", err)
	}
	visits.AvgFee = visits.AvgFee.Round(2)

	exams, err := s.repo.ExamStatsForDay(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("exam stats: %w", err)
	}
	top, err := s.repo.TopDepartmentsForDay(ctx, day, topDepartmentsByVisits)
	if err != nil {
		return nil, fmt.Errorf("department ranking: %w", err)
	}

	return &DailyReport{
		Date:           day.Format(time.DateOnly),
		Visits:         *visits,
		Exams:          *exams,
		TopDepartments: top,
	}, nil
}

func (s *Service) Patients(ctx context.Context, start, end time.Time) (*PatientReport, error) {
	if start.After(end) {
		return nil, fmt.Errorf("start %s is after end %s", start.Format(time.DateOnly), end.Format(time.DateOnly))
	}

	baseline, err := s.repo.PatientCountBefore(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("patient baseline: %w", err)
	}
	growth, err := s.repo.PatientGrowth(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("patient growth: %w", err)
	}
	running := baseline
	for i := range growth {
		running += growth[i].NewPatients
		growth[i].RunningTotal = running
	}

	genders, err := s.repo.GenderCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("gender distribution: %w", err)
	}
	var genderTotal int64
	for _, g := range genders {
		genderTotal += g.Count
	}
	for i := range genders {
		if genderTotal > 0 {
			genders[i].Percentage = math.Round(float64(genders[i].Count)/float64(genderTotal)*10000) / 100
		}
	}

	bands, err := s.repo.AgeBandCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("age distribution: %w", err)
	}

	return &PatientReport{
		Start:         start.Format(time.DateOnly),
		End:           end.Format(time.DateOnly),
		DailyGrowth:   growth,
		ByGender:      genders,
		ByAgeBand:     bands,
		TotalPatients: running,
	}, nil
}

func (s *Service) Revenue(ctx context.Context, start, end time.Time) (*RevenueReport, error) {
	if start.After(end) {
		return nil, fmt.Errorf("start %s is after end %s", start.Format(time.DateOnly), end.Format(time.DateOnly))
	}

	daily, err := s.repo.RevenueByDay(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("daily revenue: %w", err)
	}
	top, err := s.repo.RevenueByDepartment(ctx, start, end, topDepartmentsByRevenue)
	if err != nil {
		return nil, fmt.Errorf("department revenue: %w", err)
	}
	totals, err := s.repo.RevenueTotals(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("revenue totals: %w", err)
	}
	totals.AvgFee = totals.AvgFee.Round(2)

	return &RevenueReport{
		Start:          start.Format(time.DateOnly),
		End:            end.Format(time.DateOnly),
		Daily:          daily,
		TopDepartments: top,
		Totals:         *totals,
	}, nil
}
