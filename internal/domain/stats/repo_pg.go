package stats

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medrec/medrec/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *repoPG) VisitStatsForDay(ctx context.Context, day time.Time) (*VisitStats, error) {
	var s VisitStats
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(DISTINCT patient_id),
		       COUNT(DISTINCT doctor_id),
		       COALESCE(AVG(total_fee), 0)
		FROM medical_visits
		WHERE visit_date = $1`, day,
	).Scan(&s.TotalVisits, &s.UniquePatients, &s.UniqueDoctors, &s.AvgFee)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) ExamStatsForDay(ctx context.Context, day time.Time) (*ExamStats, error) {
	var s ExamStats
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT item_id)
		FROM examination_records
		WHERE exam_date = $1`, day,
	).Scan(&s.TotalExams, &s.UniqueItems)
	if err != nil {
		return nil, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT status, COUNT(*)
		FROM examination_records
		WHERE exam_date = $1
		GROUP BY status
		ORDER BY COUNT(*) DESC, status`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		s.ByStatus = append(s.ByStatus, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) TopDepartmentsForDay(ctx context.Context, day time.Time, limit int) ([]DepartmentCount, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT d.department_id, d.dept_name, COUNT(*) AS visit_count
		FROM medical_visits v
		JOIN departments d ON d.department_id = v.department_id
		WHERE v.visit_date = $1
		GROUP BY d.department_id, d.dept_name
		ORDER BY visit_count DESC, d.dept_name
		LIMIT $2`, day, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DepartmentCount
	for rows.Next() {
		var dc DepartmentCount
		if err := rows.Scan(&dc.DepartmentID, &dc.DeptName, &dc.VisitCount); err != nil {
			return nil, err
		}
		result = append(result, dc)
	}
	return result, rows.Err()
}

func (r *repoPG) PatientCountBefore(ctx context.Context, day time.Time) (int64, error) {
	var n int64
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM patients WHERE created_at::date < $1`, day,
	).Scan(&n)
	return n, err
}

func (r *repoPG) PatientGrowth(ctx context.Context, start, end time.Time) ([]DailyGrowth, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT created_at::date AS day, COUNT(*)
		FROM patients
		WHERE created_at::date BETWEEN $1 AND $2
		GROUP BY day
		ORDER BY day`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DailyGrowth
	for rows.Next() {
		var day time.Time
		var g DailyGrowth
		if err := rows.Scan(&day, &g.NewPatients); err != nil {
			return nil, err
		}
		g.Date = day.Format(time.DateOnly)
		result = append(result, g)
	}
	return result, rows.Err()
}

func (r *repoPG) GenderCounts(ctx context.Context) ([]GenderCount, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT gender, COUNT(*)
		FROM patients
		WHERE is_active
		GROUP BY gender
		ORDER BY COUNT(*) DESC, gender`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []GenderCount
	for rows.Next() {
		var gc GenderCount
		if err := rows.Scan(&gc.Gender, &gc.Count); err != nil {
			return nil, err
		}
		result = append(result, gc)
	}
	return result, rows.Err()
}

func (r *repoPG) AgeBandCounts(ctx context.Context) ([]AgeBandCount, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT CASE
		         WHEN age < 18 THEN '<18'
		         WHEN age <= 30 THEN '18-30'
		         WHEN age <= 45 THEN '31-45'
		         WHEN age <= 60 THEN '46-60'
		         ELSE '>60'
		       END AS band,
		       COUNT(*)
		FROM (
			SELECT EXTRACT(YEAR FROM AGE(birth_date))::int AS age
			FROM patients
			WHERE is_active AND birth_date IS NOT NULL
		) ages
		GROUP BY band
		ORDER BY MIN(age)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AgeBandCount
	for rows.Next() {
		var ab AgeBandCount
		if err := rows.Scan(&ab.Band, &ab.Count); err != nil {
			return nil, err
		}
		result = append(result, ab)
	}
	return result, rows.Err()
}

func (r *repoPG) RevenueByDay(ctx context.Context, start, end time.Time) ([]DailyRevenue, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT visit_date, COUNT(*), COALESCE(SUM(total_fee), 0)
		FROM medical_visits
		WHERE visit_date BETWEEN $1 AND $2
		GROUP BY visit_date
		ORDER BY visit_date`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DailyRevenue
	for rows.Next() {
		var day time.Time
		var dr DailyRevenue
		if err := rows.Scan(&day, &dr.VisitCount, &dr.Total); err != nil {
			return nil, err
		}
		dr.Date = day.Format(time.DateOnly)
		result = append(result, dr)
	}
	return result, rows.Err()
}

func (r *repoPG) RevenueByDepartment(ctx context.Context, start, end time.Time, limit int) ([]DepartmentRevenue, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT d.department_id, d.dept_name, COALESCE(SUM(v.total_fee), 0) AS total
		FROM medical_visits v
		JOIN departments d ON d.department_id = v.department_id
		WHERE v.visit_date BETWEEN $1 AND $2
		GROUP BY d.department_id, d.dept_name
		ORDER BY total DESC, d.dept_name
		LIMIT $3`, start, end, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DepartmentRevenue
	for rows.Next() {
		var dr DepartmentRevenue
		if err := rows.Scan(&dr.DepartmentID, &dr.DeptName, &dr.Total); err != nil {
			return nil, err
		}
		result = append(result, dr)
	}
	return result, rows.Err()
}

func (r *repoPG) RevenueTotals(ctx context.Context, start, end time.Time) (*RevenueTotals, error) {
	var t RevenueTotals
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(SUM(total_fee), 0), COUNT(*), COALESCE(AVG(total_fee), 0)
		FROM medical_visits
		WHERE visit_date BETWEEN $1 AND $2`, start, end,
	).Scan(&t.Total, &t.VisitCount, &t.AvgFee)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
