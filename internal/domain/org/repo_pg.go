package org

import (
	"context"

	"github.com/google/uuid"
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

const hospitalCols = `hospital_id, hospital_code, name, level, type, address, phone, website,
	region_code, bed_count, is_in_network, is_active, created_at, updated_at`

const departmentCols = `department_id, hospital_id, dept_code, dept_name, dept_type,
	parent_dept_id, phone, location, description, is_active, created_at, updated_at`

// -- Hospitals --

func (r *repoPG) CreateHospital(ctx context.Context, h *Hospital) error {
	h.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO hospitals (
			hospital_id, hospital_code, name, level, type, address, phone, website,
			region_code, bed_count, is_in_network, is_active
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		h.ID, h.HospitalCode, h.Name, h.Level, h.Type, h.Address, h.Phone, h.Website,
		h.RegionCode, h.BedCount, h.IsInNetwork, h.IsActive,
	)
	return err
}

func (r *repoPG) GetHospital(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	return scanHospital(r.conn(ctx).QueryRow(ctx,
		`SELECT `+hospitalCols+` FROM hospitals WHERE hospital_id = $1`, id))
}

func (r *repoPG) GetHospitalByCode(ctx context.Context, code string) (*Hospital, error) {
	return scanHospital(r.conn(ctx).QueryRow(ctx,
		`SELECT `+hospitalCols+` FROM hospitals WHERE hospital_code = $1`, code))
}

func (r *repoPG) UpdateHospital(ctx context.Context, h *Hospital) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE hospitals SET
			name=$2, level=$3, type=$4, address=$5, phone=$6, website=$7,
			region_code=$8, bed_count=$9, is_in_network=$10, is_active=$11, updated_at=NOW()
		WHERE hospital_id = $1`,
		h.ID, h.Name, h.Level, h.Type, h.Address, h.Phone, h.Website,
		h.RegionCode, h.BedCount, h.IsInNetwork, h.IsActive,
	)
	return err
}

func (r *repoPG) DeactivateHospital(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE hospitals SET is_active = FALSE, updated_at = NOW() WHERE hospital_id = $1`, id)
	return err
}

func (r *repoPG) ListHospitals(ctx context.Context, limit, offset int) ([]*Hospital, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM hospitals`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+hospitalCols+` FROM hospitals ORDER BY hospital_code LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var hs []*Hospital
	for rows.Next() {
		var h Hospital
		if err := rows.Scan(
			&h.ID, &h.HospitalCode, &h.Name, &h.Level, &h.Type, &h.Address, &h.Phone, &h.Website,
			&h.RegionCode, &h.BedCount, &h.IsInNetwork, &h.IsActive, &h.CreatedAt, &h.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		hs = append(hs, &h)
	}
	return hs, total, nil
}

// -- Departments --

func (r *repoPG) CreateDepartment(ctx context.Context, d *Department) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO departments (
			department_id, hospital_id, dept_code, dept_name, dept_type,
			parent_dept_id, phone, location, description, is_active
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		d.ID, d.HospitalID, d.DeptCode, d.DeptName, d.DeptType,
		d.ParentDeptID, d.Phone, d.Location, d.Description, d.IsActive,
	)
	return err
}

func (r *repoPG) GetDepartment(ctx context.Context, id uuid.UUID) (*Department, error) {
	return scanDepartment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+departmentCols+` FROM departments WHERE department_id = $1`, id))
}

func (r *repoPG) GetDepartmentByCode(ctx context.Context, hospitalID uuid.UUID, code string) (*Department, error) {
	return scanDepartment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+departmentCols+` FROM departments WHERE hospital_id = $1 AND dept_code = $2`,
		hospitalID, code))
}

func (r *repoPG) UpdateDepartment(ctx context.Context, d *Department) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE departments SET
			dept_name=$2, dept_type=$3, parent_dept_id=$4, phone=$5, location=$6,
			description=$7, is_active=$8, updated_at=NOW()
		WHERE department_id = $1`,
		d.ID, d.DeptName, d.DeptType, d.ParentDeptID, d.Phone, d.Location,
		d.Description, d.IsActive,
	)
	return err
}

func (r *repoPG) DeactivateDepartment(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE departments SET is_active = FALSE, updated_at = NOW() WHERE department_id = $1`, id)
	return err
}

func (r *repoPG) ListDepartmentsByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*Department, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+departmentCols+` FROM departments WHERE hospital_id = $1 ORDER BY dept_code`, hospitalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDepartments(rows)
}

func (r *repoPG) ListDepartments(ctx context.Context, limit, offset int) ([]*Department, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM departments`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+departmentCols+` FROM departments ORDER BY dept_code LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	ds, err := collectDepartments(rows)
	if err != nil {
		return nil, 0, err
	}
	return ds, total, nil
}

func scanHospital(row pgx.Row) (*Hospital, error) {
	var h Hospital
	err := row.Scan(
		&h.ID, &h.HospitalCode, &h.Name, &h.Level, &h.Type, &h.Address, &h.Phone, &h.Website,
		&h.RegionCode, &h.BedCount, &h.IsInNetwork, &h.IsActive, &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func scanDepartment(row pgx.Row) (*Department, error) {
	var d Department
	err := row.Scan(
		&d.ID, &d.HospitalID, &d.DeptCode, &d.DeptName, &d.DeptType,
		&d.ParentDeptID, &d.Phone, &d.Location, &d.Description, &d.IsActive,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func collectDepartments(rows pgx.Rows) ([]*Department, error) {
	var ds []*Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(
			&d.ID, &d.HospitalID, &d.DeptCode, &d.DeptName, &d.DeptType,
			&d.ParentDeptID, &d.Phone, &d.Location, &d.Description, &d.IsActive,
			&d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, err
		}
		ds = append(ds, &d)
	}
	return ds, nil
}
