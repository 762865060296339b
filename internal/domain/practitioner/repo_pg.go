package practitioner

import (
	"context"
	"fmt"
	"strings"

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

const doctorCols = `doctor_id, doctor_number, name, gender, title, department_id, specialty,
	qualification_number, license_number, employment_date, status,
	contact_phone, email, introduction, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctors (
			doctor_id, doctor_number, name, gender, title, department_id, specialty,
			qualification_number, license_number, employment_date, status,
			contact_phone, email, introduction
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		d.ID, d.DoctorNumber, d.Name, d.Gender, d.Title, d.DepartmentID, d.Specialty,
		d.QualificationNumber, d.LicenseNumber, d.EmploymentDate, d.Status,
		d.ContactPhone, d.Email, d.Introduction,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx,
		`SELECT `+doctorCols+` FROM doctors WHERE doctor_id = $1`, id))
}

func (r *repoPG) GetByNumber(ctx context.Context, number string) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx,
		`SELECT `+doctorCols+` FROM doctors WHERE doctor_number = $1`, number))
}

func (r *repoPG) Update(ctx context.Context, d *Doctor) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctors SET
			name=$2, gender=$3, title=$4, department_id=$5, specialty=$6,
			qualification_number=$7, license_number=$8, employment_date=$9,
			contact_phone=$10, email=$11, introduction=$12, updated_at=NOW()
		WHERE doctor_id = $1`,
		d.ID, d.Name, d.Gender, d.Title, d.DepartmentID, d.Specialty,
		d.QualificationNumber, d.LicenseNumber, d.EmploymentDate,
		d.ContactPhone, d.Email, d.Introduction,
	)
	return err
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE doctors SET status = $2, updated_at = NOW() WHERE doctor_id = $1`, id, status)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctors`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+doctorCols+` FROM doctors ORDER BY doctor_number LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	ds, err := collectDoctors(rows)
	if err != nil {
		return nil, 0, err
	}
	return ds, total, nil
}

func (r *repoPG) ListByDepartment(ctx context.Context, departmentID uuid.UUID) ([]*Doctor, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+doctorCols+` FROM doctors WHERE department_id = $1 ORDER BY doctor_number`, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDoctors(rows)
}

func (r *repoPG) Search(ctx context.Context, f SearchFilter, limit, offset int) ([]*Doctor, int, error) {
	where := []string{"1=1"}
	var args []interface{}
	if f.Keyword != "" {
		args = append(args, "%"+f.Keyword+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR doctor_number ILIKE $%d)", n, n))
	}
	if f.Title != "" {
		args = append(args, f.Title)
		where = append(where, fmt.Sprintf("title = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.DepartmentID != uuid.Nil {
		args = append(args, f.DepartmentID)
		where = append(where, fmt.Sprintf("department_id = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM doctors WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM doctors WHERE %s ORDER BY doctor_number LIMIT $%d OFFSET $%d`,
			doctorCols, cond, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	ds, err := collectDoctors(rows)
	if err != nil {
		return nil, 0, err
	}
	return ds, total, nil
}

func (r *repoPG) NextNumber(ctx context.Context) (string, error) {
	var n int64
	if err := r.conn(ctx).QueryRow(ctx, `SELECT nextval('doctor_number_seq')`).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("DOC%06d", n), nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(
		&d.ID, &d.DoctorNumber, &d.Name, &d.Gender, &d.Title, &d.DepartmentID, &d.Specialty,
		&d.QualificationNumber, &d.LicenseNumber, &d.EmploymentDate, &d.Status,
		&d.ContactPhone, &d.Email, &d.Introduction, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func collectDoctors(rows pgx.Rows) ([]*Doctor, error) {
	var ds []*Doctor
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(
			&d.ID, &d.DoctorNumber, &d.Name, &d.Gender, &d.Title, &d.DepartmentID, &d.Specialty,
			&d.QualificationNumber, &d.LicenseNumber, &d.EmploymentDate, &d.Status,
			&d.ContactPhone, &d.Email, &d.Introduction, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, err
		}
		ds = append(ds, &d)
	}
	return ds, nil
}
