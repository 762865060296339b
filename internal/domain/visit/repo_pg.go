package visit

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

const visitCols = `visit_id, visit_number, patient_id, hospital_id, department_id, doctor_id,
	visit_date, visit_type, chief_complaint, diagnosis, advice,
	temperature, blood_pressure, heart_rate, height, weight, bmi,
	payment_status, total_fee, is_emergency, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, v *Visit) error {
	v.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medical_visits (
			visit_id, visit_number, patient_id, hospital_id, department_id, doctor_id,
			visit_date, visit_type, chief_complaint, diagnosis, advice,
			temperature, blood_pressure, heart_rate, height, weight, bmi,
			payment_status, total_fee, is_emergency
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		v.ID, v.VisitNumber, v.PatientID, v.HospitalID, v.DepartmentID, v.DoctorID,
		v.VisitDate, v.VisitType, v.ChiefComplaint, v.Diagnosis, v.Advice,
		v.Temperature, v.BloodPressure, v.HeartRate, v.Height, v.Weight, v.BMI,
		v.PaymentStatus, v.TotalFee, v.IsEmergency,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return scanVisit(r.conn(ctx).QueryRow(ctx,
		`SELECT `+visitCols+` FROM medical_visits WHERE visit_id = $1`, id))
}

func (r *repoPG) GetByNumber(ctx context.Context, number string) (*Visit, error) {
	return scanVisit(r.conn(ctx).QueryRow(ctx,
		`SELECT `+visitCols+` FROM medical_visits WHERE visit_number = $1`, number))
}

// Update never writes the bmi column.
func (r *repoPG) Update(ctx context.Context, v *Visit) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE medical_visits SET
			hospital_id=$2, department_id=$3, doctor_id=$4, visit_date=$5, visit_type=$6,
			chief_complaint=$7, diagnosis=$8, advice=$9, temperature=$10,
			blood_pressure=$11, heart_rate=$12, height=$13, weight=$14,
			payment_status=$15, total_fee=$16, is_emergency=$17, updated_at=NOW()
		WHERE visit_id = $1`,
		v.ID, v.HospitalID, v.DepartmentID, v.DoctorID, v.VisitDate, v.VisitType,
		v.ChiefComplaint, v.Diagnosis, v.Advice, v.Temperature,
		v.BloodPressure, v.HeartRate, v.Height, v.Weight,
		v.PaymentStatus, v.TotalFee, v.IsEmergency,
	)
	return err
}

func (r *repoPG) UpdateDiagnosis(ctx context.Context, id uuid.UUID, diagnosis, advice string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE medical_visits SET diagnosis = $2, advice = $3, updated_at = NOW() WHERE visit_id = $1`,
		id, diagnosis, advice)
	return err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, f SearchFilter, limit, offset int) ([]*Visit, int, error) {
	f.PatientID = patientID
	return r.Search(ctx, f, limit, offset)
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, f SearchFilter, limit, offset int) ([]*Visit, int, error) {
	f.DoctorID = doctorID
	return r.Search(ctx, f, limit, offset)
}

func (r *repoPG) Search(ctx context.Context, f SearchFilter, limit, offset int) ([]*Visit, int, error) {
	where := []string{"1=1"}
	var args []interface{}
	if f.PatientID != uuid.Nil {
		args = append(args, f.PatientID)
		where = append(where, fmt.Sprintf("patient_id = $%d", len(args)))
	}
	if f.DoctorID != uuid.Nil {
		args = append(args, f.DoctorID)
		where = append(where, fmt.Sprintf("doctor_id = $%d", len(args)))
	}
	if f.DepartmentID != uuid.Nil {
		args = append(args, f.DepartmentID)
		where = append(where, fmt.Sprintf("department_id = $%d", len(args)))
	}
	if f.VisitType != "" {
		args = append(args, f.VisitType)
		where = append(where, fmt.Sprintf("visit_type = $%d", len(args)))
	}
	if f.PaymentStatus != "" {
		args = append(args, f.PaymentStatus)
		where = append(where, fmt.Sprintf("payment_status = $%d", len(args)))
	}
	if f.DateFrom != nil {
		args = append(args, *f.DateFrom)
		where = append(where, fmt.Sprintf("visit_date >= $%d", len(args)))
	}
	if f.DateTo != nil {
		args = append(args, *f.DateTo)
		where = append(where, fmt.Sprintf("visit_date <= $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM medical_visits WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM medical_visits WHERE %s ORDER BY visit_date DESC, created_at DESC LIMIT $%d OFFSET $%d`,
			visitCols, cond, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	vs, err := collectVisits(rows)
	if err != nil {
		return nil, 0, err
	}
	return vs, total, nil
}

func (r *repoPG) PatientExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM patients WHERE patient_id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *repoPG) DoctorExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM doctors WHERE doctor_id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *repoPG) NextNumber(ctx context.Context) (string, error) {
	var n int64
	if err := r.conn(ctx).QueryRow(ctx, `SELECT nextval('visit_number_seq')`).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("VIS%08d", n), nil
}

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	err := row.Scan(
		&v.ID, &v.VisitNumber, &v.PatientID, &v.HospitalID, &v.DepartmentID, &v.DoctorID,
		&v.VisitDate, &v.VisitType, &v.ChiefComplaint, &v.Diagnosis, &v.Advice,
		&v.Temperature, &v.BloodPressure, &v.HeartRate, &v.Height, &v.Weight, &v.BMI,
		&v.PaymentStatus, &v.TotalFee, &v.IsEmergency, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func collectVisits(rows pgx.Rows) ([]*Visit, error) {
	var vs []*Visit
	for rows.Next() {
		var v Visit
		if err := rows.Scan(
			&v.ID, &v.VisitNumber, &v.PatientID, &v.HospitalID, &v.DepartmentID, &v.DoctorID,
			&v.VisitDate, &v.VisitType, &v.ChiefComplaint, &v.Diagnosis, &v.Advice,
			&v.Temperature, &v.BloodPressure, &v.HeartRate, &v.Height, &v.Weight, &v.BMI,
			&v.PaymentStatus, &v.TotalFee, &v.IsEmergency, &v.CreatedAt, &v.UpdatedAt,
		); err != nil {
			return nil, err
		}
		vs = append(vs, &v)
	}
	return vs, nil
}
