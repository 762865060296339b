package patient

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

const patientCols = `patient_id, empi_code, name, gender, birth_date, id_card_hash,
	medical_insurance_id, blood_type, allergy_history, chronic_diseases,
	emergency_contact, emergency_phone, phone, email, address,
	is_active, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (
			patient_id, empi_code, name, gender, birth_date, id_card_hash,
			medical_insurance_id, blood_type, allergy_history, chronic_diseases,
			emergency_contact, emergency_phone, phone, email, address, is_active
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		p.ID, p.EMPICode, p.Name, p.Gender, p.BirthDate, p.IDCardHash,
		p.MedicalInsuranceID, p.BloodType, p.AllergyHistory, p.ChronicDiseases,
		p.EmergencyContact, p.EmergencyPhone, p.Phone, p.Email, p.Address, p.IsActive,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE patient_id = $1`, id))
}

func (r *repoPG) GetByEMPI(ctx context.Context, code string) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE empi_code = $1`, code))
}

func (r *repoPG) GetByIDCardHash(ctx context.Context, hash string) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE id_card_hash = $1`, hash))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET
			name=$2, gender=$3, birth_date=$4, medical_insurance_id=$5,
			blood_type=$6, allergy_history=$7, chronic_diseases=$8,
			emergency_contact=$9, emergency_phone=$10, phone=$11, email=$12,
			address=$13, is_active=$14, updated_at=NOW()
		WHERE patient_id = $1`,
		p.ID, p.Name, p.Gender, p.BirthDate, p.MedicalInsuranceID,
		p.BloodType, p.AllergyHistory, p.ChronicDiseases,
		p.EmergencyContact, p.EmergencyPhone, p.Phone, p.Email,
		p.Address, p.IsActive,
	)
	return err
}

func (r *repoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE patients SET is_active = FALSE, updated_at = NOW() WHERE patient_id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patients ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectPatients(rows, total)
}

func (r *repoPG) Search(ctx context.Context, f SearchFilter, limit, offset int) ([]*Patient, int, error) {
	where := []string{"1=1"}
	var args []interface{}
	if f.Keyword != "" {
		args = append(args, "%"+f.Keyword+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR phone ILIKE $%d OR empi_code ILIKE $%d)", n, n, n))
	}
	if f.Gender != "" {
		args = append(args, f.Gender)
		where = append(where, fmt.Sprintf("gender = $%d", len(args)))
	}
	if f.BloodType != "" {
		args = append(args, f.BloodType)
		where = append(where, fmt.Sprintf("blood_type = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patients WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM patients WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
			patientCols, cond, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectPatients(rows, total)
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.EMPICode, &p.Name, &p.Gender, &p.BirthDate, &p.IDCardHash,
		&p.MedicalInsuranceID, &p.BloodType, &p.AllergyHistory, &p.ChronicDiseases,
		&p.EmergencyContact, &p.EmergencyPhone, &p.Phone, &p.Email, &p.Address,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPatients(rows pgx.Rows, total int) ([]*Patient, int, error) {
	var pts []*Patient
	for rows.Next() {
		var p Patient
		err := rows.Scan(
			&p.ID, &p.EMPICode, &p.Name, &p.Gender, &p.BirthDate, &p.IDCardHash,
			&p.MedicalInsuranceID, &p.BloodType, &p.AllergyHistory, &p.ChronicDiseases,
			&p.EmergencyContact, &p.EmergencyPhone, &p.Phone, &p.Email, &p.Address,
			&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		pts = append(pts, &p)
	}
	return pts, total, nil
}
