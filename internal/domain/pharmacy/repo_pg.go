package pharmacy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/medrec/medrec/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type queryable interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const medicationCols = `medication_id, medication_code, name, generic_name, category, dosage_form,
	specification, unit, unit_price, stock_quantity, min_stock_level,
	manufacturer, is_active, created_at, updated_at`

const prescriptionCols = `prescription_id, prescription_number, visit_id, doctor_id, status,
	total_amount, created_at, updated_at`

const detailCols = `detail_id, prescription_id, medication_id, quantity, unit_price, subtotal,
	dosage, frequency, duration_days, notes, dispensed_by, dispensed_at,
	created_at, updated_at`

// -- Medications --

func (r *repoPG) CreateMedication(ctx context.Context, m *Medication) error {
	m.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medications (
			medication_id, medication_code, name, generic_name, category, dosage_form,
			specification, unit, unit_price, stock_quantity, min_stock_level,
			manufacturer, is_active
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		m.ID, m.MedicationCode, m.Name, m.GenericName, m.Category, m.DosageForm,
		m.Specification, m.Unit, m.UnitPrice, m.StockQuantity, m.MinStockLevel,
		m.Manufacturer, m.IsActive,
	)
	return err
}

func (r *repoPG) GetMedication(ctx context.Context, id uuid.UUID) (*Medication, error) {
	return scanMedication(r.conn(ctx).QueryRow(ctx,
		`SELECT `+medicationCols+` FROM medications WHERE medication_id = $1`, id))
}

func (r *repoPG) GetMedicationByCode(ctx context.Context, code string) (*Medication, error) {
	return scanMedication(r.conn(ctx).QueryRow(ctx,
		`SELECT `+medicationCols+` FROM medications WHERE medication_code = $1`, code))
}

func (r *repoPG) UpdateMedication(ctx context.Context, m *Medication) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE medications SET
			name=$2, generic_name=$3, category=$4, dosage_form=$5, specification=$6,
			unit=$7, unit_price=$8, min_stock_level=$9, manufacturer=$10,
			is_active=$11, updated_at=NOW()
		WHERE medication_id = $1`,
		m.ID, m.Name, m.GenericName, m.Category, m.DosageForm, m.Specification,
		m.Unit, m.UnitPrice, m.MinStockLevel, m.Manufacturer, m.IsActive,
	)
	return err
}

func (r *repoPG) ListMedications(ctx context.Context, f MedicationFilter, limit, offset int) ([]*Medication, int, error) {
	where := []string{"1=1"}
	var args []interface{}
	if f.Keyword != "" {
		args = append(args, "%"+f.Keyword+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR generic_name ILIKE $%d OR medication_code ILIKE $%d)", n, n, n))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM medications WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM medications WHERE %s ORDER BY medication_code LIMIT $%d OFFSET $%d`,
			medicationCols, cond, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	ms, err := collectMedications(rows)
	if err != nil {
		return nil, 0, err
	}
	return ms, total, nil
}

func (r *repoPG) ListLowStock(ctx context.Context) ([]*Medication, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+medicationCols+` FROM medications
		 WHERE is_active AND stock_quantity <= min_stock_level
		 ORDER BY stock_quantity`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMedications(rows)
}

func (r *repoPG) AdjustStock(ctx context.Context, id uuid.UUID, delta int) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE medications SET stock_quantity = stock_quantity + $2, updated_at = NOW()
		 WHERE medication_id = $1`, id, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("medication %s not found", id)
	}
	return nil
}

// -- Prescriptions --

func (r *repoPG) CreatePrescription(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO prescriptions (
			prescription_id, prescription_number, visit_id, doctor_id, status, total_amount
		) VALUES ($1,$2,$3,$4,$5,$6)`,
		p.ID, p.PrescriptionNumber, p.VisitID, p.DoctorID, p.Status, p.TotalAmount,
	)
	return err
}

func (r *repoPG) GetPrescription(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return scanPrescription(r.conn(ctx).QueryRow(ctx,
		`SELECT `+prescriptionCols+` FROM prescriptions WHERE prescription_id = $1`, id))
}

func (r *repoPG) ListPrescriptionsByVisit(ctx context.Context, visitID uuid.UUID) ([]*Prescription, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+prescriptionCols+` FROM prescriptions WHERE visit_id = $1 ORDER BY created_at`, visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ps []*Prescription
	for rows.Next() {
		var p Prescription
		if err := rows.Scan(
			&p.ID, &p.PrescriptionNumber, &p.VisitID, &p.DoctorID, &p.Status,
			&p.TotalAmount, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		ps = append(ps, &p)
	}
	return ps, nil
}

// DeletePrescription removes the prescription; details go with it through
// the ON DELETE CASCADE constraint.
func (r *repoPG) DeletePrescription(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM prescriptions WHERE prescription_id = $1`, id)
	return err
}

func (r *repoPG) PrescriptionExistsForUpdate(ctx context.Context, id uuid.UUID) (bool, error) {
	var got uuid.UUID
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT prescription_id FROM prescriptions WHERE prescription_id = $1 FOR UPDATE`, id).Scan(&got)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *repoPG) SumDetailSubtotals(ctx context.Context, prescriptionID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COALESCE(SUM(subtotal), 0) FROM prescription_details WHERE prescription_id = $1`,
		prescriptionID).Scan(&total)
	return total, err
}

func (r *repoPG) UpdateTotalAmount(ctx context.Context, id uuid.UUID, total decimal.Decimal) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE prescriptions SET total_amount = $2, updated_at = NOW() WHERE prescription_id = $1`,
		id, total)
	return err
}

// -- Details --

func (r *repoPG) InsertDetail(ctx context.Context, d *PrescriptionDetail) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO prescription_details (
			detail_id, prescription_id, medication_id, quantity, unit_price, subtotal,
			dosage, frequency, duration_days, notes, dispensed_by, dispensed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		d.ID, d.PrescriptionID, d.MedicationID, d.Quantity, d.UnitPrice, d.Subtotal,
		d.Dosage, d.Frequency, d.DurationDays, d.Notes, d.DispensedBy, d.DispensedAt,
	)
	return err
}

func (r *repoPG) GetDetail(ctx context.Context, id uuid.UUID) (*PrescriptionDetail, error) {
	return scanDetail(r.conn(ctx).QueryRow(ctx,
		`SELECT `+detailCols+` FROM prescription_details WHERE detail_id = $1`, id))
}

func (r *repoPG) GetDetailForUpdate(ctx context.Context, id uuid.UUID) (*PrescriptionDetail, error) {
	return scanDetail(r.conn(ctx).QueryRow(ctx,
		`SELECT `+detailCols+` FROM prescription_details WHERE detail_id = $1 FOR UPDATE`, id))
}

func (r *repoPG) ListDetails(ctx context.Context, prescriptionID uuid.UUID) ([]*PrescriptionDetail, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+detailCols+` FROM prescription_details WHERE prescription_id = $1 ORDER BY created_at`,
		prescriptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ds []*PrescriptionDetail
	for rows.Next() {
		var d PrescriptionDetail
		if err := rows.Scan(
			&d.ID, &d.PrescriptionID, &d.MedicationID, &d.Quantity, &d.UnitPrice, &d.Subtotal,
			&d.Dosage, &d.Frequency, &d.DurationDays, &d.Notes, &d.DispensedBy, &d.DispensedAt,
			&d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, err
		}
		ds = append(ds, &d)
	}
	return ds, nil
}

func (r *repoPG) UpdateDetail(ctx context.Context, d *PrescriptionDetail) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE prescription_details SET
			quantity=$2, unit_price=$3, subtotal=$4, dosage=$5, frequency=$6,
			duration_days=$7, notes=$8, dispensed_by=$9, dispensed_at=$10, updated_at=NOW()
		WHERE detail_id = $1`,
		d.ID, d.Quantity, d.UnitPrice, d.Subtotal, d.Dosage, d.Frequency,
		d.DurationDays, d.Notes, d.DispensedBy, d.DispensedAt,
	)
	return err
}

func (r *repoPG) SetDetailDispensed(ctx context.Context, id, dispensedBy uuid.UUID, dispensedAt time.Time) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE prescription_details SET dispensed_by = $2, dispensed_at = $3, updated_at = NOW()
		 WHERE detail_id = $1`, id, dispensedBy, dispensedAt)
	return err
}

func (r *repoPG) VisitExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM medical_visits WHERE visit_id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *repoPG) NextPrescriptionNumber(ctx context.Context) (string, error) {
	var n int64
	if err := r.conn(ctx).QueryRow(ctx, `SELECT nextval('prescription_number_seq')`).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("RX%08d", n), nil
}

func scanMedication(row pgx.Row) (*Medication, error) {
	var m Medication
	err := row.Scan(
		&m.ID, &m.MedicationCode, &m.Name, &m.GenericName, &m.Category, &m.DosageForm,
		&m.Specification, &m.Unit, &m.UnitPrice, &m.StockQuantity, &m.MinStockLevel,
		&m.Manufacturer, &m.IsActive, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func collectMedications(rows pgx.Rows) ([]*Medication, error) {
	var ms []*Medication
	for rows.Next() {
		var m Medication
		if err := rows.Scan(
			&m.ID, &m.MedicationCode, &m.Name, &m.GenericName, &m.Category, &m.DosageForm,
			&m.Specification, &m.Unit, &m.UnitPrice, &m.StockQuantity, &m.MinStockLevel,
			&m.Manufacturer, &m.IsActive, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		ms = append(ms, &m)
	}
	return ms, nil
}

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(
		&p.ID, &p.PrescriptionNumber, &p.VisitID, &p.DoctorID, &p.Status,
		&p.TotalAmount, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanDetail(row pgx.Row) (*PrescriptionDetail, error) {
	var d PrescriptionDetail
	err := row.Scan(
		&d.ID, &d.PrescriptionID, &d.MedicationID, &d.Quantity, &d.UnitPrice, &d.Subtotal,
		&d.Dosage, &d.Frequency, &d.DurationDays, &d.Notes, &d.DispensedBy, &d.DispensedAt,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
