package examination

import (
	"context"
	"encoding/json"
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

const itemCols = `item_id, item_code, item_name, item_type, modality, category, description,
	standard_duration, preparation_instructions, normal_range, unit,
	reference_price, is_active, created_at, updated_at`

func (r *repoPG) CreateItem(ctx context.Context, item *ExamItem) error {
	item.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO examination_items (
			item_id, item_code, item_name, item_type, modality, category, description,
			standard_duration, preparation_instructions, normal_range, unit,
			reference_price, is_active
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		item.ID, item.ItemCode, item.ItemName, item.ItemType, item.Modality,
		item.Category, item.Description, item.StandardDuration,
		item.PreparationInstructions, item.NormalRange, item.Unit,
		item.ReferencePrice, item.IsActive,
	)
	return err
}

func (r *repoPG) GetItem(ctx context.Context, id uuid.UUID) (*ExamItem, error) {
	return scanItem(r.conn(ctx).QueryRow(ctx,
		`SELECT `+itemCols+` FROM examination_items WHERE item_id = $1`, id))
}

func (r *repoPG) GetItemByCode(ctx context.Context, code string) (*ExamItem, error) {
	return scanItem(r.conn(ctx).QueryRow(ctx,
		`SELECT `+itemCols+` FROM examination_items WHERE item_code = $1`, code))
}

// UpdateItem never writes the item_code column.
func (r *repoPG) UpdateItem(ctx context.Context, item *ExamItem) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE examination_items SET
			item_name=$2, item_type=$3, modality=$4, category=$5, description=$6,
			standard_duration=$7, preparation_instructions=$8, normal_range=$9,
			unit=$10, reference_price=$11, is_active=$12, updated_at=NOW()
		WHERE item_id = $1`,
		item.ID, item.ItemName, item.ItemType, item.Modality, item.Category,
		item.Description, item.StandardDuration, item.PreparationInstructions,
		item.NormalRange, item.Unit, item.ReferencePrice, item.IsActive,
	)
	return err
}

func (r *repoPG) DeactivateItem(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE examination_items SET is_active = FALSE, updated_at = NOW() WHERE item_id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("examination item %s not found", id)
	}
	return nil
}

func (r *repoPG) ListItems(ctx context.Context, f ItemFilter, limit, offset int) ([]*ExamItem, int, error) {
	where := []string{"1=1"}
	var args []interface{}
	if f.Keyword != "" {
		args = append(args, "%"+f.Keyword+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(item_name ILIKE $%d OR item_code ILIKE $%d)", n, n))
	}
	if f.ItemType != "" {
		args = append(args, f.ItemType)
		where = append(where, fmt.Sprintf("item_type = $%d", len(args)))
	}
	if f.Modality != "" {
		args = append(args, f.Modality)
		where = append(where, fmt.Sprintf("modality = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM examination_items WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+itemCols+` FROM examination_items WHERE `+cond+
			fmt.Sprintf(` ORDER BY item_code LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items, err := collectItems(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

const examCols = `exam_id, exam_number, visit_id, item_id, exam_date, result_summary,
	result_values, data_path, report_path, ai_analysis, status, reviewed_by,
	created_at, updated_at`

func (r *repoPG) CreateExam(ctx context.Context, e *ExamRecord) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO examination_records (
			exam_id, exam_number, visit_id, item_id, exam_date, result_summary,
			result_values, data_path, report_path, ai_analysis, status, reviewed_by
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		e.ID, e.ExamNumber, e.VisitID, e.ItemID, e.ExamDate, e.ResultSummary,
		e.ResultValues, e.DataPath, e.ReportPath, e.AIAnalysis, e.Status, e.ReviewedBy,
	)
	return err
}

func (r *repoPG) GetExam(ctx context.Context, id uuid.UUID) (*ExamRecord, error) {
	return scanExam(r.conn(ctx).QueryRow(ctx,
		`SELECT `+examCols+` FROM examination_records WHERE exam_id = $1`, id))
}

func (r *repoPG) GetExamByNumber(ctx context.Context, number string) (*ExamRecord, error) {
	return scanExam(r.conn(ctx).QueryRow(ctx,
		`SELECT `+examCols+` FROM examination_records WHERE exam_number = $1`, number))
}

func (r *repoPG) GetExamForUpdate(ctx context.Context, id uuid.UUID) (*ExamRecord, error) {
	return scanExam(r.conn(ctx).QueryRow(ctx,
		`SELECT `+examCols+` FROM examination_records WHERE exam_id = $1 FOR UPDATE`, id))
}

func (r *repoPG) SetResult(ctx context.Context, id uuid.UUID, summary *string, values, analysis json.RawMessage, status string) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE examination_records SET
			result_summary=$2, result_values=$3, ai_analysis=$4, status=$5, updated_at=NOW()
		WHERE exam_id = $1`,
		id, summary, values, analysis, status)
	return err
}

func (r *repoPG) SetReviewed(ctx context.Context, id, reviewedBy uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE examination_records SET status=$2, reviewed_by=$3, updated_at=NOW()
		WHERE exam_id = $1`,
		id, StatusReviewed, reviewedBy)
	return err
}

func (r *repoPG) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*ExamRecord, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+examCols+` FROM examination_records WHERE visit_id = $1 ORDER BY created_at`, visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectExams(rows)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, f ExamFilter, limit, offset int) ([]*ExamRecord, int, error) {
	where := []string{"v.patient_id = $1"}
	args := []interface{}{patientID}
	if f.ItemID != uuid.Nil {
		args = append(args, f.ItemID)
		where = append(where, fmt.Sprintf("e.item_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("e.status = $%d", len(args)))
	}
	if f.DateFrom != nil {
		args = append(args, *f.DateFrom)
		where = append(where, fmt.Sprintf("e.exam_date >= $%d", len(args)))
	}
	if f.DateTo != nil {
		args = append(args, *f.DateTo)
		where = append(where, fmt.Sprintf("e.exam_date <= $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	const from = ` FROM examination_records e
		JOIN medical_visits v ON v.visit_id = e.visit_id WHERE `

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*)`+from+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	const cols = `e.exam_id, e.exam_number, e.visit_id, e.item_id, e.exam_date,
		e.result_summary, e.result_values, e.data_path, e.report_path,
		e.ai_analysis, e.status, e.reviewed_by, e.created_at, e.updated_at`
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+cols+from+cond+
			fmt.Sprintf(` ORDER BY e.exam_date DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	exams, err := collectExams(rows)
	if err != nil {
		return nil, 0, err
	}
	return exams, total, nil
}

func (r *repoPG) VisitExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM medical_visits WHERE visit_id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *repoPG) ItemExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM examination_items WHERE item_id = $1 AND is_active)`, id).Scan(&exists)
	return exists, err
}

func (r *repoPG) DoctorExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM doctors WHERE doctor_id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *repoPG) NextExamNumber(ctx context.Context) (string, error) {
	var n int64
	if err := r.conn(ctx).QueryRow(ctx, `SELECT nextval('exam_number_seq')`).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("EXAM%08d", n), nil
}

func scanItem(row pgx.Row) (*ExamItem, error) {
	var item ExamItem
	err := row.Scan(
		&item.ID, &item.ItemCode, &item.ItemName, &item.ItemType, &item.Modality,
		&item.Category, &item.Description, &item.StandardDuration,
		&item.PreparationInstructions, &item.NormalRange, &item.Unit,
		&item.ReferencePrice, &item.IsActive, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func collectItems(rows pgx.Rows) ([]*ExamItem, error) {
	var items []*ExamItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanExam(row pgx.Row) (*ExamRecord, error) {
	var e ExamRecord
	err := row.Scan(
		&e.ID, &e.ExamNumber, &e.VisitID, &e.ItemID, &e.ExamDate, &e.ResultSummary,
		&e.ResultValues, &e.DataPath, &e.ReportPath, &e.AIAnalysis, &e.Status,
		&e.ReviewedBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func collectExams(rows pgx.Rows) ([]*ExamRecord, error) {
	var exams []*ExamRecord
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}
