package imaging

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

const categoryCols = `category_id, category_name, description, created_at, updated_at`

func (r *repoPG) CreateCategory(ctx context.Context, cat *ImageCategory) error {
	cat.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO image_categories (category_id, category_name, description)
		VALUES ($1, $2, $3)`,
		cat.ID, cat.CategoryName, cat.Description,
	)
	return err
}

func (r *repoPG) GetCategory(ctx context.Context, id uuid.UUID) (*ImageCategory, error) {
	return scanCategory(r.conn(ctx).QueryRow(ctx,
		`SELECT `+categoryCols+` FROM image_categories WHERE category_id = $1`, id))
}

func (r *repoPG) UpdateCategory(ctx context.Context, cat *ImageCategory) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE image_categories SET category_name=$2, description=$3, updated_at=NOW()
		WHERE category_id = $1`,
		cat.ID, cat.CategoryName, cat.Description,
	)
	return err
}

func (r *repoPG) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM image_categories WHERE category_id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("image category %s not found", id)
	}
	return nil
}

func (r *repoPG) ListCategories(ctx context.Context) ([]*ImageCategory, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+categoryCols+` FROM image_categories ORDER BY category_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []*ImageCategory
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		cats = append(cats, cat)
	}
	return cats, rows.Err()
}

const imageCols = `image_id, original_filename, stored_filename, file_path, file_size, mime_type,
	image_width, image_height, category_id, patient_id, visit_id, doctor_id,
	title, description, tags, is_public, uploaded_by, upload_time, is_deleted,
	created_at, updated_at`

func (r *repoPG) CreateImage(ctx context.Context, img *MedicalImage) error {
	img.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medical_images (
			image_id, original_filename, stored_filename, file_path, file_size, mime_type,
			image_width, image_height, category_id, patient_id, visit_id, doctor_id,
			title, description, tags, is_public, uploaded_by, upload_time
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		img.ID, img.OriginalFilename, img.StoredFilename, img.FilePath, img.FileSize,
		img.MimeType, img.ImageWidth, img.ImageHeight, img.CategoryID, img.PatientID,
		img.VisitID, img.DoctorID, img.Title, img.Description, img.Tags,
		img.IsPublic, img.UploadedBy, img.UploadTime,
	)
	return err
}

func (r *repoPG) GetImage(ctx context.Context, id uuid.UUID) (*MedicalImage, error) {
	return scanImage(r.conn(ctx).QueryRow(ctx,
		`SELECT `+imageCols+` FROM medical_images WHERE image_id = $1 AND NOT is_deleted`, id))
}

// UpdateImageMeta leaves the file columns and patient binding alone.
func (r *repoPG) UpdateImageMeta(ctx context.Context, img *MedicalImage) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE medical_images SET
			image_width=$2, image_height=$3, category_id=$4, visit_id=$5, doctor_id=$6,
			title=$7, description=$8, tags=$9, is_public=$10, updated_at=NOW()
		WHERE image_id = $1 AND NOT is_deleted`,
		img.ID, img.ImageWidth, img.ImageHeight, img.CategoryID, img.VisitID,
		img.DoctorID, img.Title, img.Description, img.Tags, img.IsPublic,
	)
	return err
}

func (r *repoPG) SoftDeleteImage(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE medical_images SET is_deleted = TRUE, updated_at = NOW()
		 WHERE image_id = $1 AND NOT is_deleted`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("image %s not found", id)
	}
	return nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, f ImageFilter, limit, offset int) ([]*MedicalImage, int, error) {
	where := []string{"patient_id = $1", "NOT is_deleted"}
	args := []interface{}{patientID}
	if f.CategoryID != uuid.Nil {
		args = append(args, f.CategoryID)
		where = append(where, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if f.MimeType != "" {
		args = append(args, f.MimeType)
		where = append(where, fmt.Sprintf("mime_type = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM medical_images WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+imageCols+` FROM medical_images WHERE `+cond+
			fmt.Sprintf(` ORDER BY upload_time DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	imgs, err := collectImages(rows)
	if err != nil {
		return nil, 0, err
	}
	return imgs, total, nil
}

func (r *repoPG) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*MedicalImage, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+imageCols+` FROM medical_images
		 WHERE visit_id = $1 AND NOT is_deleted ORDER BY upload_time DESC`, visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectImages(rows)
}

func (r *repoPG) PatientExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM patients WHERE patient_id = $1)`, id).Scan(&exists)
	return exists, err
}

func scanCategory(row pgx.Row) (*ImageCategory, error) {
	var cat ImageCategory
	err := row.Scan(&cat.ID, &cat.CategoryName, &cat.Description, &cat.CreatedAt, &cat.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

func scanImage(row pgx.Row) (*MedicalImage, error) {
	var img MedicalImage
	err := row.Scan(
		&img.ID, &img.OriginalFilename, &img.StoredFilename, &img.FilePath,
		&img.FileSize, &img.MimeType, &img.ImageWidth, &img.ImageHeight,
		&img.CategoryID, &img.PatientID, &img.VisitID, &img.DoctorID,
		&img.Title, &img.Description, &img.Tags, &img.IsPublic,
		&img.UploadedBy, &img.UploadTime, &img.IsDeleted,
		&img.CreatedAt, &img.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &img, nil
}

func collectImages(rows pgx.Rows) ([]*MedicalImage, error) {
	var imgs []*MedicalImage
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		imgs = append(imgs, img)
	}
	return imgs, rows.Err()
}
