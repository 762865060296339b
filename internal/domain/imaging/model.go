package imaging

import (
	"time"

	"github.com/google/uuid"
)

type ImageCategory struct {
	ID           uuid.UUID `db:"category_id" json:"category_id"`
	CategoryName string    `db:"category_name" json:"category_name"`
	Description  *string   `db:"description" json:"description,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// MedicalImage is the metadata row for an uploaded file; the bytes live in
// the blobstore under StoredFilename. Width and height are caller-supplied,
// never derived here.
type MedicalImage struct {
	ID               uuid.UUID  `db:"image_id" json:"image_id"`
	OriginalFilename string     `db:"original_filename" json:"original_filename"`
	StoredFilename   string     `db:"stored_filename" json:"stored_filename"`
	FilePath         string     `db:"file_path" json:"file_path"`
	FileSize         int64      `db:"file_size" json:"file_size"`
	MimeType         string     `db:"mime_type" json:"mime_type"`
	ImageWidth       *int       `db:"image_width" json:"image_width,omitempty"`
	ImageHeight      *int       `db:"image_height" json:"image_height,omitempty"`
	CategoryID       *uuid.UUID `db:"category_id" json:"category_id,omitempty"`
	PatientID        uuid.UUID  `db:"patient_id" json:"patient_id"`
	VisitID          *uuid.UUID `db:"visit_id" json:"visit_id,omitempty"`
	DoctorID         *uuid.UUID `db:"doctor_id" json:"doctor_id,omitempty"`
	Title            *string    `db:"title" json:"title,omitempty"`
	Description      *string    `db:"description" json:"description,omitempty"`
	Tags             *string    `db:"tags" json:"tags,omitempty"`
	IsPublic         bool       `db:"is_public" json:"is_public"`
	UploadedBy       *uuid.UUID `db:"uploaded_by" json:"uploaded_by,omitempty"`
	UploadTime       time.Time  `db:"upload_time" json:"upload_time"`
	IsDeleted        bool       `db:"is_deleted" json:"-"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}
