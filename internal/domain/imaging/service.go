package imaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/derive"
	"github.com/medrec/medrec/internal/platform/blobstore"
)

// ErrUnsupportedMime rejects files outside the clinical image allow-list.
var ErrUnsupportedMime = errors.New("unsupported mime type")

var allowedMimeTypes = map[string]bool{
	"image/png":         true,
	"image/jpeg":        true,
	"image/gif":         true,
	"image/bmp":         true,
	"image/webp":        true,
	"image/tiff":        true,
	"image/dicom":       true,
	"application/dicom": true,
	"application/pdf":   true,
}

type Service struct {
	repo  Repository
	store blobstore.Store
}

func NewService(repo Repository, store blobstore.Store) *Service {
	return &Service{repo: repo, store: store}
}

// Upload writes the bytes to the blobstore and then the metadata row. The
// file never touches the database; only its key, path and size do. A failed
// metadata insert leaves the blob behind on purpose: keys are
// content-addressed, so another row may already point at the same bytes.
func (s *Service) Upload(ctx context.Context, img *MedicalImage, filename string, content io.Reader) error {
	if filename == "" {
		return fmt.Errorf("filename is required")
	}
	if img.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if img.MimeType == "" || img.MimeType == "application/octet-stream" {
		img.MimeType = mime.TypeByExtension(filepath.Ext(filename))
	}
	if !allowedMimeTypes[img.MimeType] {
		return fmt.Errorf("%w: %s", ErrUnsupportedMime, img.MimeType)
	}

	ok, err := s.repo.PatientExists(ctx, img.PatientID)
	if err != nil {
		return err
	}
	if !ok {
		return &derive.ReferenceError{Entity: "patient", ID: img.PatientID.String()}
	}

	result, err := s.store.Put(ctx, content)
	if err != nil {
		return err
	}
	img.OriginalFilename = filename
	img.StoredFilename = result.Key
	img.FilePath = result.Path
	img.FileSize = result.Size
	img.UploadTime = time.Now().UTC()
	img.IsDeleted = false

	if err := s.repo.CreateImage(ctx, img); err != nil {
		return &derive.PersistenceError{Op: "store image metadata", Err: err}
	}
	return nil
}

// Download resolves the metadata row and streams the blob. Soft-deleted
// images are gone as far as callers can tell.
func (s *Service) Download(ctx context.Context, id uuid.UUID) (io.ReadCloser, *MedicalImage, error) {
	img, err := s.repo.GetImage(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("image not found: %w", err)
	}
	rc, err := s.store.Get(ctx, img.StoredFilename)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch image content: %w", err)
	}
	return rc, img, nil
}

func (s *Service) GetImage(ctx context.Context, id uuid.UUID) (*MedicalImage, error) {
	return s.repo.GetImage(ctx, id)
}

func (s *Service) UpdateMetadata(ctx context.Context, img *MedicalImage) error {
	if img.CategoryID != nil {
		if _, err := s.repo.GetCategory(ctx, *img.CategoryID); err != nil {
			return &derive.ReferenceError{Entity: "image category", ID: img.CategoryID.String()}
		}
	}
	return s.repo.UpdateImageMeta(ctx, img)
}

// SoftDelete hides the metadata row; the blob stays in the store.
func (s *Service) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return s.repo.SoftDeleteImage(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, f ImageFilter, limit, offset int) ([]*MedicalImage, int, error) {
	return s.repo.ListByPatient(ctx, patientID, f, limit, offset)
}

func (s *Service) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*MedicalImage, error) {
	return s.repo.ListByVisit(ctx, visitID)
}

// -- Categories --

func (s *Service) CreateCategory(ctx context.Context, cat *ImageCategory) error {
	if cat.CategoryName == "" {
		return fmt.Errorf("category_name is required")
	}
	return s.repo.CreateCategory(ctx, cat)
}

func (s *Service) GetCategory(ctx context.Context, id uuid.UUID) (*ImageCategory, error) {
	return s.repo.GetCategory(ctx, id)
}

func (s *Service) UpdateCategory(ctx context.Context, cat *ImageCategory) error {
	if cat.CategoryName == "" {
		return fmt.Errorf("category_name is required")
	}
	return s.repo.UpdateCategory(ctx, cat)
}

func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteCategory(ctx, id)
}

func (s *Service) ListCategories(ctx context.Context) ([]*ImageCategory, error) {
	return s.repo.ListCategories(ctx)
}
