package imaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medrec/medrec/internal/platform/blobstore"
)

func newTestHandler() (*Handler, *mockRepo, *echo.Echo) {
	repo := newMockRepo()
	h := NewHandler(NewService(repo, blobstore.NewMemoryStore()))
	e := echo.New()
	return h, repo, e
}

// multipartBody builds an upload form with an explicitly typed file part,
// the way browsers send it.
func multipartBody(t *testing.T, fields map[string]string, filename, mimeType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	hdr.Set("Content-Type", mimeType)
	part, err := w.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create file part: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write file part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return buf, w.FormDataContentType()
}

func TestHandler_Upload(t *testing.T) {
	h, repo, e := newTestHandler()
	patientID := seedPatient(repo)

	buf, contentType := multipartBody(t, map[string]string{
		"patient_id": patientID.String(),
		"title":      "left wrist",
		"width":      "1024",
		"height":     "768",
	}, "scan.png", "image/png", []byte("fake png bytes"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", buf)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Upload(c); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["original_filename"] != "scan.png" {
		t.Errorf("original_filename = %v, want scan.png", payload["original_filename"])
	}
	key, _ := payload["stored_filename"].(string)
	if len(key) != 64 {
		t.Errorf("stored_filename = %q, want 64-char content hash", key)
	}
	if payload["mime_type"] != "image/png" {
		t.Errorf("mime_type = %v, want image/png", payload["mime_type"])
	}
	if payload["image_width"] != float64(1024) {
		t.Errorf("image_width = %v, want 1024", payload["image_width"])
	}
	if len(repo.images) != 1 {
		t.Errorf("metadata rows = %d, want 1", len(repo.images))
	}
}

func TestHandler_Upload_MissingPatientIs422(t *testing.T) {
	h, repo, e := newTestHandler()

	buf, contentType := multipartBody(t, map[string]string{
		"patient_id": uuid.New().String(),
	}, "scan.png", "image/png", []byte("fake png bytes"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", buf)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Upload(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", httpErr.Code)
	}
	if len(repo.images) != 0 {
		t.Errorf("metadata rows = %d, want 0", len(repo.images))
	}
}

func TestHandler_Upload_UnsupportedMimeIs415(t *testing.T) {
	h, repo, e := newTestHandler()
	patientID := seedPatient(repo)

	buf, contentType := multipartBody(t, map[string]string{
		"patient_id": patientID.String(),
	}, "setup.exe", "application/x-msdownload", []byte("MZ"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", buf)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Upload(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415, got %d", httpErr.Code)
	}
}

func TestHandler_Upload_OversizeIs413(t *testing.T) {
	repo := newMockRepo()
	store, err := blobstore.NewFSStore(t.TempDir(), 8)
	if err != nil {
		t.Fatalf("NewFSStore() error = %v", err)
	}
	h := NewHandler(NewService(repo, store))
	e := echo.New()
	patientID := seedPatient(repo)

	buf, contentType := multipartBody(t, map[string]string{
		"patient_id": patientID.String(),
	}, "scan.png", "image/png", bytes.Repeat([]byte("x"), 32))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", buf)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	uploadErr := h.Upload(c)
	httpErr, ok := uploadErr.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTPError, got %v", uploadErr)
	}
	if httpErr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", httpErr.Code)
	}
}

func TestHandler_DownloadStreamsAttachment(t *testing.T) {
	h, repo, e := newTestHandler()
	patientID := seedPatient(repo)
	data := []byte("dicom-ish payload")

	img := MedicalImage{PatientID: patientID, MimeType: "application/dicom"}
	if err := h.svc.Upload(context.Background(), &img, "chest.dcm", bytes.NewReader(data)); err != nil {
		t.Fatalf("seed upload: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/images/"+img.ID.String()+"/content", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(img.ID.String())

	if err := h.Download(c); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !bytes.Equal(rec.Body.Bytes(), data) {
		t.Errorf("body = %q, want %q", rec.Body.Bytes(), data)
	}
	if got := rec.Header().Get(echo.HeaderContentType); got != "application/dicom" {
		t.Errorf("content type = %s, want application/dicom", got)
	}
	if disp := rec.Header().Get("Content-Disposition"); !strings.Contains(disp, `filename="chest.dcm"`) {
		t.Errorf("content disposition = %s, want attachment with original filename", disp)
	}
}

func TestHandler_DeleteIsSoft(t *testing.T) {
	h, repo, e := newTestHandler()
	patientID := seedPatient(repo)

	img := MedicalImage{PatientID: patientID, MimeType: "image/png"}
	if err := h.svc.Upload(context.Background(), &img, "scan.png", strings.NewReader("bytes")); err != nil {
		t.Fatalf("seed upload: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/images/"+img.ID.String(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(img.ID.String())

	if err := h.Delete(c); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/images/"+img.ID.String(), nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(img.ID.String())

	err := h.GetImage(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after soft delete, got %v", err)
	}
	// The row is hidden, not gone.
	if stored := repo.images[img.ID]; stored == nil || !stored.IsDeleted {
		t.Error("expected row marked deleted, not removed")
	}
}

func TestHandler_UpdateMetadataPreservesFileColumns(t *testing.T) {
	h, repo, e := newTestHandler()
	patientID := seedPatient(repo)

	img := MedicalImage{PatientID: patientID, MimeType: "image/png"}
	if err := h.svc.Upload(context.Background(), &img, "scan.png", strings.NewReader("bytes")); err != nil {
		t.Fatalf("seed upload: %v", err)
	}

	body := `{"title":"left wrist","stored_filename":"tampered","file_size":1,"mime_type":"text/plain"}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/images/"+img.ID.String(), strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(img.ID.String())

	if err := h.UpdateMetadata(c); err != nil {
		t.Fatalf("UpdateMetadata() error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	stored, err := repo.GetImage(context.Background(), img.ID)
	if err != nil {
		t.Fatalf("GetImage() error = %v", err)
	}
	if stored.Title == nil || *stored.Title != "left wrist" {
		t.Errorf("title not updated, got %v", stored.Title)
	}
	if stored.StoredFilename != img.StoredFilename {
		t.Errorf("stored filename changed to %s", stored.StoredFilename)
	}
	if stored.MimeType != "image/png" {
		t.Errorf("mime type changed to %s", stored.MimeType)
	}
}

func TestHandler_CreateCategory(t *testing.T) {
	h, _, e := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/image-categories", strings.NewReader(`{"category_name":"MRI"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateCategory(c); err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["category_name"] != "MRI" {
		t.Errorf("category_name = %v, want MRI", payload["category_name"])
	}
}
