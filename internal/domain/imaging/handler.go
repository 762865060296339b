package imaging

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medrec/medrec/internal/derive"
	"github.com/medrec/medrec/internal/platform/auth"
	"github.com/medrec/medrec/internal/platform/blobstore"
	"github.com/medrec/medrec/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "doctor", "pharmacist", "technician", "viewer"))
	readGroup.GET("/images/:id", h.GetImage)
	readGroup.GET("/images/:id/content", h.Download)
	readGroup.GET("/patients/:id/images", h.ListByPatient)
	readGroup.GET("/visits/:id/images", h.ListByVisit)
	readGroup.GET("/image-categories", h.ListCategories)
	readGroup.GET("/image-categories/:id", h.GetCategory)

	writeGroup := api.Group("", auth.RequireRole("admin", "doctor", "technician"))
	writeGroup.POST("/images", h.Upload)
	writeGroup.PUT("/images/:id", h.UpdateMetadata)
	writeGroup.DELETE("/images/:id", h.Delete)

	catGroup := api.Group("", auth.RequireRole("admin"))
	catGroup.POST("/image-categories", h.CreateCategory)
	catGroup.PUT("/image-categories/:id", h.UpdateCategory)
	catGroup.DELETE("/image-categories/:id", h.DeleteCategory)
}

func statusForError(err error) int {
	var refErr *derive.ReferenceError
	var unsupErr *derive.UnsupportedOperationError
	var persErr *derive.PersistenceError
	switch {
	case errors.As(err, &refErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &unsupErr):
		return http.StatusConflict
	case errors.As(err, &persErr):
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func formUUID(c echo.Context, name string) (*uuid.UUID, error) {
	v := c.FormValue(name)
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", name)
	}
	return &id, nil
}

func formInt(c echo.Context, name string) (*int, error) {
	v := c.FormValue(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", name)
	}
	return &n, nil
}

func formString(c echo.Context, name string) *string {
	v := c.FormValue(name)
	if v == "" {
		return nil
	}
	return &v
}

// Upload takes a multipart form: the file part plus metadata fields. The
// content type comes from the part header; the service falls back to the
// filename extension when the client sends none.
func (h *Handler) Upload(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to open uploaded file")
	}
	defer src.Close()

	patientID, err := uuid.Parse(c.FormValue("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}

	img := MedicalImage{
		PatientID:   patientID,
		MimeType:    file.Header.Get("Content-Type"),
		Title:       formString(c, "title"),
		Description: formString(c, "description"),
		Tags:        formString(c, "tags"),
		IsPublic:    c.FormValue("is_public") == "true",
	}
	if img.VisitID, err = formUUID(c, "visit_id"); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if img.DoctorID, err = formUUID(c, "doctor_id"); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if img.CategoryID, err = formUUID(c, "category_id"); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if img.UploadedBy, err = formUUID(c, "uploaded_by"); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if img.ImageWidth, err = formInt(c, "width"); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if img.ImageHeight, err = formInt(c, "height"); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.svc.Upload(c.Request().Context(), &img, file.Filename, src); err != nil {
		switch {
		case errors.Is(err, blobstore.ErrTooLarge):
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, ErrUnsupportedMime):
			return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
		default:
			return echo.NewHTTPError(statusForError(err), err.Error())
		}
	}
	return c.JSON(http.StatusCreated, img)
}

func (h *Handler) GetImage(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	img, err := h.svc.GetImage(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "image not found")
	}
	return c.JSON(http.StatusOK, img)
}

func (h *Handler) Download(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rc, img, err := h.svc.Download(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "image not found")
	}
	defer rc.Close()

	c.Response().Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, img.OriginalFilename))
	return c.Stream(http.StatusOK, img.MimeType, rc)
}

// UpdateMetadata changes descriptive fields only. The stored file, its size
// and its type are fixed at upload.
func (h *Handler) UpdateMetadata(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	existing, err := h.svc.GetImage(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "image not found")
	}
	upd := *existing
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	upd.ID = id
	upd.PatientID = existing.PatientID
	upd.OriginalFilename = existing.OriginalFilename
	upd.StoredFilename = existing.StoredFilename
	upd.FilePath = existing.FilePath
	upd.FileSize = existing.FileSize
	upd.MimeType = existing.MimeType
	upd.UploadedBy = existing.UploadedBy
	upd.UploadTime = existing.UploadTime
	if err := h.svc.UpdateMetadata(c.Request().Context(), &upd); err != nil {
		return echo.NewHTTPError(statusForError(err), err.Error())
	}
	return c.JSON(http.StatusOK, upd)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.SoftDelete(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "image not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	f := ImageFilter{MimeType: c.QueryParam("mime_type")}
	if v := c.QueryParam("category_id"); v != "" {
		if f.CategoryID, err = uuid.Parse(v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid category_id")
		}
	}
	imgs, total, err := h.svc.ListByPatient(c.Request().Context(), id, f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(imgs, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListByVisit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	imgs, err := h.svc.ListByVisit(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, imgs)
}

// -- Categories --

func (h *Handler) CreateCategory(c echo.Context) error {
	var cat ImageCategory
	if err := c.Bind(&cat); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateCategory(c.Request().Context(), &cat); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, cat)
}

func (h *Handler) GetCategory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	cat, err := h.svc.GetCategory(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "image category not found")
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *Handler) UpdateCategory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var cat ImageCategory
	if err := c.Bind(&cat); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cat.ID = id
	if err := h.svc.UpdateCategory(c.Request().Context(), &cat); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *Handler) DeleteCategory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteCategory(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "image category not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListCategories(c echo.Context) error {
	cats, err := h.svc.ListCategories(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, cats)
}
