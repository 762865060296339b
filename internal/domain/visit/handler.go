package visit

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medrec/medrec/internal/derive"
	"github.com/medrec/medrec/internal/platform/auth"
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
	readGroup.GET("/visits", h.ListVisits)
	readGroup.GET("/visits/:id", h.GetVisit)
	readGroup.GET("/visits/number/:number", h.GetVisitByNumber)
	readGroup.GET("/patients/:id/visits", h.ListVisitsByPatient)
	readGroup.GET("/doctors/:id/visits", h.ListVisitsByDoctor)

	writeGroup := api.Group("", auth.RequireRole("admin", "doctor"))
	writeGroup.POST("/visits", h.CreateVisit)
	writeGroup.PUT("/visits/:id", h.UpdateVisit)
	writeGroup.PATCH("/visits/:id/diagnosis", h.UpdateDiagnosis)
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

func (h *Handler) CreateVisit(c echo.Context) error {
	var v Visit
	if err := c.Bind(&v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateVisit(c.Request().Context(), &v); err != nil {
		return echo.NewHTTPError(statusForError(err), err.Error())
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) GetVisit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	v, err := h.svc.GetVisit(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "visit not found")
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) GetVisitByNumber(c echo.Context) error {
	v, err := h.svc.GetVisitByNumber(c.Request().Context(), c.Param("number"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "visit not found")
	}
	return c.JSON(http.StatusOK, v)
}

func filterFromQuery(c echo.Context) (SearchFilter, error) {
	f := SearchFilter{
		VisitType:     c.QueryParam("visit_type"),
		PaymentStatus: c.QueryParam("payment_status"),
	}
	if from := c.QueryParam("start_date"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid start_date")
		}
		f.DateFrom = &t
	}
	if to := c.QueryParam("end_date"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid end_date")
		}
		f.DateTo = &t
	}
	return f, nil
}

func (h *Handler) ListVisits(c echo.Context) error {
	pg := pagination.FromContext(c)
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	if pid := c.QueryParam("patient_id"); pid != "" {
		id, err := uuid.Parse(pid)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = id
	}
	if did := c.QueryParam("doctor_id"); did != "" {
		id, err := uuid.Parse(did)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
		}
		f.DoctorID = id
	}

	vs, total, err := h.svc.SearchVisits(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(vs, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListVisitsByPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	vs, total, err := h.svc.ListVisitsByPatient(c.Request().Context(), id, f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(vs, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListVisitsByDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	vs, total, err := h.svc.ListVisitsByDoctor(c.Request().Context(), id, f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(vs, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateVisit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	existing, err := h.svc.GetVisit(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "visit not found")
	}
	var v Visit
	if err := c.Bind(&v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	v.ID = id
	v.VisitNumber = existing.VisitNumber
	v.PatientID = existing.PatientID
	v.BMI = existing.BMI
	if v.VisitType == "" {
		v.VisitType = existing.VisitType
	}
	if v.PaymentStatus == "" {
		v.PaymentStatus = existing.PaymentStatus
	}
	if err := h.svc.UpdateVisit(c.Request().Context(), &v); err != nil {
		return echo.NewHTTPError(statusForError(err), err.Error())
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) UpdateDiagnosis(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Diagnosis string `json:"diagnosis"`
		Advice    string `json:"advice"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.UpdateDiagnosis(c.Request().Context(), id, body.Diagnosis, body.Advice); err != nil {
		return echo.NewHTTPError(statusForError(err), err.Error())
	}
	v, err := h.svc.GetVisit(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "visit not found")
	}
	return c.JSON(http.StatusOK, v)
}
