package examination

import (
	"encoding/json"
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
	readGroup.GET("/examination-items", h.ListItems)
	readGroup.GET("/examination-items/:id", h.GetItem)
	readGroup.GET("/examinations/:id", h.GetExam)
	readGroup.GET("/examinations/number/:number", h.GetExamByNumber)
	readGroup.GET("/visits/:id/examinations", h.ListByVisit)
	readGroup.GET("/patients/:id/examinations", h.ListByPatient)

	catalogGroup := api.Group("", auth.RequireRole("admin"))
	catalogGroup.POST("/examination-items", h.CreateItem)
	catalogGroup.PUT("/examination-items/:id", h.UpdateItem)
	catalogGroup.DELETE("/examination-items/:id", h.DeactivateItem)

	examGroup := api.Group("", auth.RequireRole("admin", "doctor", "technician"))
	examGroup.POST("/examinations", h.CreateExam)
	examGroup.PATCH("/examinations/:id/result", h.UpdateResult)

	reviewGroup := api.Group("", auth.RequireRole("admin", "doctor"))
	reviewGroup.PATCH("/examinations/:id/review", h.Review)
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

func (h *Handler) CreateItem(c echo.Context) error {
	var item ExamItem
	if err := c.Bind(&item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateItem(c.Request().Context(), &item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *Handler) GetItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	item, err := h.svc.GetItem(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "examination item not found")
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) UpdateItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	existing, err := h.svc.GetItem(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "examination item not found")
	}
	var item ExamItem
	if err := c.Bind(&item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	item.ID = id
	item.ItemCode = existing.ItemCode
	if err := h.svc.UpdateItem(c.Request().Context(), &item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) DeactivateItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeactivateItem(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "examination item not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListItems(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := ItemFilter{
		Keyword:  c.QueryParam("keyword"),
		ItemType: c.QueryParam("item_type"),
		Modality: c.QueryParam("modality"),
	}
	items, total, err := h.svc.ListItems(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CreateExam(c echo.Context) error {
	var e ExamRecord
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateExam(c.Request().Context(), &e); err != nil {
		return echo.NewHTTPError(statusForError(err), err.Error())
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) GetExam(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.GetExam(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "examination not found")
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) GetExamByNumber(c echo.Context) error {
	e, err := h.svc.GetExamByNumber(c.Request().Context(), c.Param("number"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "examination not found")
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) UpdateResult(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		ResultSummary *string         `json:"result_summary"`
		ResultValues  json.RawMessage `json:"result_values"`
		AIAnalysis    json.RawMessage `json:"ai_analysis"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e, err := h.svc.UpdateResult(c.Request().Context(), id, body.ResultSummary, body.ResultValues, body.AIAnalysis)
	if err != nil {
		return echo.NewHTTPError(statusForError(err), err.Error())
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) Review(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		ReviewedBy uuid.UUID `json:"reviewed_by"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e, err := h.svc.Review(c.Request().Context(), id, body.ReviewedBy)
	if err != nil {
		return echo.NewHTTPError(statusForError(err), err.Error())
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) ListByVisit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	exams, err := h.svc.ListByVisit(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, exams)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	f := ExamFilter{Status: c.QueryParam("status")}
	if item := c.QueryParam("item_id"); item != "" {
		itemID, err := uuid.Parse(item)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid item_id")
		}
		f.ItemID = itemID
	}
	if from := c.QueryParam("start_date"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid start_date")
		}
		f.DateFrom = &t
	}
	if to := c.QueryParam("end_date"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid end_date")
		}
		f.DateTo = &t
	}
	exams, total, err := h.svc.ListByPatient(c.Request().Context(), id, f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(exams, total, pg.Limit, pg.Offset))
}
