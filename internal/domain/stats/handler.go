package stats

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medrec/medrec/internal/platform/auth"
)

// defaultRangeDays is the window used when the caller gives no start date.
const defaultRangeDays = 30

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	statsGroup := api.Group("/stats", auth.RequireRole("admin", "doctor", "viewer"))
	statsGroup.GET("/daily", h.Daily)
	statsGroup.GET("/patients", h.Patients)
	statsGroup.GET("/revenue", h.Revenue)
}

func dateParam(c echo.Context, name string, fallback time.Time) (time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return fallback, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s, want YYYY-MM-DD", name)
	}
	return t, nil
}

func today() time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour)
}

func (h *Handler) Daily(c echo.Context) error {
	day, err := dateParam(c, "date", today())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	report, err := h.svc.Daily(c.Request().Context(), day)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) rangeParams(c echo.Context) (time.Time, time.Time, error) {
	end, err := dateParam(c, "end", today())
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, err := dateParam(c, "start", end.AddDate(0, 0, -(defaultRangeDays-1)))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start %s is after end %s", start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	return start, end, nil
}

func (h *Handler) Patients(c echo.Context) error {
	start, end, err := h.rangeParams(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	report, err := h.svc.Patients(c.Request().Context(), start, end)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) Revenue(c echo.Context) error {
	start, end, err := h.rangeParams(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	report, err := h.svc.Revenue(c.Request().Context(), start, end)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}
