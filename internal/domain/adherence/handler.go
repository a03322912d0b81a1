package adherence

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medtrack/medtrack/internal/domain/medication"
	"github.com/medtrack/medtrack/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/dose-logs", h.ListLogs)
	api.GET("/dose-logs/schedule", h.TodaySchedule)
	api.GET("/dose-logs/weekly-schedule", h.RangeSchedule)
	api.POST("/dose-logs", h.LogDose)
	api.GET("/dose-logs/stats", h.Stats)
	api.GET("/dose-logs/export/csv", h.ExportCSV)
}

func (h *Handler) LogDose(c echo.Context) error {
	userID := auth.UserFromContext(c.Request().Context())
	var in LogInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result, err := h.svc.LogDose(c.Request().Context(), userID, in)
	if err != nil {
		switch {
		case errors.Is(err, medication.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrDuplicateLog):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *Handler) TodaySchedule(c echo.Context) error {
	userID := auth.UserFromContext(c.Request().Context())
	schedule, err := h.svc.TodaySchedule(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"schedule": schedule})
}

func (h *Handler) RangeSchedule(c echo.Context) error {
	userID := auth.UserFromContext(c.Request().Context())
	schedule, err := h.svc.RangeSchedule(c.Request().Context(), userID,
		c.QueryParam("startDate"), c.QueryParam("endDate"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"schedule": schedule})
}

func (h *Handler) Stats(c echo.Context) error {
	userID := auth.UserFromContext(c.Request().Context())
	stats, err := h.svc.Stats(c.Request().Context(), userID,
		c.QueryParam("startDate"), c.QueryParam("endDate"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) ListLogs(c echo.Context) error {
	userID := auth.UserFromContext(c.Request().Context())
	logs, err := h.svc.ListLogs(c.Request().Context(), userID,
		c.QueryParam("startDate"), c.QueryParam("endDate"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"doseLogs": logs})
}

func (h *Handler) ExportCSV(c echo.Context) error {
	userID := auth.UserFromContext(c.Request().Context())
	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="medication_logs.csv"`)
	c.Response().WriteHeader(http.StatusOK)
	return h.svc.ExportCSV(c.Request().Context(), userID,
		c.QueryParam("startDate"), c.QueryParam("endDate"), c.Response())
}
