package calendar

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medtrack/medtrack/internal/platform/auth"
)

type Handler struct {
	syncer      *Syncer
	frontendURL string
}

func NewHandler(syncer *Syncer, frontendURL string) *Handler {
	return &Handler{syncer: syncer, frontendURL: frontendURL}
}

// RegisterRoutes mounts the OAuth callback on the public group (Google
// redirects there without a bearer token) and the rest behind auth.
func (h *Handler) RegisterRoutes(public, api *echo.Group) {
	api.GET("/google/auth-url", h.AuthURL)
	public.GET("/google/callback", h.Callback)
	api.POST("/google/sync", h.Sync)
}

func (h *Handler) AuthURL(c echo.Context) error {
	userID := auth.UserFromContext(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]string{
		"authUrl": h.syncer.AuthURL(userID),
	})
}

func (h *Handler) Callback(c echo.Context) error {
	err := h.syncer.HandleCallback(c.Request().Context(),
		c.QueryParam("state"), c.QueryParam("code"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.Redirect(http.StatusFound, h.frontendURL+"/calendar-sync-success")
}

func (h *Handler) Sync(c echo.Context) error {
	userID := auth.UserFromContext(c.Request().Context())
	results, err := h.syncer.Sync(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotConnected) {
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Medications synced to Google Calendar",
		"results": results,
	})
}
