package audit

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/yacco/emr/internal/platform/auth"
	"github.com/yacco/emr/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	org := api.Group("", auth.Require(auth.PermAuditRead))
	org.GET("/audit/events", h.ListOrg)

	platform := api.Group("", auth.Require(auth.PermAuditPlatform))
	platform.GET("/audit/platform", h.ListPlatform)
}

func filterFromQuery(c echo.Context) (Filter, error) {
	f := Filter{
		ActorID:      c.QueryParam("actor_id"),
		Action:       c.QueryParam("action"),
		ResourceType: c.QueryParam("resource_type"),
		ResourceID:   c.QueryParam("resource_id"),
	}
	if raw := c.QueryParam("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid from timestamp")
		}
		f.From = t
	}
	if raw := c.QueryParam("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid to timestamp")
		}
		f.To = t
	}
	return f, nil
}

func (h *Handler) ListOrg(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	events, total, err := h.svc.ListOrg(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to query audit trail")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(events, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListPlatform(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	events, total, err := h.svc.ListPlatform(c.Request().Context(), c.QueryParam("org_id"), f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to query access log")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(events, total, pg.Limit, pg.Offset))
}
