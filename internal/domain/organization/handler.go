package organization

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
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
	// Registration is open; everything else is authenticated.
	api.POST("/organizations/register", h.Register)

	read := api.Group("", auth.Require(auth.PermOrgRead))
	read.GET("/organizations", h.List)
	read.GET("/organizations/:id", h.Get)
	read.GET("/organizations/:id/locations", h.ListLocations)

	manage := api.Group("", auth.Require(auth.PermOrgManage))
	manage.POST("/organizations/:id/approve", h.Approve)
	manage.POST("/organizations/:id/reject", h.Reject)
	manage.POST("/organizations/:id/suspend", h.Suspend)

	admin := api.Group("", auth.Require(auth.PermOrgManage, auth.PermStaffManage))
	admin.PUT("/organizations/:id", h.Update)
	admin.POST("/organizations/:id/locations", h.CreateLocation)
	admin.PUT("/organizations/:id/locations/:location_id", h.UpdateLocation)
}

func (h *Handler) Register(c echo.Context) error {
	var o Organization
	if err := c.Bind(&o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Register(c.Request().Context(), &o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	o, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "organization not found")
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var o Organization
	if err := c.Bind(&o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o.ID = id
	if err := h.svc.Update(c.Request().Context(), &o); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "organization not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) Approve(c echo.Context) error {
	return h.transition(c, h.svc.Approve)
}

func (h *Handler) Reject(c echo.Context) error {
	return h.transition(c, h.svc.Reject)
}

func (h *Handler) Suspend(c echo.Context) error {
	return h.transition(c, h.svc.Suspend)
}

func (h *Handler) transition(c echo.Context, fn func(ctx context.Context, id uuid.UUID, actorID string) error) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	if err := fn(ctx, id, auth.UserIDFromContext(ctx)); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "organization not found")
		case errors.Is(err, ErrInvalidTransition):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Locations --

func (h *Handler) CreateLocation(c echo.Context) error {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var l Location
	if err := c.Bind(&l); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	l.OrganizationID = orgID
	if err := h.svc.CreateLocation(c.Request().Context(), &l); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "organization not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *Handler) UpdateLocation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("location_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid location_id")
	}
	var l Location
	if err := c.Bind(&l); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	l.ID = id
	if err := h.svc.UpdateLocation(c.Request().Context(), &l); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "location not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) ListLocations(c echo.Context) error {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.ListLocations(c.Request().Context(), orgID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}
