package ambulance

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
	read := api.Group("", auth.Require(auth.PermAmbulanceRead))
	read.GET("/ambulance/vehicles", h.ListVehicles)
	read.GET("/ambulance/vehicles/:id", h.GetVehicle)
	read.GET("/ambulance/requests", h.ListRequests)
	read.GET("/ambulance/requests/:id", h.GetRequest)

	request := api.Group("", auth.Require(auth.PermAmbulanceReq))
	request.POST("/ambulance/requests", h.CreateRequest)

	ops := api.Group("", auth.Require(auth.PermAmbulanceOps))
	ops.POST("/ambulance/vehicles", h.CreateVehicle)
	ops.PUT("/ambulance/vehicles/:id/status", h.SetVehicleStatus)
	ops.POST("/ambulance/requests/:id/approve", h.Approve)
	ops.POST("/ambulance/requests/:id/dispatch", h.Dispatch)
	ops.PUT("/ambulance/requests/:id/status", h.UpdateStatus)
}

func mapErr(err error, notFoundMsg string) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, notFoundMsg)
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrVehicleUnavailable):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}

func actorID(ctx context.Context) *uuid.UUID {
	if id, err := uuid.Parse(auth.UserIDFromContext(ctx)); err == nil {
		return &id
	}
	return nil
}

// -- Vehicle handlers --

func (h *Handler) CreateVehicle(c echo.Context) error {
	var v Vehicle
	if err := c.Bind(&v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateVehicle(c.Request().Context(), &v); err != nil {
		return mapErr(err, "vehicle not found")
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) GetVehicle(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	v, err := h.svc.GetVehicle(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "vehicle not found")
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) ListVehicles(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListVehicles(c.Request().Context(), c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type vehicleStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) SetVehicleStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req vehicleStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetVehicleStatus(c.Request().Context(), id, req.Status); err != nil {
		return mapErr(err, "vehicle not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Request handlers --

func (h *Handler) CreateRequest(c echo.Context) error {
	var r Request
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if r.RequestedBy == uuid.Nil {
		if by := actorID(ctx); by != nil {
			r.RequestedBy = *by
		}
	}
	if err := h.svc.CreateRequest(ctx, &r); err != nil {
		return mapErr(err, "request not found")
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) GetRequest(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	r, err := h.svc.GetRequest(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "request not found")
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) ListRequests(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListRequests(c.Request().Context(), c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Approve(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	if err := h.svc.Approve(ctx, id, actorID(ctx)); err != nil {
		return mapErr(err, "request not found")
	}
	return c.NoContent(http.StatusNoContent)
}

type dispatchRequest struct {
	VehicleID uuid.UUID `json:"vehicle_id"`
}

func (h *Handler) Dispatch(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req dispatchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if err := h.svc.Dispatch(ctx, id, req.VehicleID, actorID(ctx)); err != nil {
		return mapErr(err, "request not found")
	}
	return c.NoContent(http.StatusNoContent)
}

type statusUpdateRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req statusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if err := h.svc.UpdateStatus(ctx, id, req.Status, actorID(ctx), req.Note); err != nil {
		return mapErr(err, "request not found")
	}
	return c.NoContent(http.StatusNoContent)
}
