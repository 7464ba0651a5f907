package lab

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
	read := api.Group("", auth.Require(auth.PermLabRead))
	read.GET("/lab/orders", h.List)
	read.GET("/lab/orders/:id", h.Get)

	order := api.Group("", auth.Require(auth.PermLabOrder))
	order.POST("/lab/orders", h.CreateOrder)
	order.POST("/lab/orders/:id/cancel", h.Cancel)

	result := api.Group("", auth.Require(auth.PermLabResult))
	result.POST("/lab/orders/:id/collect", h.MarkCollected)
	result.POST("/lab/orders/:id/process", h.MarkInProgress)
	result.POST("/lab/orders/:id/results", h.AttachResults)
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "lab order not found")
	case errors.Is(err, ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}

func (h *Handler) CreateOrder(c echo.Context) error {
	var o Order
	if err := c.Bind(&o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if o.OrderedBy == uuid.Nil {
		if id, err := uuid.Parse(auth.UserIDFromContext(ctx)); err == nil {
			o.OrderedBy = id
		}
	}
	if err := h.svc.CreateOrder(ctx, &o); err != nil {
		return mapErr(err)
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
		return echo.NewHTTPError(http.StatusNotFound, "lab order not found")
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	var patientID *uuid.UUID
	if raw := c.QueryParam("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		patientID = &id
	}
	items, total, err := h.svc.List(c.Request().Context(), c.QueryParam("status"), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list lab orders")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) MarkCollected(c echo.Context) error {
	return h.transition(c, h.svc.MarkCollected)
}

func (h *Handler) MarkInProgress(c echo.Context) error {
	return h.transition(c, h.svc.MarkInProgress)
}

func (h *Handler) Cancel(c echo.Context) error {
	return h.transition(c, h.svc.Cancel)
}

func (h *Handler) transition(c echo.Context, fn func(ctx context.Context, id uuid.UUID) error) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := fn(c.Request().Context(), id); err != nil {
		return mapErr(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type resultsRequest struct {
	Results []Result `json:"results"`
}

func (h *Handler) AttachResults(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req resultsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o, err := h.svc.AttachResults(c.Request().Context(), id, req.Results)
	if err != nil {
		return mapErr(err)
	}
	return c.JSON(http.StatusOK, o)
}
