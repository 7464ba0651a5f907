package radiology

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
	read := api.Group("", auth.Require(auth.PermImagingRead))
	read.GET("/imaging/orders", h.List)
	read.GET("/imaging/orders/:id", h.Get)

	order := api.Group("", auth.Require(auth.PermImagingOrder))
	order.POST("/imaging/orders", h.CreateOrder)
	order.POST("/imaging/orders/:id/schedule", h.Schedule)
	order.POST("/imaging/orders/:id/start", h.Start)
	order.POST("/imaging/orders/:id/complete", h.Complete)
	order.POST("/imaging/orders/:id/cancel", h.Cancel)

	report := api.Group("", auth.Require(auth.PermImagingReport))
	report.POST("/imaging/orders/:id/report", h.CreateReport)
	report.PUT("/imaging/orders/:id/report", h.AmendReport)
	report.POST("/imaging/orders/:id/report/finalize", h.FinalizeReport)
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoReport):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrReportExists), errors.Is(err, ErrReportFinal):
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
		return echo.NewHTTPError(http.StatusNotFound, "imaging order not found")
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
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list imaging orders")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Schedule(c echo.Context) error {
	return h.transition(c, h.svc.Schedule)
}

func (h *Handler) Start(c echo.Context) error {
	return h.transition(c, h.svc.Start)
}

func (h *Handler) Complete(c echo.Context) error {
	return h.transition(c, h.svc.Complete)
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

func (h *Handler) CreateReport(c echo.Context) error {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var rep Report
	if err := c.Bind(&rep); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rep.OrderID = orderID
	ctx := c.Request().Context()
	if rep.RadiologistID == uuid.Nil {
		if id, err := uuid.Parse(auth.UserIDFromContext(ctx)); err == nil {
			rep.RadiologistID = id
		}
	}
	if err := h.svc.CreateReport(ctx, &rep); err != nil {
		return mapErr(err)
	}
	return c.JSON(http.StatusCreated, rep)
}

type amendRequest struct {
	Findings   string `json:"findings"`
	Impression string `json:"impression"`
}

func (h *Handler) AmendReport(c echo.Context) error {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req amendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rep, err := h.svc.AmendReport(c.Request().Context(), orderID, req.Findings, req.Impression)
	if err != nil {
		return mapErr(err)
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *Handler) FinalizeReport(c echo.Context) error {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rep, err := h.svc.FinalizeReport(c.Request().Context(), orderID)
	if err != nil {
		return mapErr(err)
	}
	return c.JSON(http.StatusOK, rep)
}
