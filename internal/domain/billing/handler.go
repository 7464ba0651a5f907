package billing

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
	read := api.Group("", auth.Require(auth.PermBillingRead))
	read.GET("/invoices", h.List)
	read.GET("/invoices/:id", h.Get)

	write := api.Group("", auth.Require(auth.PermBillingWrite))
	write.POST("/invoices", h.Create)
	write.POST("/invoices/:id/send", h.Send)
	write.POST("/invoices/:id/payments", h.RecordPayment)
	write.PUT("/payments/:id/method", h.ChangePaymentMethod)
	write.POST("/invoices/:id/cancel", h.Cancel)

	void := api.Group("", auth.Require(auth.PermBillingVoid))
	void.POST("/invoices/:id/reverse", h.Reverse)
	void.POST("/invoices/:id/void", h.Void)
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "invoice not found")
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrOverpayment):
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

func (h *Handler) Create(c echo.Context) error {
	var inv Invoice
	if err := c.Bind(&inv); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateInvoice(c.Request().Context(), &inv); err != nil {
		return mapErr(err)
	}
	return c.JSON(http.StatusCreated, inv)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	inv, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "invoice not found")
	}
	return c.JSON(http.StatusOK, inv)
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
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list invoices")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Send(c echo.Context) error {
	return h.transition(c, h.svc.Send)
}

func (h *Handler) Reverse(c echo.Context) error {
	return h.transition(c, h.svc.Reverse)
}

func (h *Handler) Void(c echo.Context) error {
	return h.transition(c, h.svc.Void)
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

type paymentRequest struct {
	Amount    int64   `json:"amount"`
	Method    string  `json:"method"`
	Reference *string `json:"reference,omitempty"`
}

func (h *Handler) RecordPayment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req paymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	p, err := h.svc.RecordPayment(ctx, id, req.Amount, req.Method, req.Reference, actorID(ctx))
	if err != nil {
		return mapErr(err)
	}
	return c.JSON(http.StatusCreated, p)
}

type methodChangeRequest struct {
	Method string `json:"method"`
}

func (h *Handler) ChangePaymentMethod(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req methodChangeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.ChangePaymentMethod(c.Request().Context(), id, req.Method); err != nil {
		return mapErr(err)
	}
	return c.NoContent(http.StatusNoContent)
}
