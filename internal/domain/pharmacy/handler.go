package pharmacy

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
	read := api.Group("", auth.Require(auth.PermPharmacyRead))
	read.GET("/prescriptions", h.List)
	read.GET("/prescriptions/:id", h.Get)

	prescribe := api.Group("", auth.Require(auth.PermPrescribe))
	prescribe.POST("/prescriptions", h.Prescribe)
	prescribe.POST("/prescriptions/:id/hold", h.Hold)
	prescribe.POST("/prescriptions/:id/resume", h.Resume)
	prescribe.POST("/prescriptions/:id/cancel", h.Cancel)

	dispense := api.Group("", auth.Require(auth.PermDispense))
	dispense.POST("/prescriptions/:id/dispense", h.Dispense)
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "prescription not found")
	case errors.Is(err, ErrNotActive), errors.Is(err, ErrOverDispense), errors.Is(err, ErrTerminal):
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

func (h *Handler) Prescribe(c echo.Context) error {
	var p Prescription
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if p.PrescriberID == uuid.Nil {
		if id := actorID(ctx); id != nil {
			p.PrescriberID = *id
		}
	}
	if err := h.svc.Prescribe(ctx, &p); err != nil {
		return mapErr(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "prescription not found")
	}
	return c.JSON(http.StatusOK, p)
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
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list prescriptions")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type dispenseRequest struct {
	Quantity int     `json:"quantity"`
	Note     *string `json:"note,omitempty"`
}

func (h *Handler) Dispense(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req dispenseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	d, err := h.svc.Dispense(ctx, id, req.Quantity, actorID(ctx), req.Note)
	if err != nil {
		return mapErr(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) Hold(c echo.Context) error {
	return h.transition(c, h.svc.Hold)
}

func (h *Handler) Resume(c echo.Context) error {
	return h.transition(c, h.svc.Resume)
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
