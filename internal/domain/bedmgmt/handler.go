package bedmgmt

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
	read := api.Group("", auth.Require(auth.PermBedRead))
	read.GET("/wards", h.ListWards)
	read.GET("/wards/:id", h.GetWard)
	read.GET("/wards/:id/beds", h.ListBedsByWard)
	read.GET("/wards/:id/census", h.WardCensus)
	read.GET("/wards/census", h.CensusDashboard)
	read.GET("/beds", h.ListBeds)
	read.GET("/beds/:id", h.GetBed)

	write := api.Group("", auth.Require(auth.PermBedWrite))
	write.POST("/wards", h.CreateWard)
	write.PUT("/wards/:id", h.UpdateWard)
	write.POST("/beds", h.CreateBed)
	write.PUT("/beds/:id/status", h.SetBedStatus)

	admRead := api.Group("", auth.Require(auth.PermAdmissionRead))
	admRead.GET("/admissions", h.ListAdmissions)
	admRead.GET("/admissions/:id", h.GetAdmission)

	admWrite := api.Group("", auth.Require(auth.PermAdmit))
	admWrite.POST("/admissions", h.Admit)
	admWrite.POST("/admissions/:id/transfer", h.Transfer)
	admWrite.POST("/admissions/:id/discharge", h.Discharge)
}

func mapErr(err error, notFoundMsg string) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, notFoundMsg)
	case errors.Is(err, ErrBedUnavailable),
		errors.Is(err, ErrAlreadyAdmitted),
		errors.Is(err, ErrNotActive),
		errors.Is(err, ErrOccupiedReserved):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}

// -- Ward handlers --

func (h *Handler) CreateWard(c echo.Context) error {
	var w Ward
	if err := c.Bind(&w); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateWard(c.Request().Context(), &w); err != nil {
		return mapErr(err, "ward not found")
	}
	return c.JSON(http.StatusCreated, w)
}

func (h *Handler) GetWard(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	w, err := h.svc.GetWard(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "ward not found")
	}
	return c.JSON(http.StatusOK, w)
}

func (h *Handler) UpdateWard(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var w Ward
	if err := c.Bind(&w); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	w.ID = id
	if err := h.svc.UpdateWard(c.Request().Context(), &w); err != nil {
		return mapErr(err, "ward not found")
	}
	return c.JSON(http.StatusOK, w)
}

func (h *Handler) ListWards(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListWards(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) WardCensus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	census, err := h.svc.WardCensus(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "ward not found")
	}
	return c.JSON(http.StatusOK, census)
}

func (h *Handler) CensusDashboard(c echo.Context) error {
	items, err := h.svc.CensusDashboard(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

// -- Bed handlers --

func (h *Handler) CreateBed(c echo.Context) error {
	var b Bed
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateBed(c.Request().Context(), &b); err != nil {
		return mapErr(err, "ward not found")
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetBed(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	b, err := h.svc.GetBed(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "bed not found")
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ListBeds(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListBeds(c.Request().Context(), c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListBedsByWard(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.ListBedsByWard(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

type bedStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) SetBedStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req bedStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetBedStatus(c.Request().Context(), id, req.Status); err != nil {
		return mapErr(err, "bed not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Admission handlers --

func (h *Handler) Admit(c echo.Context) error {
	var a Admission
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Admit(c.Request().Context(), &a); err != nil {
		return mapErr(err, "bed not found")
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAdmission(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.GetAdmission(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "admission not found")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAdmissions(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAdmissions(c.Request().Context(), c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type transferRequest struct {
	ToBedID uuid.UUID `json:"to_bed_id"`
	Reason  string    `json:"reason"`
}

func (h *Handler) Transfer(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req transferRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	movedBy := actorID(ctx)
	if err := h.svc.Transfer(ctx, id, req.ToBedID, req.Reason, movedBy); err != nil {
		return mapErr(err, "admission not found")
	}
	return c.NoContent(http.StatusNoContent)
}

type dischargeRequest struct {
	Disposition string `json:"disposition"`
	Note        string `json:"note"`
}

func (h *Handler) Discharge(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req dischargeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if err := h.svc.Discharge(ctx, id, req.Disposition, req.Note, actorID(ctx)); err != nil {
		return mapErr(err, "admission not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func actorID(ctx context.Context) *uuid.UUID {
	if id, err := uuid.Parse(auth.UserIDFromContext(ctx)); err == nil {
		return &id
	}
	return nil
}
