package scheduling

import (
	"context"
	"errors"
	"net/http"
	"time"

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
	read := api.Group("", auth.Require(auth.PermScheduleRead))
	read.GET("/appointments", h.List)
	read.GET("/appointments/:id", h.Get)
	read.GET("/appointments/day", h.Day)

	write := api.Group("", auth.Require(auth.PermScheduleWrite))
	write.POST("/appointments", h.Book)
	write.PUT("/appointments/:id", h.Reschedule)
	write.POST("/appointments/:id/arrive", h.MarkArrived)
	write.POST("/appointments/:id/fulfill", h.MarkFulfilled)
	write.POST("/appointments/:id/no-show", h.MarkNoShow)
	write.POST("/appointments/:id/cancel", h.Cancel)
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrDoubleBooked):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}

func (h *Handler) Book(c echo.Context) error {
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Book(c.Request().Context(), &a); err != nil {
		return mapErr(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list appointments")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// Day serves the per-practitioner and per-patient day schedules. The date
// query parameter defaults to today.
func (h *Handler) Day(c echo.Context) error {
	day := time.Now().UTC()
	if raw := c.QueryParam("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
		}
		day = parsed
	}

	var practitionerID, patientID *uuid.UUID
	if raw := c.QueryParam("practitioner_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid practitioner_id")
		}
		practitionerID = &id
	}
	if raw := c.QueryParam("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		patientID = &id
	}

	items, err := h.svc.Day(c.Request().Context(), day, practitionerID, patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load day schedule")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"date":         day.Format("2006-01-02"),
		"appointments": items,
	})
}

func (h *Handler) Reschedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a.ID = id
	if err := h.svc.Reschedule(c.Request().Context(), &a); err != nil {
		return mapErr(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) MarkArrived(c echo.Context) error {
	return h.transition(c, h.svc.MarkArrived)
}

func (h *Handler) MarkFulfilled(c echo.Context) error {
	return h.transition(c, h.svc.MarkFulfilled)
}

func (h *Handler) MarkNoShow(c echo.Context) error {
	return h.transition(c, h.svc.MarkNoShow)
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
