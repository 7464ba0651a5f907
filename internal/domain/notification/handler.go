package notification

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/yacco/emr/internal/platform/auth"
	"github.com/yacco/emr/internal/platform/db"
	"github.com/yacco/emr/pkg/pagination"
)

// Handler serves the notification and chat REST surface. Everything here is
// scoped to the authenticated user; no extra permission beyond a valid
// token is needed.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/notifications", h.List)
	api.GET("/notifications/unread-count", h.UnreadCount)
	api.POST("/notifications/:id/read", h.MarkRead)
	api.POST("/notifications/read-all", h.MarkAllRead)
	api.GET("/notifications/preferences", h.Preferences)
	api.PUT("/notifications/preferences", h.SetPreference)

	api.GET("/chat/:user_id", h.Conversation)
	api.POST("/chat/:user_id", h.PostChat)
}

func currentUser(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
	}
	return id, nil
}

func (h *Handler) List(c echo.Context) error {
	me, err := currentUser(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	unreadOnly := c.QueryParam("unread") == "true"
	items, total, err := h.svc.List(c.Request().Context(), me, unreadOnly, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list notifications")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UnreadCount(c echo.Context) error {
	me, err := currentUser(c)
	if err != nil {
		return err
	}
	count, err := h.svc.UnreadCount(c.Request().Context(), me)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to count notifications")
	}
	return c.JSON(http.StatusOK, map[string]int{"unread": count})
}

func (h *Handler) MarkRead(c echo.Context) error {
	me, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.MarkRead(c.Request().Context(), id, me); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "notification not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) MarkAllRead(c echo.Context) error {
	me, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.svc.MarkAllRead(c.Request().Context(), me); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to mark notifications read")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Preferences(c echo.Context) error {
	me, err := currentUser(c)
	if err != nil {
		return err
	}
	prefs, err := h.svc.Preferences(c.Request().Context(), me)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load preferences")
	}
	if prefs == nil {
		prefs = []*Preference{}
	}
	return c.JSON(http.StatusOK, prefs)
}

func (h *Handler) SetPreference(c echo.Context) error {
	me, err := currentUser(c)
	if err != nil {
		return err
	}
	var p Preference
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.UserID = me
	if err := h.svc.SetPreference(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Conversation(c echo.Context) error {
	me, err := currentUser(c)
	if err != nil {
		return err
	}
	other, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.Conversation(c.Request().Context(), me, other, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load conversation")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type chatRequest struct {
	Body string `json:"body"`
}

func (h *Handler) PostChat(c echo.Context) error {
	me, err := currentUser(c)
	if err != nil {
		return err
	}
	recipient, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	m, err := h.svc.PostChat(ctx, db.OrgFromContext(ctx), &ChatMessage{
		SenderID:    me,
		RecipientID: recipient,
		Body:        req.Body,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, m)
}
