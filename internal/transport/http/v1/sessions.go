package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/chatdesk/internal/domain"
)

// CreateSession opens a new session for a visitor.
// POST /v1/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	var req domain.CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	session, err := h.service.CreateSession(c.Request().Context(), req.VisitorLabel)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusCreated, session)
}

// GetSession retrieves a session, flags included, so the widget can
// show whether an operator is present.
// GET /v1/sessions/:session_id
func (h *Handler) GetSession(c echo.Context) error {
	session, err := h.service.GetSession(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// ListSessions lists active sessions for the operator console, most
// recently active first.
// GET /v1/operator/sessions
func (h *Handler) ListSessions(c echo.Context) error {
	summaries, err := h.service.ListActiveSessions(c.Request().Context())
	if err != nil {
		return jsonError(c, err)
	}
	if summaries == nil {
		summaries = []domain.SessionSummary{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"sessions": summaries,
	})
}

// SetHandoff toggles operator control of a session.
// POST /v1/operator/sessions/:session_id/handoff
func (h *Handler) SetHandoff(c echo.Context) error {
	var req domain.SetHandoffRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	session, err := h.service.SetHandoff(c.Request().Context(), c.Param("session_id"), req.HandedOff)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// CloseSession closes a session. Idempotent.
// POST /v1/operator/sessions/:session_id/close
func (h *Handler) CloseSession(c echo.Context) error {
	if err := h.service.CloseSession(c.Request().Context(), c.Param("session_id")); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
