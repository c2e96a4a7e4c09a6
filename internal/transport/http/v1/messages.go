package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/chatdesk/internal/domain"
)

// PostVisitorMessage appends a visitor message. The assistant's reply,
// if any, arrives later through the session's live subscription.
// POST /v1/sessions/:session_id/messages
func (h *Handler) PostVisitorMessage(c echo.Context) error {
	var req domain.AppendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	msg, err := h.service.HandleVisitorMessage(c.Request().Context(), c.Param("session_id"), req.Content)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusCreated, msg)
}

// PostOperatorMessage appends an operator reply. Only accepted while
// the session is handed off.
// POST /v1/operator/sessions/:session_id/messages
func (h *Handler) PostOperatorMessage(c echo.Context) error {
	var req domain.AppendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	msg, err := h.service.AppendOperatorMessage(c.Request().Context(), c.Param("session_id"), req.Content)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusCreated, msg)
}

// GetSessionMessages retrieves a session's history in delivery order.
// GET /v1/sessions/:session_id/messages
func (h *Handler) GetSessionMessages(c echo.Context) error {
	limit := 0 // full history by default; clients de-dup against live events
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}

	messages, err := h.service.GetMessages(c.Request().Context(), c.Param("session_id"), limit)
	if err != nil {
		return jsonError(c, err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"messages": messages,
	})
}
