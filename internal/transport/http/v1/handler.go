// Package v1 provides HTTP handlers for the chat coordinator.
package v1

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/chatdesk/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service       *service.Service
	operatorToken string
}

// NewHandler creates a new handler. operatorToken guards the console
// routes; when empty, the console surface is open (local development).
func NewHandler(svc *service.Service, operatorToken string) *Handler {
	return &Handler{
		service:       svc,
		operatorToken: operatorToken,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Visitor widget API
	e.POST("/v1/sessions", h.CreateSession)
	e.GET("/v1/sessions/:session_id", h.GetSession)
	e.POST("/v1/sessions/:session_id/messages", h.PostVisitorMessage)
	e.GET("/v1/sessions/:session_id/messages", h.GetSessionMessages)

	// Operator console API
	op := e.Group("/v1/operator", h.requireOperator)
	op.GET("/sessions", h.ListSessions)
	op.POST("/sessions/:session_id/handoff", h.SetHandoff)
	op.POST("/sessions/:session_id/close", h.CloseSession)
	op.POST("/sessions/:session_id/messages", h.PostOperatorMessage)

	e.GET("/health", h.Health)
}

// requireOperator checks the shared console token.
func (h *Handler) requireOperator(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.operatorToken != "" {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if auth != "Bearer "+h.operatorToken {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid operator token"})
			}
		}
		return next(c)
	}
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// jsonError maps service errors onto HTTP status codes. Errors outside
// the taxonomy (store failures and the like) are logged server-side and
// answered with a generic body, never the raw error.
func jsonError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrEmptyContent), errors.Is(err, service.ErrInvalidSender):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrSessionClosed), errors.Is(err, service.ErrNotHandedOff):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		log.Printf("ERROR: %s %s failed: %v", c.Request().Method, c.Path(), err)
		return c.JSON(status, map[string]string{"error": "internal error"})
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}
