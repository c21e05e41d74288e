package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/middleware"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/service"
)

// SessionHandler serves the caller's own state.
type SessionHandler struct {
	Svc *service.Service
}

// Me returns the caller's SessionView.
func (h *SessionHandler) Me(c echo.Context) error {
	v, err := h.Svc.Status(c.Request().Context(), middleware.SessionID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// StreamMe pushes the caller's SessionView as it changes.
func (h *SessionHandler) StreamMe(c echo.Context) error {
	return streamSSE(c, "session", h.Svc.SubscribeSession(c.Request().Context(), middleware.SessionID(c)))
}

// AckCancellation clears a cancellation notice and leaves RECOVERY.
func (h *SessionHandler) AckCancellation(c echo.Context) error {
	if err := h.Svc.AcknowledgeCancellation(c.Request().Context(), middleware.SessionID(c)); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
