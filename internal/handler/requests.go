package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/middleware"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/service"
)

// RequestHandler serves invitations and the consensus transitions.
type RequestHandler struct {
	Svc *service.Service
}

type inviteRequest struct {
	TargetID string `json:"target_id"`
}

// Invite invites another session into the caller's room.
func (h *RequestHandler) Invite(c echo.Context) error {
	var req inviteRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	r, err := h.Svc.Invite(c.Request().Context(), service.InviteInput{
		InviterID: middleware.SessionID(c),
		TargetID:  strings.TrimSpace(req.TargetID),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// List returns the caller's outgoing and incoming pending requests.
func (h *RequestHandler) List(c echo.Context) error {
	rs, err := h.Svc.Requests(c.Request().Context(), middleware.SessionID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, rs)
}

// Accept answers a request addressed to the caller.  When the request
// could not be honoured, the body carries the expired request next to
// the error so the client can show why.
func (h *RequestHandler) Accept(c echo.Context) error {
	r, err := h.Svc.Accept(c.Request().Context(), middleware.SessionID(c), c.Param("id"))
	if err != nil {
		// A request that expired while being accepted is returned with
		// the error so the client can show why.
		status, body := errorBody(c, err)
		if r.ID != "" {
			body.Request = r
		}
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusOK, r)
}

// Reject declines a request addressed to the caller.
func (h *RequestHandler) Reject(c echo.Context) error {
	r, err := h.Svc.Reject(c.Request().Context(), middleware.SessionID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// Cancel withdraws the caller's own request.  Cancelling a request that
// already ended is a no-op.
func (h *RequestHandler) Cancel(c echo.Context) error {
	if err := h.Svc.Cancel(c.Request().Context(), middleware.SessionID(c), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
