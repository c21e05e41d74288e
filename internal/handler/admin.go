package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/middleware"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/service"
)

// AdminHandler serves the /v1/admin routes.  The router mounts it behind
// RequireRole(ADMIN); the admin's session id is recorded as the actor.
type AdminHandler struct {
	Svc *service.Service
}

// Invite issues an invitation on an occupant's behalf.
func (h *AdminHandler) Invite(c echo.Context) error {
	var in service.InviteInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	in.InviterID = strings.TrimSpace(in.InviterID)
	in.TargetID = strings.TrimSpace(in.TargetID)
	in.AdminID = middleware.SessionID(c)

	r, err := h.Svc.Invite(c.Request().Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// CancelAssignment removes a session or guest from a room.
// DELETE /v1/admin/rooms/:id/occupants/:identity
func (h *AdminHandler) CancelAssignment(c echo.Context) error {
	err := h.Svc.CancelAssignment(c.Request().Context(), middleware.SessionID(c), c.Param("id"), c.Param("identity"))
	if err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AssignGuest creates a temporary guest and places it in a room.
func (h *AdminHandler) AssignGuest(c echo.Context) error {
	var in service.GuestInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	g, err := h.Svc.AssignTempGuest(c.Request().Context(), middleware.SessionID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, g)
}

type migrateRequest struct {
	TargetSessionID             string `json:"target_session_id"`
	AllowMoveExistingAssignment bool   `json:"allow_move_existing_assignment"`
}

// MigrateGuest hands a guest's slot to a registered session.
func (h *AdminHandler) MigrateGuest(c echo.Context) error {
	var req migrateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	target := strings.TrimSpace(req.TargetSessionID)
	if target == "" {
		return badRequest(c, "target_session_id is required")
	}
	g, err := h.Svc.MigrateTempGuest(c.Request().Context(), c.Param("id"), target, service.MigrateOptions{
		ActorID:                     middleware.SessionID(c),
		AllowMoveExistingAssignment: req.AllowMoveExistingAssignment,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, g)
}
