// Package handler exposes the coordinator over HTTP.  Handlers only parse
// input, take the caller's session id from the token and map results;
// every rule lives in package service.
package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/middleware"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/model"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/service"
)

// RoomHandler serves the catalog, room views, holds and selection.
type RoomHandler struct {
	Svc *service.Service
}

// ListRooms returns the static catalog.  It is identical for every caller,
// which is what makes it safe to put behind the response cache.
func (h *RoomHandler) ListRooms(c echo.Context) error {
	rooms := h.Svc.Rooms().List()
	if rooms == nil {
		rooms = []model.Room{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": rooms})
}

// GetRoom returns the caller's view of a room.
func (h *RoomHandler) GetRoom(c echo.Context) error {
	v, err := h.Svc.RoomView(c.Request().Context(), c.Param("id"), middleware.SessionID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// StreamRoom pushes a RoomView whenever the room's occupancy or holds
// change, and at least once per poll interval so countdowns advance.
func (h *RoomHandler) StreamRoom(c echo.Context) error {
	return streamSSE(c, "room", h.Svc.SubscribeRoom(c.Request().Context(), c.Param("id"), middleware.SessionID(c)))
}

type holdRequest struct {
	TTLSeconds int `json:"ttl_seconds"`
}

// Hold acquires or refreshes the caller's hold.  POST /v1/rooms/:id/hold
func (h *RoomHandler) Hold(c echo.Context) error {
	// The body is optional; an empty POST takes the default ttl.
	var req holdRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid body")
		}
	}
	if req.TTLSeconds < 0 {
		return badRequest(c, "ttl_seconds must not be negative")
	}
	// Cut oversized values here so the multiplication cannot overflow;
	// Acquire applies the same cap.
	ttl := time.Duration(req.TTLSeconds) * time.Second
	if limit := h.Svc.Config().MaxHoldTTL; req.TTLSeconds > int(limit/time.Second) {
		ttl = limit
	}
	hold, err := h.Svc.Acquire(c.Request().Context(), c.Param("id"), middleware.SessionID(c), ttl)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, hold)
}

// Release drops the caller's hold.  Always 204, even with nothing to drop.
func (h *RoomHandler) Release(c echo.Context) error {
	if err := h.Svc.Release(c.Request().Context(), c.Param("id"), middleware.SessionID(c)); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Select runs room selection.  201 when the caller was assigned, 202 when
// a join request now waits for the occupant.
func (h *RoomHandler) Select(c echo.Context) error {
	sel, err := h.Svc.Select(c.Request().Context(), middleware.SessionID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	status := http.StatusAccepted
	if sel.Assigned {
		status = http.StatusCreated
	}
	return c.JSON(status, sel)
}

// RequestJoin asks the room's occupant to accept the caller.
func (h *RoomHandler) RequestJoin(c echo.Context) error {
	r, err := h.Svc.RequestJoin(c.Request().Context(), middleware.SessionID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}
