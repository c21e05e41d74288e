package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/store"
)

// Health is the liveness endpoint used by load balancers.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Ready reports 503 while the shared store cannot be read.
func Ready(s store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		var probe struct{}
		if _, err := s.Get(ctx, "readyz", &probe); err != nil {
			return respondError(c, err)
		}
		return c.String(http.StatusOK, "ready")
	}
}
