package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/logger"
)

// RequestLogger logs one line per request.  5xx responses log at error,
// 4xx at info, everything else at debug.
func RequestLogger(log *logger.Logger) echo.MiddlewareFunc {
	log = log.With("component", "http")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			kv := []interface{}{
				"method", c.Request().Method,
				"route", c.Path(),
				"status", status,
				"duration", time.Since(start),
				"session", SessionID(c),
			}
			switch {
			case status >= 500:
				log.Error("request", append(kv, "error", err)...)
			case status >= 400:
				log.Info("request", kv...)
			default:
				log.Debug("request", kv...)
			}
			return nil
		}
	}
}
