package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/apperr"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error        string `json:"error"`
	Message      string `json:"message"`
	RetryAfterMS int64  `json:"retry_after_ms,omitempty"`

	// Request is the request a failed transition left behind, if any.
	Request any `json:"request,omitempty"`
}

// respondError maps err onto its HTTP status.  ALREADY_HELD carries the
// blocking hold's remaining time both in the body and as Retry-After.
func respondError(c echo.Context, err error) error {
	status, body := errorBody(c, err)
	return c.JSON(status, body)
}

func errorBody(c echo.Context, err error) (int, ErrorBody) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		ae = apperr.Wrap(apperr.Unavailable, err, "")
	}
	body := ErrorBody{Error: string(ae.Code), Message: ae.Message}
	if body.Message == "" {
		body.Message = http.StatusText(apperr.Status(ae.Code))
	}
	if ae.Code == apperr.AlreadyHeld {
		body.RetryAfterMS = ae.Remaining.Milliseconds()
		secs := (ae.Remaining.Milliseconds() + 999) / 1000
		c.Response().Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	}
	return apperr.Status(ae.Code), body
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorBody{Error: string(apperr.Invalid), Message: msg})
}
