package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/apperr"
)

// streamSSE writes every snapshot of seq as a server-sent event named
// event.  An error before the first snapshot is answered like any other
// handler error; once streaming has started it is sent as an "error"
// event and the stream ends.
func streamSSE[T any](c echo.Context, event string, seq iter.Seq2[T, error]) error {
	res := c.Response()
	started := false
	for v, err := range seq {
		if err != nil {
			if !started {
				return respondError(c, err)
			}
			var ae *apperr.Error
			if !errors.As(err, &ae) {
				ae = apperr.Wrap(apperr.Unavailable, err, "")
			}
			_ = writeEvent(res, "error", ErrorBody{Error: string(ae.Code), Message: ae.Message})
			return nil
		}
		if !started {
			h := res.Header()
			h.Set(echo.HeaderContentType, "text/event-stream")
			h.Set(echo.HeaderCacheControl, "no-cache")
			h.Set(echo.HeaderConnection, "keep-alive")
			h.Set("X-Accel-Buffering", "no")
			res.WriteHeader(http.StatusOK)
			started = true
		}
		if err := writeEvent(res, event, v); err != nil {
			// client went away
			return nil
		}
	}
	return nil
}

func writeEvent(res *echo.Response, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	res.Flush()
	return nil
}
