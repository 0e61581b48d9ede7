package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Logger returns middleware that emits one log line per request. Lines carry
// the resolved route template alongside the raw path, the resource id for
// routes that take one, and the authenticated doctor when a session is
// present. Latency on stream routes covers the whole generation, not just
// routing.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			err := next(c)

			res := c.Response()
			evt := logger.Info()
			if err != nil || res.Status >= http.StatusInternalServerError {
				evt = logger.Error().Err(err)
			}

			evt = evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("route", c.Path()).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Int64("bytes_out", res.Size).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP())

			if id := c.Param("id"); id != "" {
				evt = evt.Str("resource_id", id)
			}
			if doctorID, ok := c.Get("doctor_id").(string); ok && doctorID != "" {
				evt = evt.Str("doctor_id", doctorID)
			}

			evt.Msg("request")
			return err
		}
	}
}
