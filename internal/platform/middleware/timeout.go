package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout returns middleware that sets a context deadline on each
// incoming request. If the deadline is exceeded before the handler completes,
// the request context is cancelled and a 504 Gateway Timeout is returned.
//
// SSE endpoints (paths ending in /stream) are excluded because a multi-stage
// generation can legitimately run for minutes while the client consumes
// events. Timeout policy for those requests belongs to the LLM client's read
// timeout.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if strings.HasSuffix(c.Request().URL.Path, "/stream") {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()

			c.SetRequest(c.Request().WithContext(ctx))

			// Run handler in a goroutine so we can select on the context.
			done := make(chan error, 1)
			go func() {
				done <- next(c)
			}()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				if ctx.Err() == context.DeadlineExceeded {
					// The handler may have started writing before the
					// deadline fired; a committed response cannot carry
					// the 504.
					if c.Response().Committed {
						return nil
					}
					return c.JSON(http.StatusGatewayTimeout, map[string]string{
						"error": "request timed out",
					})
				}
				return ctx.Err()
			}
		}
	}
}
