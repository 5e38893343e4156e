package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout returns middleware that sets a context deadline on each
// incoming request. The deadline bounds the whole request, including the
// portal round trips behind it: a prontuário fetch that stalls is cancelled
// here rather than holding the connection open.
//
// When the deadline fires before the handler completes, the client gets a
// 504 with a JSON error body.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()

			c.SetRequest(c.Request().WithContext(ctx))

			done := make(chan error, 1)
			go func() {
				done <- next(c)
			}()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				if ctx.Err() == context.DeadlineExceeded {
					if !c.Response().Committed {
						return c.JSON(http.StatusGatewayTimeout, map[string]string{
							"error": "Tempo limite excedido ao processar a requisição.",
						})
					}
					return nil
				}
				// Client disconnect or upstream cancellation.
				return ctx.Err()
			}
		}
	}
}
