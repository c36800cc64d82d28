package logger

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// EchoMiddleware attaches a request-scoped logger to the request context and
// logs one line per completed request.
func EchoMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			reqID := req.Header.Get(echo.HeaderXRequestID)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, reqID)

			child := global.With().
				Str(FieldRequestID, reqID).
				Str(FieldMethod, req.Method).
				Str(FieldPath, c.Path()).
				Logger()
			c.SetRequest(req.WithContext(WithLogger(req.Context(), child)))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			child.Info().
				Int(FieldStatus, c.Response().Status).
				Int64(FieldLatency, time.Since(start).Milliseconds()).
				Msg("request completed")
			return nil
		}
	}
}
