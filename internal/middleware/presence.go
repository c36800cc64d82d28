package middleware

import (
	"context"

	"github.com/Blunt0FF/Krealgram-sub001/pkg/logger"
	"github.com/labstack/echo/v4"
)

// Toucher records user activity.
type Toucher interface {
	Touch(ctx context.Context, userID string) error
}

// PresenceMiddleware refreshes the requester's last_seen_at after each
// authenticated request. Failures are logged only.
func PresenceMiddleware(t Toucher) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if id := RequesterID(c); id != "" {
				ctx := c.Request().Context()
				if touchErr := t.Touch(context.WithoutCancel(ctx), id); touchErr != nil {
					logger.Ctx(ctx).Debug().Err(touchErr).Msg("presence touch failed")
				}
			}
			return err
		}
	}
}
