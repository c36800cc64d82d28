package middleware

import (
	"net/http"
	"strings"

	"github.com/Blunt0FF/Krealgram-sub001/pkg/logger"
	"github.com/labstack/echo/v4"
)

// requesterKey holds the authenticated user id in the echo context.
const requesterKey = "requesterID"

// RequesterID returns the user id set by the auth middleware.
func RequesterID(c echo.Context) string {
	id, _ := c.Get(requesterKey).(string)
	return id
}

// setRequester stores id on c and tags the request logger with it.
func setRequester(c echo.Context, id string) {
	c.Set(requesterKey, id)
	req := c.Request()
	l := logger.Ctx(req.Context()).With().Str(logger.FieldUserID, id).Logger()
	c.SetRequest(req.WithContext(logger.WithLogger(req.Context(), l)))
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
	}
	return parts[1], nil
}
