package config

import (
	"github.com/Blunt0FF/Krealgram-sub001/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SetupMiddleware installs the global middleware chain. The request logger
// runs first so panics recovered below it are still logged with a request id.
func SetupMiddleware(e *echo.Echo) {
	e.Use(logger.EchoMiddleware())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
}
