package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Blunt0FF/Krealgram-sub001/internal/middleware"
	"github.com/Blunt0FF/Krealgram-sub001/internal/models"
	"github.com/Blunt0FF/Krealgram-sub001/internal/services"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/logger"
	"github.com/labstack/echo/v4"
)

// httpError maps the error taxonomy onto HTTP status codes.
func httpError(c echo.Context, err error) error {
	var appErr *models.AppError
	msg := err.Error()
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	switch {
	case errors.Is(err, models.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, msg)
	case errors.Is(err, models.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, msg)
	case errors.Is(err, models.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, msg)
	case errors.Is(err, models.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, msg)
	case errors.Is(err, models.ErrTransient):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "please retry the request")
	}
	logger.Ctx(c.Request().Context()).Error().Err(err).Msg("request failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}

// bindAndValidate decodes the body into req and checks its tags.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return httpError(c, err)
	}
	return nil
}

func pageParams(c echo.Context) services.Page {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return services.Page{Page: page, Limit: limit}
}

func requester(c echo.Context) string {
	return middleware.RequesterID(c)
}
