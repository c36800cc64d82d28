package handlers

import (
	"context"
	"net/http"

	"github.com/Blunt0FF/Krealgram-sub001/internal/models"
	"github.com/labstack/echo/v4"
)

type UserService interface {
	Create(ctx context.Context, userID, username string) (*models.User, error)
	Get(ctx context.Context, userID string) (models.UserCompact, error)
	Touch(ctx context.Context, userID string) error
}

type UserHandler struct {
	users UserService
}

func NewUserHandler(users UserService) *UserHandler {
	return &UserHandler{users: users}
}

// RegisterUserRoutes registers profile and presence routes
func (h *UserHandler) RegisterUserRoutes(g *echo.Group) {
	g.POST("/users/me", h.CreateProfile)
	g.GET("/users/:user_id", h.GetUser)
	g.POST("/presence/heartbeat", h.Heartbeat)
}

// CreateProfile creates the profile document of the authenticated user
func (h *UserHandler) CreateProfile(c echo.Context) error {
	var req models.CreateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.users.Create(c.Request().Context(), requester(c), req.Username)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, user)
}

// GetUser returns a user's public profile with online state
func (h *UserHandler) GetUser(c echo.Context) error {
	user, err := h.users.Get(c.Request().Context(), c.Param("user_id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UserHandler) Heartbeat(c echo.Context) error {
	if err := h.users.Touch(c.Request().Context(), requester(c)); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
