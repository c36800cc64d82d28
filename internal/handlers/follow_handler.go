package handlers

import (
	"context"
	"net/http"

	"github.com/Blunt0FF/Krealgram-sub001/internal/models"
	"github.com/Blunt0FF/Krealgram-sub001/internal/services"
	"github.com/labstack/echo/v4"
)

type FollowEngine interface {
	Toggle(ctx context.Context, actor, target string, kind models.RelationKind) (services.ToggleResult, error)
	Follow(ctx context.Context, actor, target string) (services.ToggleResult, error)
	Unfollow(ctx context.Context, actor, target string) (services.ToggleResult, error)
}

// FollowHandler handles HTTP requests related to follows
type FollowHandler struct {
	engine FollowEngine
}

func NewFollowHandler(engine FollowEngine) *FollowHandler {
	return &FollowHandler{engine: engine}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/users/:user_id/follow", h.Follow)
	g.DELETE("/users/:user_id/follow", h.Unfollow)
	g.POST("/users/:user_id/follow/toggle", h.Toggle)
}

func (h *FollowHandler) Follow(c echo.Context) error {
	res, err := h.engine.Follow(c.Request().Context(), requester(c), c.Param("user_id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *FollowHandler) Unfollow(c echo.Context) error {
	res, err := h.engine.Unfollow(c.Request().Context(), requester(c), c.Param("user_id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *FollowHandler) Toggle(c echo.Context) error {
	res, err := h.engine.Toggle(c.Request().Context(), requester(c), c.Param("user_id"), models.RelationFollow)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
