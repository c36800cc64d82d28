package handlers

import (
	"context"
	"net/http"

	"github.com/Blunt0FF/Krealgram-sub001/internal/services"
	"github.com/labstack/echo/v4"
)

type LikeToggler interface {
	ToggleLike(ctx context.Context, actor, postID string) (services.ToggleResult, error)
}

// LikeHandler handles HTTP requests related to likes
type LikeHandler struct {
	engine LikeToggler
}

func NewLikeHandler(engine LikeToggler) *LikeHandler {
	return &LikeHandler{engine: engine}
}

// RegisterLikeRoutes registers like-related routes
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group) {
	g.POST("/posts/:post_id/like", h.ToggleLike)
}

// ToggleLike likes the post, or unlikes it when already liked
func (h *LikeHandler) ToggleLike(c echo.Context) error {
	res, err := h.engine.ToggleLike(c.Request().Context(), requester(c), c.Param("post_id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
