package handlers

import (
	"context"
	"net/http"

	"github.com/Blunt0FF/Krealgram-sub001/internal/models"
	"github.com/labstack/echo/v4"
)

type CommentService interface {
	Create(ctx context.Context, authorID, postID, body string) (*models.Comment, error)
	ListByPost(ctx context.Context, postID string) ([]models.Comment, error)
	Delete(ctx context.Context, requesterID, commentID string) error
}

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	comments CommentService
}

func NewCommentHandler(comments CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/posts/:post_id/comments", h.CreateComment)
	g.GET("/posts/:post_id/comments", h.GetComments)
	g.DELETE("/comments/:id", h.DeleteComment)
}

func (h *CommentHandler) CreateComment(c echo.Context) error {
	var req models.CreateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	comment, err := h.comments.Create(c.Request().Context(), requester(c), c.Param("post_id"), req.Body)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, comment)
}

func (h *CommentHandler) GetComments(c echo.Context) error {
	comments, err := h.comments.ListByPost(c.Request().Context(), c.Param("post_id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, comments)
}

// DeleteComment deletes a comment written by the requester
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	if err := h.comments.Delete(c.Request().Context(), requester(c), c.Param("id")); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
