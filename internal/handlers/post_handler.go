package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/Blunt0FF/Krealgram-sub001/internal/media"
	"github.com/Blunt0FF/Krealgram-sub001/internal/models"
	"github.com/Blunt0FF/Krealgram-sub001/internal/services"
	"github.com/labstack/echo/v4"
)

type PostService interface {
	Create(ctx context.Context, ownerID, caption string, uploads []media.Upload) (*models.Post, error)
	Get(ctx context.Context, id string) (*models.Post, error)
	ListByOwner(ctx context.Context, ownerID string, page services.Page) ([]models.Post, error)
	Delete(ctx context.Context, requesterID, postID string) error
}

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	posts PostService
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(posts PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts/:post_id", h.GetPost)
	g.GET("/users/:user_id/posts", h.GetUserPosts)
	g.DELETE("/posts/:post_id", h.DeletePost)
}

// CreatePost creates a new post from a multipart form with one or more "media" files
func (h *PostHandler) CreatePost(c echo.Context) error {
	var req models.CreatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "expected a multipart form")
	}
	uploads := make([]media.Upload, 0, len(form.File["media"]))
	for _, fh := range form.File["media"] {
		f, err := fh.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unreadable upload")
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unreadable upload")
		}
		uploads = append(uploads, media.Upload{Filename: fh.Filename, Data: data})
	}

	post, err := h.posts.Create(c.Request().Context(), requester(c), req.Caption, uploads)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, post)
}

// GetPost retrieves a single post
func (h *PostHandler) GetPost(c echo.Context) error {
	post, err := h.posts.Get(c.Request().Context(), c.Param("post_id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, post)
}

func (h *PostHandler) GetUserPosts(c echo.Context) error {
	posts, err := h.posts.ListByOwner(c.Request().Context(), c.Param("user_id"), pageParams(c))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, posts)
}

// DeletePost deletes a post together with its comments, likes and notifications
func (h *PostHandler) DeletePost(c echo.Context) error {
	if err := h.posts.Delete(c.Request().Context(), requester(c), c.Param("post_id")); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
