package router

import (
	"time"

	"github.com/Blunt0FF/Krealgram-sub001/internal/handlers"
	"github.com/Blunt0FF/Krealgram-sub001/internal/media"
	"github.com/Blunt0FF/Krealgram-sub001/internal/middleware"
	"github.com/Blunt0FF/Krealgram-sub001/internal/repositories"
	"github.com/Blunt0FF/Krealgram-sub001/internal/services"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/blobstore"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/logger"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/realtime"
	"github.com/labstack/echo/v4"
)

// Dependencies are the backends the routes are built on.
type Dependencies struct {
	Store    *repositories.Store
	Blobs    blobstore.Store
	Notifier realtime.Notifier
	// Auth authenticates /api/v1 and sets the requester id.
	Auth echo.MiddlewareFunc

	MaxUploadBytes  int64
	MaxImageEdge    int
	OnlineThreshold time.Duration
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, deps Dependencies) {
	log := logger.L()

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Services ---
	pipeline := &media.Pipeline{MaxBytes: deps.MaxUploadBytes, MaxEdge: deps.MaxImageEdge, Blobs: deps.Blobs}
	users := services.NewUserService(deps.Store.Users, deps.OnlineThreshold)
	toggles := services.NewToggleEngine(deps.Store, deps.Notifier)
	posts := services.NewPostService(deps.Store, pipeline, deps.Blobs, deps.Notifier)
	comments := services.NewCommentService(deps.Store, deps.Notifier)
	messages := services.NewMessageService(deps.Store, deps.Blobs, deps.Notifier)
	notifications := services.NewNotificationService(deps.Store, deps.Notifier)

	// --- Protected routes ---
	api := e.Group("/api/v1")
	api.Use(deps.Auth)
	api.Use(middleware.PresenceMiddleware(users))

	handlers.NewUserHandler(users).RegisterUserRoutes(api)
	handlers.NewPostHandler(posts).RegisterPostRoutes(api)
	handlers.NewLikeHandler(toggles).RegisterLikeRoutes(api)
	handlers.NewFollowHandler(toggles).RegisterFollowRoutes(api)
	handlers.NewCommentHandler(comments).RegisterCommentRoutes(api)
	handlers.NewMessageHandler(messages).RegisterMessageRoutes(api)
	handlers.NewNotificationHandler(notifications).RegisterNotificationRoutes(api)

	log.Info().Int("routes", len(e.Routes())).Msg("routes configured")
}
