package handlers

import (
	"context"
	"net/http"

	"github.com/Blunt0FF/Krealgram-sub001/internal/services"
	"github.com/labstack/echo/v4"
)

type NotificationService interface {
	List(ctx context.Context, recipientID string, page services.Page) (services.NotificationPage, error)
	MarkRead(ctx context.Context, recipientID, notificationID string) (int, error)
	MarkAllRead(ctx context.Context, recipientID string) error
	Delete(ctx context.Context, recipientID, notificationID string) error
}

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notifications NotificationService
}

func NewNotificationHandler(notifications NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.PUT("/notifications/read-all", h.MarkAllAsRead)
	g.PUT("/notifications/:id/read", h.MarkAsRead)
	g.DELETE("/notifications/:id", h.DeleteNotification)
}

// GetNotifications returns the requester's inbox, newest first
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	page, err := h.notifications.List(c.Request().Context(), requester(c), pageParams(c))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	unread, err := h.notifications.MarkRead(c.Request().Context(), requester(c), c.Param("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"unread_count": unread})
}

func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	if err := h.notifications.MarkAllRead(c.Request().Context(), requester(c)); err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"unread_count": 0})
}

func (h *NotificationHandler) DeleteNotification(c echo.Context) error {
	if err := h.notifications.Delete(c.Request().Context(), requester(c), c.Param("id")); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
