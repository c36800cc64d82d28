package handlers

import (
	"context"
	"net/http"

	"github.com/Blunt0FF/Krealgram-sub001/internal/models"
	"github.com/Blunt0FF/Krealgram-sub001/internal/services"
	"github.com/labstack/echo/v4"
)

type MessageService interface {
	CreateConversation(ctx context.Context, creatorID string, participants []string) (*models.Conversation, error)
	Send(ctx context.Context, senderID, conversationID, body string, media []models.MediaRef) (*models.Message, error)
	List(ctx context.Context, requesterID, conversationID string, page services.Page) ([]models.Message, error)
	Delete(ctx context.Context, requesterID, messageID string) error
}

// MessageHandler handles direct messages
type MessageHandler struct {
	messages MessageService
}

func NewMessageHandler(messages MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

func (h *MessageHandler) RegisterMessageRoutes(g *echo.Group) {
	g.POST("/conversations", h.CreateConversation)
	g.POST("/conversations/:id/messages", h.SendMessage)
	g.GET("/conversations/:id/messages", h.GetMessages)
	g.DELETE("/messages/:id", h.DeleteMessage)
}

func (h *MessageHandler) CreateConversation(c echo.Context) error {
	var req models.CreateConversationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	conv, err := h.messages.CreateConversation(c.Request().Context(), requester(c), req.Participants)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, conv)
}

func (h *MessageHandler) SendMessage(c echo.Context) error {
	var req models.SendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	msg, err := h.messages.Send(c.Request().Context(), requester(c), c.Param("id"), req.Body, nil)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, msg)
}

func (h *MessageHandler) GetMessages(c echo.Context) error {
	msgs, err := h.messages.List(c.Request().Context(), requester(c), c.Param("id"), pageParams(c))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, msgs)
}

// DeleteMessage deletes a message sent by the requester
func (h *MessageHandler) DeleteMessage(c echo.Context) error {
	if err := h.messages.Delete(c.Request().Context(), requester(c), c.Param("id")); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
