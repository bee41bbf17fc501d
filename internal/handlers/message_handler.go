package handlers

import (
	"net/http"

	"tradeup_backend/internal/services"
	"tradeup_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	*BaseHandler
	messagingService services.MessagingService
}

func NewMessageHandler(base *BaseHandler, messagingService services.MessagingService) *MessageHandler {
	return &MessageHandler{
		BaseHandler:      base,
		messagingService: messagingService,
	}
}

// RegisterRoutes registers the messaging endpoints. The group must be
// behind the auth middleware.
func (h *MessageHandler) RegisterRoutes(rg *gin.RouterGroup) {
	messages := rg.Group("/messages")
	{
		messages.POST("", h.SendMessage)
	}

	conversations := rg.Group("/conversations")
	{
		conversations.GET("", h.GetConversations)
		conversations.GET("/:conversationId/messages", h.GetThread)
		conversations.PUT("/:conversationId/read", h.MarkConversationRead)
	}
}

func (h *MessageHandler) SendMessage(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	message, err := h.messagingService.SendMessage(db, userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

func (h *MessageHandler) GetConversations(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)

	conversations, err := h.messagingService.GetConversations(db, userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversations": conversations,
		"total":         len(conversations),
	})
}

func (h *MessageHandler) GetThread(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	conversationID := c.Param("conversationId")

	db := h.GetDB(c)

	thread, err := h.messagingService.GetThread(db, conversationID, userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, thread)
}

func (h *MessageHandler) MarkConversationRead(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	conversationID := c.Param("conversationId")

	db := h.GetDB(c)

	if err := h.messagingService.MarkConversationRead(db, conversationID, userID); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Conversation marked as read"})
}
