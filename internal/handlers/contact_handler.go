package handlers

import (
	"net/http"

	"tradeup_backend/internal/services"
	"tradeup_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type ContactHandler struct {
	*BaseHandler
	contactService services.ContactService
}

func NewContactHandler(base *BaseHandler, contactService services.ContactService) *ContactHandler {
	return &ContactHandler{
		BaseHandler:    base,
		contactService: contactService,
	}
}

// RegisterRoutes registers the contact endpoints. The group must be
// behind the auth middleware.
func (h *ContactHandler) RegisterRoutes(rg *gin.RouterGroup) {
	contacts := rg.Group("/contacts")
	{
		contacts.GET("", h.GetContacts)
		contacts.POST("/requests", h.SendRequest)
		contacts.GET("/requests", h.GetIncomingRequests)
		contacts.PUT("/requests/:requestId/accept", h.AcceptRequest)
		contacts.PUT("/requests/:requestId/reject", h.RejectRequest)
	}
}

func (h *ContactHandler) SendRequest(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.SendContactRequestRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	response, err := h.contactService.SendRequest(db, userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

func (h *ContactHandler) AcceptRequest(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	requestID := c.Param("requestId")

	db := h.GetDB(c)

	if err := h.contactService.AcceptRequest(db, requestID, userID); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Contact request accepted"})
}

func (h *ContactHandler) RejectRequest(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	requestID := c.Param("requestId")

	db := h.GetDB(c)

	if err := h.contactService.RejectRequest(db, requestID, userID); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Contact request rejected"})
}

func (h *ContactHandler) GetContacts(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)

	contacts, err := h.contactService.GetContacts(db, userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"contacts": contacts,
		"total":    len(contacts),
	})
}

func (h *ContactHandler) GetIncomingRequests(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)

	requests, err := h.contactService.GetIncomingRequests(db, userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"requests": requests,
		"total":    len(requests),
	})
}
