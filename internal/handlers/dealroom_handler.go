package handlers

import (
	"net/http"

	"tradeup_backend/internal/config"
	"tradeup_backend/internal/services"
	"tradeup_backend/internal/services/dto"
	"tradeup_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type DealroomHandler struct {
	*BaseHandler
	dealroomService services.DealroomService
}

func NewDealroomHandler(base *BaseHandler, dealroomService services.DealroomService) *DealroomHandler {
	return &DealroomHandler{
		BaseHandler:     base,
		dealroomService: dealroomService,
	}
}

// RegisterRoutes registers the dealroom endpoints. The group must be
// behind the auth middleware.
func (h *DealroomHandler) RegisterRoutes(rg *gin.RouterGroup) {
	dealrooms := rg.Group("/dealrooms")
	{
		dealrooms.POST("", h.CreateDealroom)
		dealrooms.GET("", h.GetUserDealrooms)
		dealrooms.GET("/:dealroomId", h.GetDealroomDetails)
		dealrooms.POST("/:dealroomId/advance-stage", h.AdvanceStage)
		dealrooms.POST("/:dealroomId/documents", h.UploadDocument)

		dealrooms.GET("/invites/incoming", h.GetIncomingInvites)
		dealrooms.GET("/invites/outgoing", h.GetOutgoingInvites)
		dealrooms.PUT("/invites/:inviteId/accept", h.AcceptInvite)
		dealrooms.PUT("/invites/:inviteId/reject", h.RejectInvite)
	}
}

func (h *DealroomHandler) CreateDealroom(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.CreateDealroomRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	dealroom, err := h.dealroomService.CreateDealroom(db, userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dealroom)
}

func (h *DealroomHandler) GetUserDealrooms(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)

	dealrooms, err := h.dealroomService.GetUserDealrooms(db, userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"dealrooms": dealrooms,
		"total":     len(dealrooms),
	})
}

func (h *DealroomHandler) GetDealroomDetails(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	dealroomID := c.Param("dealroomId")

	db := h.GetDB(c)

	details, err := h.dealroomService.GetDealroomDetails(db, dealroomID, userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, details)
}

func (h *DealroomHandler) AdvanceStage(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	dealroomID := c.Param("dealroomId")

	var req dto.AdvanceStageRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	result, err := h.dealroomService.AdvanceStage(db, dealroomID, userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *DealroomHandler) UploadDocument(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	dealroomID := c.Param("dealroomId")

	file, err := c.FormFile("file")
	if err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Missing file in form data"))
		return
	}

	cfg := config.GetConfig()
	if cfg.Upload.MaxSize > 0 && file.Size > cfg.Upload.MaxSize {
		apperrors.HandleError(c, apperrors.NewBadRequestError("File exceeds the maximum upload size"))
		return
	}
	if !isAllowedUploadType(file.Header.Get("Content-Type"), cfg.Upload.AllowedTypes) {
		apperrors.HandleError(c, apperrors.NewBadRequestError(
			"Only PDF, Word, TXT, image or spreadsheet files are allowed"))
		return
	}

	db := h.GetDB(c)

	document, err := h.dealroomService.UploadDocument(db, dealroomID, userID, file)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, document)
}

func isAllowedUploadType(contentType string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, t := range allowed {
		if contentType == t {
			return true
		}
	}
	return false
}

func (h *DealroomHandler) GetIncomingInvites(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)

	invites, err := h.dealroomService.GetIncomingInvites(db, userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invites": invites,
		"total":   len(invites),
	})
}

func (h *DealroomHandler) GetOutgoingInvites(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)

	invites, err := h.dealroomService.GetOutgoingInvites(db, userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invites": invites,
		"total":   len(invites),
	})
}

func (h *DealroomHandler) AcceptInvite(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	inviteID := c.Param("inviteId")

	db := h.GetDB(c)

	if err := h.dealroomService.AcceptInvite(db, inviteID, userID); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Invite accepted"})
}

func (h *DealroomHandler) RejectInvite(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	inviteID := c.Param("inviteId")

	db := h.GetDB(c)

	if err := h.dealroomService.RejectInvite(db, inviteID, userID); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Invite rejected"})
}
