package services

import (
	"strings"
	"time"

	"tradeup_backend/internal/logger"
	"tradeup_backend/internal/models"
	"tradeup_backend/internal/repositories"
	"tradeup_backend/internal/services/dto"
	"tradeup_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// MessagingService is the single entry point for sending messages.
// Both the REST handler and the websocket inbound path call SendMessage
// so persistence, read-marking, notification and delivery behavior
// cannot drift between transports.
type MessagingService interface {
	SendMessage(db *gorm.DB, senderID string, req *dto.SendMessageRequest) (*dto.MessageResponse, error)
	GetConversations(db *gorm.DB, userID string) ([]*dto.ConversationResponse, error)
	GetThread(db *gorm.DB, conversationID, userID string) (*dto.ThreadResponse, error)
	MarkConversationRead(db *gorm.DB, conversationID, userID string) error
}

type messagingService struct {
	messageRepo         repositories.MessageRepository
	dealroomRepo        repositories.DealroomRepository
	userRepo            repositories.UserRepository
	notificationService NotificationService
	router              DeliveryRouter
}

func NewMessagingService(
	messageRepo repositories.MessageRepository,
	dealroomRepo repositories.DealroomRepository,
	userRepo repositories.UserRepository,
	notificationService NotificationService,
	router DeliveryRouter,
) MessagingService {
	return &messagingService{
		messageRepo:         messageRepo,
		dealroomRepo:        dealroomRepo,
		userRepo:            userRepo,
		notificationService: notificationService,
		router:              router,
	}
}

// canonicalPair orders two user ids ascending so a conversation pair is
// unique regardless of who messaged first.
func canonicalPair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

func (s *messagingService) SendMessage(db *gorm.DB, senderID string, req *dto.SendMessageRequest) (*dto.MessageResponse, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, apperrors.ErrEmptyMessage
	}

	targets := 0
	if req.ReceiverID != nil {
		targets++
	}
	if req.ConversationID != nil {
		targets++
	}
	if req.DealroomID != nil {
		targets++
	}
	if targets != 1 {
		return nil, apperrors.ErrAmbiguousTarget
	}

	if req.DealroomID != nil {
		return s.sendDealroomMessage(db, senderID, *req.DealroomID, req.Content)
	}
	return s.sendConversationMessage(db, senderID, req)
}

func (s *messagingService) sendDealroomMessage(db *gorm.DB, senderID, dealroomID, content string) (*dto.MessageResponse, error) {
	dealroom, err := s.dealroomRepo.FindByID(db, dealroomID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrDealroomNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}

	isParticipant, err := s.dealroomRepo.IsParticipant(db, dealroomID, senderID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if !isParticipant {
		return nil, apperrors.ErrNotParticipant
	}

	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	message := &models.Message{
		DealroomID: &dealroomID,
		SenderID:   senderID,
		Content:    content,
	}
	if err := s.messageRepo.CreateMessage(tx, message); err != nil {
		return nil, apperrors.InternalError(err)
	}
	// The sender has obviously seen their own message.
	if err := s.messageRepo.MarkRead(tx, message.ID, senderID); err != nil {
		return nil, apperrors.InternalError(err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.InternalError(err)
	}

	recipientID := dealroom.BuyerID
	if recipientID == senderID {
		recipientID = dealroom.SellerID
	}
	s.notifyAndDeliver(db, recipientID, senderID, message, EventNewDealroomMessage)

	return s.messageResponse(db, message), nil
}

func (s *messagingService) sendConversationMessage(db *gorm.DB, senderID string, req *dto.SendMessageRequest) (*dto.MessageResponse, error) {
	var conversation *models.Conversation
	var err error

	if req.ConversationID != nil {
		conversation, err = s.messageRepo.FindConversationByID(db, *req.ConversationID)
		if err != nil {
			if apperrors.Is(err, repositories.ErrConversationNotFound) {
				return nil, apperrors.ErrNotFound(err)
			}
			return nil, apperrors.InternalError(err)
		}
		if conversation.User1ID != senderID && conversation.User2ID != senderID {
			return nil, apperrors.ErrConversationAccessDenied
		}
	} else {
		receiverID := *req.ReceiverID
		if receiverID == senderID {
			return nil, apperrors.NewBadRequestError("Cannot message yourself")
		}
		if _, err := s.userRepo.FindByID(db, receiverID); err != nil {
			if apperrors.Is(err, repositories.ErrUserNotFound) {
				return nil, apperrors.ErrNotFound(err)
			}
			return nil, apperrors.InternalError(err)
		}
		conversation, err = s.findOrCreateConversation(db, senderID, receiverID)
		if err != nil {
			return nil, err
		}
	}

	recipientID := conversation.User1ID
	if recipientID == senderID {
		recipientID = conversation.User2ID
	}

	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	message := &models.Message{
		ConversationID: &conversation.ID,
		SenderID:       senderID,
		Content:        req.Content,
	}
	if err := s.messageRepo.CreateMessage(tx, message); err != nil {
		return nil, apperrors.InternalError(err)
	}
	if err := s.messageRepo.MarkRead(tx, message.ID, senderID); err != nil {
		return nil, apperrors.InternalError(err)
	}
	if err := s.messageRepo.TouchLastMessage(tx, conversation.ID, time.Now()); err != nil {
		return nil, apperrors.InternalError(err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.InternalError(err)
	}

	s.notifyAndDeliver(db, recipientID, senderID, message, EventNewMessage)

	return s.messageResponse(db, message), nil
}

func (s *messagingService) findOrCreateConversation(db *gorm.DB, senderID, receiverID string) (*models.Conversation, error) {
	user1, user2 := canonicalPair(senderID, receiverID)

	conversation, err := s.messageRepo.FindConversationByPair(db, user1, user2)
	if err == nil {
		return conversation, nil
	}
	if !apperrors.Is(err, repositories.ErrConversationNotFound) {
		return nil, apperrors.InternalError(err)
	}

	conversation = &models.Conversation{
		User1ID:              user1,
		User2ID:              user2,
		LastMessageTimestamp: time.Now(),
	}
	if err := s.messageRepo.CreateConversation(db, conversation); err != nil {
		// A concurrent send may have created the row first.
		existing, findErr := s.messageRepo.FindConversationByPair(db, user1, user2)
		if findErr == nil {
			return existing, nil
		}
		return nil, apperrors.InternalError(err)
	}
	return conversation, nil
}

// notifyAndDeliver runs the post-commit side effects: the coalesced
// new_messages notification and the best-effort real-time push.
func (s *messagingService) notifyAndDeliver(db *gorm.DB, recipientID, senderID string, message *models.Message, eventType string) {
	// The push below is best-effort, the ledger row is not.
	if err := s.notificationService.Notify(db, recipientID, models.NotificationTypeNewMessages, nil, &senderID); err != nil {
		logger.Error("failed to record new_messages notification",
			"recipient_id", recipientID, "error", err.Error())
	}
	s.router.SendToUser(recipientID, Event{
		Type:    eventType,
		Payload: s.messageResponse(db, message),
	})
}

func (s *messagingService) messageResponse(db *gorm.DB, message *models.Message) *dto.MessageResponse {
	resp := &dto.MessageResponse{
		ID:             message.ID,
		ConversationID: message.ConversationID,
		DealroomID:     message.DealroomID,
		SenderID:       message.SenderID,
		Content:        message.Content,
		CreatedAt:      message.CreatedAt,
	}
	if sender, err := s.userRepo.FindByID(db, message.SenderID); err == nil {
		resp.SenderName = sender.Name
	}
	return resp
}

func (s *messagingService) GetConversations(db *gorm.DB, userID string) ([]*dto.ConversationResponse, error) {
	conversations, err := s.messageRepo.FindUserConversations(db, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	result := make([]*dto.ConversationResponse, 0, len(conversations))
	for i := range conversations {
		c := &conversations[i]

		partner := c.User1
		if c.User1ID == userID {
			partner = c.User2
		}

		unread, err := s.messageRepo.UnreadCountInConversation(db, c.ID, userID)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}

		resp := &dto.ConversationResponse{
			ID:                   c.ID,
			LastMessageTimestamp: c.LastMessageTimestamp,
			UnreadCount:          unread,
		}
		if partner != nil {
			resp.PartnerID = partner.ID
			resp.PartnerName = partner.Name
		}
		if last, err := s.messageRepo.FindLastConversationMessage(db, c.ID); err == nil {
			resp.LastMessage = &dto.MessageResponse{
				ID:             last.ID,
				ConversationID: last.ConversationID,
				SenderID:       last.SenderID,
				Content:        last.Content,
				CreatedAt:      last.CreatedAt,
			}
		}
		result = append(result, resp)
	}
	return result, nil
}

func (s *messagingService) GetThread(db *gorm.DB, conversationID, userID string) (*dto.ThreadResponse, error) {
	conversation, err := s.messageRepo.FindConversationByID(db, conversationID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrConversationNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}
	if conversation.User1ID != userID && conversation.User2ID != userID {
		return nil, apperrors.ErrConversationAccessDenied
	}

	messages, err := s.messageRepo.FindConversationMessages(db, conversationID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	partner := conversation.User1
	if conversation.User1ID == userID {
		partner = conversation.User2
	}

	resp := &dto.ThreadResponse{
		ConversationID: conversationID,
		Messages:       make([]*dto.MessageResponse, 0, len(messages)),
	}
	if partner != nil {
		resp.PartnerID = partner.ID
		resp.PartnerName = partner.Name
	}
	for i := range messages {
		m := &messages[i]
		mr := &dto.MessageResponse{
			ID:             m.ID,
			ConversationID: m.ConversationID,
			SenderID:       m.SenderID,
			Content:        m.Content,
			CreatedAt:      m.CreatedAt,
		}
		if m.Sender != nil {
			mr.SenderName = m.Sender.Name
		}
		resp.Messages = append(resp.Messages, mr)
	}
	return resp, nil
}

func (s *messagingService) MarkConversationRead(db *gorm.DB, conversationID, userID string) error {
	conversation, err := s.messageRepo.FindConversationByID(db, conversationID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrConversationNotFound) {
			return apperrors.ErrNotFound(err)
		}
		return apperrors.InternalError(err)
	}
	if conversation.User1ID != userID && conversation.User2ID != userID {
		return apperrors.ErrConversationAccessDenied
	}

	tx := db.Begin()
	if tx.Error != nil {
		return apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	if err := s.messageRepo.MarkConversationRead(tx, conversationID, userID); err != nil {
		return apperrors.InternalError(err)
	}

	if err := tx.Commit().Error; err != nil {
		return apperrors.InternalError(err)
	}

	// Reading the last unread message anywhere silences the badge.
	return s.notificationService.ReconcileNewMessages(db, userID)
}
