package repositories

import (
	"errors"
	"time"

	"tradeup_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
)

type MessageRepository interface {
	CreateConversation(db *gorm.DB, conversation *models.Conversation) error
	FindConversationByID(db *gorm.DB, id string) (*models.Conversation, error)
	// FindConversationByPair expects the pair already in canonical
	// (ascending) order.
	FindConversationByPair(db *gorm.DB, user1ID, user2ID string) (*models.Conversation, error)
	FindUserConversations(db *gorm.DB, userID string) ([]models.Conversation, error)
	TouchLastMessage(db *gorm.DB, conversationID string, ts time.Time) error

	CreateMessage(db *gorm.DB, message *models.Message) error
	FindConversationMessages(db *gorm.DB, conversationID string) ([]models.Message, error)
	FindDealroomMessages(db *gorm.DB, dealroomID string) ([]models.Message, error)
	FindLastConversationMessage(db *gorm.DB, conversationID string) (*models.Message, error)

	MarkRead(db *gorm.DB, messageID, userID string) error
	MarkConversationRead(db *gorm.DB, conversationID, userID string) error
	MarkDealroomRead(db *gorm.DB, dealroomID, userID string) error
	UnreadCountInConversation(db *gorm.DB, conversationID, userID string) (int64, error)
	// TotalUnreadForUser counts unread messages across every scope the
	// user belongs to: their conversations and their dealrooms.
	TotalUnreadForUser(db *gorm.DB, userID string) (int64, error)
}

type MessageRepositoryImpl struct {
}

func NewMessageRepository() MessageRepository {
	return &MessageRepositoryImpl{}
}

func (r *MessageRepositoryImpl) CreateConversation(db *gorm.DB, conversation *models.Conversation) error {
	return db.Create(conversation).Error
}

func (r *MessageRepositoryImpl) FindConversationByID(db *gorm.DB, id string) (*models.Conversation, error) {
	var conversation models.Conversation
	err := db.Preload("User1").Preload("User2").
		First(&conversation, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &conversation, nil
}

func (r *MessageRepositoryImpl) FindConversationByPair(db *gorm.DB, user1ID, user2ID string) (*models.Conversation, error) {
	var conversation models.Conversation
	err := db.Where("user1_id = ? AND user2_id = ?", user1ID, user2ID).
		First(&conversation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &conversation, nil
}

func (r *MessageRepositoryImpl) FindUserConversations(db *gorm.DB, userID string) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := db.Preload("User1").Preload("User2").
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("last_message_timestamp DESC").
		Find(&conversations).Error
	return conversations, err
}

func (r *MessageRepositoryImpl) TouchLastMessage(db *gorm.DB, conversationID string, ts time.Time) error {
	return db.Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Update("last_message_timestamp", ts).Error
}

func (r *MessageRepositoryImpl) CreateMessage(db *gorm.DB, message *models.Message) error {
	return db.Create(message).Error
}

func (r *MessageRepositoryImpl) FindConversationMessages(db *gorm.DB, conversationID string) ([]models.Message, error) {
	var messages []models.Message
	err := db.Preload("Sender").
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}

func (r *MessageRepositoryImpl) FindDealroomMessages(db *gorm.DB, dealroomID string) ([]models.Message, error) {
	var messages []models.Message
	err := db.Preload("Sender").
		Where("dealroom_id = ?", dealroomID).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}

func (r *MessageRepositoryImpl) FindLastConversationMessage(db *gorm.DB, conversationID string) (*models.Message, error) {
	var message models.Message
	err := db.Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return &message, nil
}

func (r *MessageRepositoryImpl) MarkRead(db *gorm.DB, messageID, userID string) error {
	read := models.MessageRead{MessageID: messageID, UserID: userID}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&read).Error
}

func (r *MessageRepositoryImpl) MarkConversationRead(db *gorm.DB, conversationID, userID string) error {
	var unreadIDs []string
	err := db.Model(&models.Message{}).
		Select("messages.id").
		Where("messages.conversation_id = ? AND messages.sender_id <> ?", conversationID, userID).
		Where("NOT EXISTS (SELECT 1 FROM message_reads mr WHERE mr.message_id = messages.id AND mr.user_id = ?)", userID).
		Find(&unreadIDs).Error
	if err != nil {
		return err
	}
	if len(unreadIDs) == 0 {
		return nil
	}

	reads := make([]models.MessageRead, 0, len(unreadIDs))
	for _, id := range unreadIDs {
		reads = append(reads, models.MessageRead{MessageID: id, UserID: userID})
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&reads).Error
}

func (r *MessageRepositoryImpl) MarkDealroomRead(db *gorm.DB, dealroomID, userID string) error {
	var unreadIDs []string
	err := db.Model(&models.Message{}).
		Select("messages.id").
		Where("messages.dealroom_id = ? AND messages.sender_id <> ?", dealroomID, userID).
		Where("NOT EXISTS (SELECT 1 FROM message_reads mr WHERE mr.message_id = messages.id AND mr.user_id = ?)", userID).
		Find(&unreadIDs).Error
	if err != nil {
		return err
	}
	if len(unreadIDs) == 0 {
		return nil
	}

	reads := make([]models.MessageRead, 0, len(unreadIDs))
	for _, id := range unreadIDs {
		reads = append(reads, models.MessageRead{MessageID: id, UserID: userID})
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&reads).Error
}

func (r *MessageRepositoryImpl) UnreadCountInConversation(db *gorm.DB, conversationID, userID string) (int64, error) {
	var count int64
	err := db.Model(&models.Message{}).
		Where("messages.conversation_id = ? AND messages.sender_id <> ?", conversationID, userID).
		Where("NOT EXISTS (SELECT 1 FROM message_reads mr WHERE mr.message_id = messages.id AND mr.user_id = ?)", userID).
		Count(&count).Error
	return count, err
}

func (r *MessageRepositoryImpl) TotalUnreadForUser(db *gorm.DB, userID string) (int64, error) {
	var conversationUnread int64
	err := db.Model(&models.Message{}).
		Joins("JOIN conversations c ON messages.conversation_id = c.id").
		Where("(c.user1_id = ? OR c.user2_id = ?) AND messages.sender_id <> ?", userID, userID, userID).
		Where("NOT EXISTS (SELECT 1 FROM message_reads mr WHERE mr.message_id = messages.id AND mr.user_id = ?)", userID).
		Count(&conversationUnread).Error
	if err != nil {
		return 0, err
	}

	var dealroomUnread int64
	err = db.Model(&models.Message{}).
		Joins("JOIN dealroom_participants dp ON messages.dealroom_id = dp.dealroom_id").
		Where("dp.user_id = ? AND messages.sender_id <> ?", userID, userID).
		Where("NOT EXISTS (SELECT 1 FROM message_reads mr WHERE mr.message_id = messages.id AND mr.user_id = ?)", userID).
		Count(&dealroomUnread).Error
	if err != nil {
		return 0, err
	}

	return conversationUnread + dealroomUnread, nil
}
