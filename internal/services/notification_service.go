package services

import (
	"fmt"
	"sync"

	"tradeup_backend/internal/models"
	"tradeup_backend/internal/repositories"
	"tradeup_backend/internal/services/dto"
	"tradeup_backend/pkg/apperrors"

	"gorm.io/gorm"
)

type NotificationService interface {
	// Notify records an unread notification. For new_messages it
	// coalesces: an existing unread singleton gets its timestamp
	// refreshed instead of a duplicate insert.
	Notify(db *gorm.DB, userID, notificationType string, sourceID, senderID *string) error
	ListUnread(db *gorm.DB, userID string) ([]*dto.NotificationResponse, error)
	MarkAllRead(db *gorm.DB, userID string) error
	// ReconcileNewMessages flips the new_messages singleton to read
	// once the user has no unread messages left in any scope.
	ReconcileNewMessages(db *gorm.DB, userID string) error
}

type notificationService struct {
	notificationRepo repositories.NotificationRepository
	messageRepo      repositories.MessageRepository
	userRepo         repositories.UserRepository
	dealroomRepo     repositories.DealroomRepository

	// Serializes the check-then-insert-or-touch for new_messages per
	// user. Two near-simultaneous sends to the same user must not both
	// miss the existing singleton and insert twice.
	userLocks sync.Map
}

func NewNotificationService(
	notificationRepo repositories.NotificationRepository,
	messageRepo repositories.MessageRepository,
	userRepo repositories.UserRepository,
	dealroomRepo repositories.DealroomRepository,
) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		messageRepo:      messageRepo,
		userRepo:         userRepo,
		dealroomRepo:     dealroomRepo,
	}
}

func (s *notificationService) lockFor(userID string) *sync.Mutex {
	mu, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (s *notificationService) Notify(db *gorm.DB, userID, notificationType string, sourceID, senderID *string) error {
	if notificationType != models.NotificationTypeNewMessages {
		notification := &models.Notification{
			UserID:   userID,
			Type:     notificationType,
			SourceID: sourceID,
			SenderID: senderID,
		}
		if err := s.notificationRepo.Create(db, notification); err != nil {
			return apperrors.InternalError(err)
		}
		return nil
	}

	mu := s.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	tx := db.Begin()
	if tx.Error != nil {
		return apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	existing, err := s.notificationRepo.FindUnreadByType(tx, userID, models.NotificationTypeNewMessages)
	switch {
	case err == nil:
		if err := s.notificationRepo.Touch(tx, existing.ID); err != nil {
			return apperrors.InternalError(err)
		}
	case apperrors.Is(err, repositories.ErrNotificationNotFound):
		notification := &models.Notification{
			UserID:   userID,
			Type:     models.NotificationTypeNewMessages,
			SourceID: sourceID,
			SenderID: senderID,
		}
		if err := s.notificationRepo.Create(tx, notification); err != nil {
			return apperrors.InternalError(err)
		}
	default:
		return apperrors.InternalError(err)
	}

	if err := tx.Commit().Error; err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *notificationService) ListUnread(db *gorm.DB, userID string) ([]*dto.NotificationResponse, error) {
	notifications, err := s.notificationRepo.FindUnread(db, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	result := make([]*dto.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		n := &notifications[i]

		resp, ok, err := s.enrich(db, n)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Source entity is gone or the badge is stale. Heal the
			// row so it stops resurfacing.
			if err := s.notificationRepo.MarkAsRead(db, n.ID); err != nil {
				return nil, apperrors.InternalError(err)
			}
			continue
		}
		result = append(result, resp)
	}
	return result, nil
}

// enrich denormalizes context from the referenced source entity.
// ok=false means the notification is orphaned and must be healed.
func (s *notificationService) enrich(db *gorm.DB, n *models.Notification) (*dto.NotificationResponse, bool, error) {
	resp := &dto.NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		SourceID:  n.SourceID,
		SenderID:  n.SenderID,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}

	if n.SenderID != nil {
		sender, err := s.userRepo.FindByID(db, *n.SenderID)
		if err != nil {
			if apperrors.Is(err, repositories.ErrUserNotFound) {
				return nil, false, nil
			}
			return nil, false, apperrors.InternalError(err)
		}
		resp.SenderName = sender.Name
	}

	switch n.Type {
	case models.NotificationTypeContactRequest:
		if resp.SenderName == "" {
			return nil, false, nil
		}
		resp.Details = fmt.Sprintf("%s sent you a contact request", resp.SenderName)

	case models.NotificationTypeContactAccepted:
		if resp.SenderName == "" {
			return nil, false, nil
		}
		resp.Details = fmt.Sprintf("%s accepted your contact request", resp.SenderName)

	case models.NotificationTypeDealroomInvite, models.NotificationTypeDealroomAccepted:
		if n.SourceID == nil {
			return nil, false, nil
		}
		dealroom, err := s.dealroomRepo.FindByID(db, *n.SourceID)
		if err != nil {
			if apperrors.Is(err, repositories.ErrDealroomNotFound) {
				return nil, false, nil
			}
			return nil, false, apperrors.InternalError(err)
		}
		if n.Type == models.NotificationTypeDealroomInvite {
			resp.Details = fmt.Sprintf("%s invited you to %q", resp.SenderName, dealroom.Title)
		} else {
			resp.Details = fmt.Sprintf("%s accepted your invite to %q", resp.SenderName, dealroom.Title)
		}

	case models.NotificationTypeNewMessages:
		unread, err := s.messageRepo.TotalUnreadForUser(db, n.UserID)
		if err != nil {
			return nil, false, apperrors.InternalError(err)
		}
		if unread == 0 {
			// Everything was read without the panel being opened.
			return nil, false, nil
		}
		resp.Details = fmt.Sprintf("You have %d unread messages", unread)

	default:
		return nil, false, nil
	}

	return resp, true, nil
}

func (s *notificationService) MarkAllRead(db *gorm.DB, userID string) error {
	if err := s.notificationRepo.MarkAllAsRead(db, userID); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *notificationService) ReconcileNewMessages(db *gorm.DB, userID string) error {
	unread, err := s.messageRepo.TotalUnreadForUser(db, userID)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if unread > 0 {
		return nil
	}
	if err := s.notificationRepo.MarkTypeAsRead(db, userID, models.NotificationTypeNewMessages); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}
