package repositories

import (
	"errors"
	"time"

	"tradeup_backend/internal/models"

	"gorm.io/gorm"
)

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationRepository interface {
	Create(db *gorm.DB, notification *models.Notification) error
	FindByID(db *gorm.DB, id string) (*models.Notification, error)
	// FindUnreadByType returns the user's unread notification of the
	// given type, used by the new_messages coalescing check.
	FindUnreadByType(db *gorm.DB, userID, notificationType string) (*models.Notification, error)
	FindUnread(db *gorm.DB, userID string) ([]models.Notification, error)
	Touch(db *gorm.DB, id string) error
	MarkAsRead(db *gorm.DB, id string) error
	MarkAllAsRead(db *gorm.DB, userID string) error
	MarkTypeAsRead(db *gorm.DB, userID, notificationType string) error
}

type NotificationRepositoryImpl struct {
}

func NewNotificationRepository() NotificationRepository {
	return &NotificationRepositoryImpl{}
}

func (r *NotificationRepositoryImpl) Create(db *gorm.DB, notification *models.Notification) error {
	return db.Create(notification).Error
}

func (r *NotificationRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.Notification, error) {
	var notification models.Notification
	err := db.First(&notification, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &notification, nil
}

func (r *NotificationRepositoryImpl) FindUnreadByType(db *gorm.DB, userID, notificationType string) (*models.Notification, error) {
	var notification models.Notification
	err := db.Where("user_id = ? AND type = ? AND is_read = ?", userID, notificationType, false).
		First(&notification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &notification, nil
}

func (r *NotificationRepositoryImpl) FindUnread(db *gorm.DB, userID string) ([]models.Notification, error) {
	var notifications []models.Notification
	err := db.Where("user_id = ? AND is_read = ?", userID, false).
		Order("updated_at DESC").
		Find(&notifications).Error
	return notifications, err
}

// Touch bumps the notification's updated_at so it sorts back to the top.
func (r *NotificationRepositoryImpl) Touch(db *gorm.DB, id string) error {
	return db.Model(&models.Notification{}).
		Where("id = ?", id).
		Update("updated_at", time.Now()).Error
}

func (r *NotificationRepositoryImpl) MarkAsRead(db *gorm.DB, id string) error {
	now := time.Now()
	result := db.Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": &now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepositoryImpl) MarkAllAsRead(db *gorm.DB, userID string) error {
	now := time.Now()
	return db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": &now,
		}).Error
}

func (r *NotificationRepositoryImpl) MarkTypeAsRead(db *gorm.DB, userID, notificationType string) error {
	now := time.Now()
	return db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ? AND is_read = ?", userID, notificationType, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": &now,
		}).Error
}
