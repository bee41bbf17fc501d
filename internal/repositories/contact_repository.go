package repositories

import (
	"errors"

	"tradeup_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrContactRequestNotFound = errors.New("contact request not found")
	ErrContactRequestExists   = errors.New("contact request already exists")
)

type ContactRepository interface {
	AreContacts(db *gorm.DB, userID, contactID string) (bool, error)
	AddContactPair(db *gorm.DB, userID, contactID string) error
	FindUserContacts(db *gorm.DB, userID string) ([]models.Contact, error)

	CreateRequest(db *gorm.DB, request *models.ContactRequest) error
	FindRequestByID(db *gorm.DB, id string) (*models.ContactRequest, error)
	FindPendingRequestBetween(db *gorm.DB, user1ID, user2ID string) (*models.ContactRequest, error)
	FindIncomingRequests(db *gorm.DB, userID string) ([]models.ContactRequest, error)
	UpdateRequestStatus(db *gorm.DB, id string, status models.ContactRequestStatus) error
}

type ContactRepositoryImpl struct {
}

func NewContactRepository() ContactRepository {
	return &ContactRepositoryImpl{}
}

func (r *ContactRepositoryImpl) AreContacts(db *gorm.DB, userID, contactID string) (bool, error) {
	var count int64
	err := db.Model(&models.Contact{}).
		Where("user_id = ? AND contact_id = ?", userID, contactID).
		Count(&count).Error
	return count > 0, err
}

// AddContactPair inserts both directions of the link.
func (r *ContactRepositoryImpl) AddContactPair(db *gorm.DB, userID, contactID string) error {
	contacts := []models.Contact{
		{UserID: userID, ContactID: contactID},
		{UserID: contactID, ContactID: userID},
	}
	return db.Create(&contacts).Error
}

func (r *ContactRepositoryImpl) FindUserContacts(db *gorm.DB, userID string) ([]models.Contact, error) {
	var contacts []models.Contact
	err := db.Preload("ContactUser").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&contacts).Error
	return contacts, err
}

func (r *ContactRepositoryImpl) CreateRequest(db *gorm.DB, request *models.ContactRequest) error {
	return db.Create(request).Error
}

func (r *ContactRepositoryImpl) FindRequestByID(db *gorm.DB, id string) (*models.ContactRequest, error) {
	var request models.ContactRequest
	err := db.Preload("Sender").Preload("Receiver").
		First(&request, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContactRequestNotFound
		}
		return nil, err
	}
	return &request, nil
}

func (r *ContactRepositoryImpl) FindPendingRequestBetween(db *gorm.DB, user1ID, user2ID string) (*models.ContactRequest, error) {
	var request models.ContactRequest
	err := db.Where(
		"((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)) AND status = ?",
		user1ID, user2ID, user2ID, user1ID, models.ContactRequestPending,
	).First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContactRequestNotFound
		}
		return nil, err
	}
	return &request, nil
}

func (r *ContactRepositoryImpl) FindIncomingRequests(db *gorm.DB, userID string) ([]models.ContactRequest, error) {
	var requests []models.ContactRequest
	err := db.Preload("Sender").
		Where("receiver_id = ? AND status = ?", userID, models.ContactRequestPending).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

func (r *ContactRepositoryImpl) UpdateRequestStatus(db *gorm.DB, id string, status models.ContactRequestStatus) error {
	result := db.Model(&models.ContactRequest{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrContactRequestNotFound
	}
	return nil
}
