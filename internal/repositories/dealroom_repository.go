package repositories

import (
	"errors"

	"tradeup_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrDealroomNotFound = errors.New("dealroom not found")
	ErrInviteNotFound   = errors.New("dealroom invite not found")
)

type DealroomRepository interface {
	Create(db *gorm.DB, dealroom *models.Dealroom) error
	FindByID(db *gorm.DB, id string) (*models.Dealroom, error)
	// FindByIDForUpdate takes a row lock so the caller's transaction has
	// exclusive access to the room's mutable fields until commit.
	FindByIDForUpdate(db *gorm.DB, id string) (*models.Dealroom, error)
	FindActiveBetweenUsers(db *gorm.DB, user1ID, user2ID string) (*models.Dealroom, error)
	FindUserDealrooms(db *gorm.DB, userID string) ([]models.Dealroom, error)
	Save(db *gorm.DB, dealroom *models.Dealroom) error

	AddParticipants(db *gorm.DB, participants []models.DealroomParticipant) error
	AddParticipantIfMissing(db *gorm.DB, participant *models.DealroomParticipant) error
	IsParticipant(db *gorm.DB, dealroomID, userID string) (bool, error)

	CreateInvite(db *gorm.DB, invite *models.DealroomInvite) error
	FindInviteByID(db *gorm.DB, id string) (*models.DealroomInvite, error)
	FindPendingInviteBetweenUsers(db *gorm.DB, user1ID, user2ID string) (*models.DealroomInvite, error)
	FindIncomingInvites(db *gorm.DB, userID string) ([]models.DealroomInvite, error)
	FindOutgoingInvites(db *gorm.DB, userID string) ([]models.DealroomInvite, error)
	UpdateInviteStatus(db *gorm.DB, id string, status models.InviteStatus) error
	DeleteInvite(db *gorm.DB, id string) error
}

type DealroomRepositoryImpl struct {
}

func NewDealroomRepository() DealroomRepository {
	return &DealroomRepositoryImpl{}
}

func (r *DealroomRepositoryImpl) Create(db *gorm.DB, dealroom *models.Dealroom) error {
	return db.Create(dealroom).Error
}

func (r *DealroomRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.Dealroom, error) {
	var dealroom models.Dealroom
	err := db.Preload("Buyer").Preload("Seller").
		First(&dealroom, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDealroomNotFound
		}
		return nil, err
	}
	return &dealroom, nil
}

func (r *DealroomRepositoryImpl) FindByIDForUpdate(db *gorm.DB, id string) (*models.Dealroom, error) {
	var dealroom models.Dealroom
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&dealroom, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDealroomNotFound
		}
		return nil, err
	}
	return &dealroom, nil
}

func (r *DealroomRepositoryImpl) FindActiveBetweenUsers(db *gorm.DB, user1ID, user2ID string) (*models.Dealroom, error) {
	var dealroom models.Dealroom
	err := db.Where(
		"((buyer_id = ? AND seller_id = ?) OR (buyer_id = ? AND seller_id = ?)) AND is_active = ?",
		user1ID, user2ID, user2ID, user1ID, true,
	).First(&dealroom).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDealroomNotFound
		}
		return nil, err
	}
	return &dealroom, nil
}

func (r *DealroomRepositoryImpl) FindUserDealrooms(db *gorm.DB, userID string) ([]models.Dealroom, error) {
	var dealrooms []models.Dealroom
	err := db.Preload("Buyer").Preload("Seller").
		Where("(buyer_id = ? OR seller_id = ?) AND is_active = ?", userID, userID, true).
		Order("created_at DESC").
		Find(&dealrooms).Error
	return dealrooms, err
}

func (r *DealroomRepositoryImpl) Save(db *gorm.DB, dealroom *models.Dealroom) error {
	return db.Save(dealroom).Error
}

func (r *DealroomRepositoryImpl) AddParticipants(db *gorm.DB, participants []models.DealroomParticipant) error {
	return db.Create(&participants).Error
}

func (r *DealroomRepositoryImpl) AddParticipantIfMissing(db *gorm.DB, participant *models.DealroomParticipant) error {
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(participant).Error
}

func (r *DealroomRepositoryImpl) IsParticipant(db *gorm.DB, dealroomID, userID string) (bool, error) {
	var count int64
	err := db.Model(&models.DealroomParticipant{}).
		Where("dealroom_id = ? AND user_id = ?", dealroomID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *DealroomRepositoryImpl) CreateInvite(db *gorm.DB, invite *models.DealroomInvite) error {
	return db.Create(invite).Error
}

func (r *DealroomRepositoryImpl) FindInviteByID(db *gorm.DB, id string) (*models.DealroomInvite, error) {
	var invite models.DealroomInvite
	err := db.Preload("Dealroom").Preload("Sender").Preload("Receiver").
		First(&invite, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}
	return &invite, nil
}

func (r *DealroomRepositoryImpl) FindPendingInviteBetweenUsers(db *gorm.DB, user1ID, user2ID string) (*models.DealroomInvite, error) {
	var invite models.DealroomInvite
	err := db.Where(
		"((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)) AND status = ?",
		user1ID, user2ID, user2ID, user1ID, models.InviteStatusPending,
	).First(&invite).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}
	return &invite, nil
}

func (r *DealroomRepositoryImpl) FindIncomingInvites(db *gorm.DB, userID string) ([]models.DealroomInvite, error) {
	var invites []models.DealroomInvite
	err := db.Preload("Dealroom").Preload("Sender").
		Where("receiver_id = ? AND status = ?", userID, models.InviteStatusPending).
		Order("created_at DESC").
		Find(&invites).Error
	return invites, err
}

func (r *DealroomRepositoryImpl) FindOutgoingInvites(db *gorm.DB, userID string) ([]models.DealroomInvite, error) {
	var invites []models.DealroomInvite
	err := db.Preload("Dealroom").Preload("Receiver").
		Where("sender_id = ? AND status = ?", userID, models.InviteStatusPending).
		Order("created_at DESC").
		Find(&invites).Error
	return invites, err
}

func (r *DealroomRepositoryImpl) UpdateInviteStatus(db *gorm.DB, id string, status models.InviteStatus) error {
	result := db.Model(&models.DealroomInvite{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInviteNotFound
	}
	return nil
}

func (r *DealroomRepositoryImpl) DeleteInvite(db *gorm.DB, id string) error {
	return db.Delete(&models.DealroomInvite{}, "id = ?", id).Error
}
