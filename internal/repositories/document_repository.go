package repositories

import (
	"errors"

	"tradeup_backend/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrDocumentNotFound = errors.New("document not found")

type DocumentRepository interface {
	Create(db *gorm.DB, document *models.Document) error
	FindByID(db *gorm.DB, id string) (*models.Document, error)
	// FindVisible applies the read-time visibility rule: the viewer
	// always sees their own uploads, public ones otherwise.
	FindVisible(db *gorm.DB, dealroomID, viewerID string) ([]models.Document, error)
	// CountVerifiedPrivate counts verified stage_0-era uploads for one
	// uploader, the stage_0 advance precondition.
	CountVerifiedPrivate(db *gorm.DB, dealroomID, uploaderID string) (int64, error)
	UpdateVerification(db *gorm.DB, id string, status models.VerificationStatus, response datatypes.JSON) error
}

type DocumentRepositoryImpl struct {
}

func NewDocumentRepository() DocumentRepository {
	return &DocumentRepositoryImpl{}
}

func (r *DocumentRepositoryImpl) Create(db *gorm.DB, document *models.Document) error {
	return db.Create(document).Error
}

func (r *DocumentRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.Document, error) {
	var document models.Document
	err := db.First(&document, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return &document, nil
}

func (r *DocumentRepositoryImpl) FindVisible(db *gorm.DB, dealroomID, viewerID string) ([]models.Document, error) {
	var documents []models.Document
	err := db.Preload("Uploader").
		Where("dealroom_id = ? AND (is_visible_to_all = ? OR uploader_id = ?)", dealroomID, true, viewerID).
		Order("created_at ASC").
		Find(&documents).Error
	return documents, err
}

func (r *DocumentRepositoryImpl) CountVerifiedPrivate(db *gorm.DB, dealroomID, uploaderID string) (int64, error) {
	var count int64
	err := db.Model(&models.Document{}).
		Where("dealroom_id = ? AND uploader_id = ? AND verification_status = ? AND is_visible_to_all = ?",
			dealroomID, uploaderID, models.VerificationVerified, false).
		Count(&count).Error
	return count, err
}

func (r *DocumentRepositoryImpl) UpdateVerification(db *gorm.DB, id string, status models.VerificationStatus, response datatypes.JSON) error {
	result := db.Model(&models.Document{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"verification_status": status,
			"oracle_response":     response,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDocumentNotFound
	}
	return nil
}
