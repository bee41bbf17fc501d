package services

import (
	"tradeup_backend/internal/models"
	"tradeup_backend/internal/repositories"
	"tradeup_backend/internal/services/dto"
	"tradeup_backend/pkg/apperrors"

	"gorm.io/gorm"
)

type ContactService interface {
	SendRequest(db *gorm.DB, senderID string, req *dto.SendContactRequestRequest) (*dto.ContactRequestResponse, error)
	AcceptRequest(db *gorm.DB, requestID, userID string) error
	RejectRequest(db *gorm.DB, requestID, userID string) error
	GetContacts(db *gorm.DB, userID string) ([]*dto.ContactResponse, error)
	GetIncomingRequests(db *gorm.DB, userID string) ([]*dto.ContactRequestResponse, error)
}

type contactService struct {
	contactRepo         repositories.ContactRepository
	userRepo            repositories.UserRepository
	notificationService NotificationService
}

func NewContactService(
	contactRepo repositories.ContactRepository,
	userRepo repositories.UserRepository,
	notificationService NotificationService,
) ContactService {
	return &contactService{
		contactRepo:         contactRepo,
		userRepo:            userRepo,
		notificationService: notificationService,
	}
}

func (s *contactService) SendRequest(db *gorm.DB, senderID string, req *dto.SendContactRequestRequest) (*dto.ContactRequestResponse, error) {
	if req.ReceiverID == senderID {
		return nil, apperrors.NewBadRequestError("Cannot send a contact request to yourself")
	}

	if _, err := s.userRepo.FindByID(db, req.ReceiverID); err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}

	areContacts, err := s.contactRepo.AreContacts(db, senderID, req.ReceiverID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if areContacts {
		return nil, apperrors.ErrConflict(nil, "contact", "User is already a contact")
	}

	if _, err := s.contactRepo.FindPendingRequestBetween(db, senderID, req.ReceiverID); err == nil {
		return nil, apperrors.ErrConflict(nil, "contact", "A pending contact request already exists")
	} else if !apperrors.Is(err, repositories.ErrContactRequestNotFound) {
		return nil, apperrors.InternalError(err)
	}

	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	request := &models.ContactRequest{
		SenderID:   senderID,
		ReceiverID: req.ReceiverID,
		Status:     models.ContactRequestPending,
	}
	if err := s.contactRepo.CreateRequest(tx, request); err != nil {
		return nil, apperrors.InternalError(err)
	}

	if err := s.notificationService.Notify(tx, req.ReceiverID,
		models.NotificationTypeContactRequest, &request.ID, &senderID); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.ContactRequestResponse{
		ID:        request.ID,
		SenderID:  senderID,
		Status:    string(request.Status),
		CreatedAt: request.CreatedAt,
	}, nil
}

func (s *contactService) AcceptRequest(db *gorm.DB, requestID, userID string) error {
	request, err := s.contactRepo.FindRequestByID(db, requestID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrContactRequestNotFound) {
			return apperrors.ErrNotFound(err)
		}
		return apperrors.InternalError(err)
	}
	if request.ReceiverID != userID {
		return apperrors.NewForbiddenError("Only the recipient can accept this request")
	}
	if request.Status != models.ContactRequestPending {
		return apperrors.NewBadRequestError("Contact request is not pending")
	}

	tx := db.Begin()
	if tx.Error != nil {
		return apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	if err := s.contactRepo.UpdateRequestStatus(tx, requestID, models.ContactRequestAccepted); err != nil {
		return apperrors.InternalError(err)
	}
	if err := s.contactRepo.AddContactPair(tx, request.SenderID, request.ReceiverID); err != nil {
		return apperrors.InternalError(err)
	}
	if err := s.notificationService.Notify(tx, request.SenderID,
		models.NotificationTypeContactAccepted, &request.ID, &userID); err != nil {
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *contactService) RejectRequest(db *gorm.DB, requestID, userID string) error {
	request, err := s.contactRepo.FindRequestByID(db, requestID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrContactRequestNotFound) {
			return apperrors.ErrNotFound(err)
		}
		return apperrors.InternalError(err)
	}
	if request.ReceiverID != userID {
		return apperrors.NewForbiddenError("Only the recipient can reject this request")
	}
	if request.Status != models.ContactRequestPending {
		return apperrors.NewBadRequestError("Contact request is not pending")
	}

	if err := s.contactRepo.UpdateRequestStatus(db, requestID, models.ContactRequestRejected); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *contactService) GetContacts(db *gorm.DB, userID string) ([]*dto.ContactResponse, error) {
	contacts, err := s.contactRepo.FindUserContacts(db, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	result := make([]*dto.ContactResponse, 0, len(contacts))
	for i := range contacts {
		c := &contacts[i]
		resp := &dto.ContactResponse{
			UserID:  c.ContactID,
			AddedAt: c.CreatedAt,
		}
		if c.ContactUser != nil {
			resp.Name = c.ContactUser.Name
			resp.Email = c.ContactUser.Email
		}
		result = append(result, resp)
	}
	return result, nil
}

func (s *contactService) GetIncomingRequests(db *gorm.DB, userID string) ([]*dto.ContactRequestResponse, error) {
	requests, err := s.contactRepo.FindIncomingRequests(db, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	result := make([]*dto.ContactRequestResponse, 0, len(requests))
	for i := range requests {
		r := &requests[i]
		resp := &dto.ContactRequestResponse{
			ID:        r.ID,
			SenderID:  r.SenderID,
			Status:    string(r.Status),
			CreatedAt: r.CreatedAt,
		}
		if r.Sender != nil {
			resp.SenderName = r.Sender.Name
		}
		result = append(result, resp)
	}
	return result, nil
}
