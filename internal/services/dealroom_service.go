package services

import (
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"time"

	"tradeup_backend/internal/logger"
	"tradeup_backend/internal/models"
	"tradeup_backend/internal/repositories"
	"tradeup_backend/internal/services/dto"
	"tradeup_backend/internal/storage"
	"tradeup_backend/internal/verification"
	"tradeup_backend/pkg/apperrors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DealroomService interface {
	// CreateDealroom opens a room with a contact: the creator becomes
	// buyer, the invited contact seller. The invite, both participant
	// rows and the invite notification are created in one transaction.
	CreateDealroom(db *gorm.DB, creatorID string, req *dto.CreateDealroomRequest) (*dto.DealroomResponse, error)
	GetDealroomDetails(db *gorm.DB, dealroomID, userID string) (*dto.DealroomDetailsResponse, error)
	GetUserDealrooms(db *gorm.DB, userID string) ([]*dto.DealroomResponse, error)
	// AdvanceStage evaluates one lifecycle action under the room's row
	// lock. A rejected action leaves the room untouched.
	AdvanceStage(db *gorm.DB, dealroomID, userID string, req *dto.AdvanceStageRequest) (*dto.AdvanceStageResponse, error)
	UploadDocument(db *gorm.DB, dealroomID, uploaderID string, file *multipart.FileHeader) (*dto.DocumentResponse, error)

	GetIncomingInvites(db *gorm.DB, userID string) ([]*dto.InviteResponse, error)
	GetOutgoingInvites(db *gorm.DB, userID string) ([]*dto.InviteResponse, error)
	AcceptInvite(db *gorm.DB, inviteID, userID string) error
	RejectInvite(db *gorm.DB, inviteID, userID string) error
}

type dealroomService struct {
	dealroomRepo        repositories.DealroomRepository
	documentRepo        repositories.DocumentRepository
	userRepo            repositories.UserRepository
	contactRepo         repositories.ContactRepository
	messageRepo         repositories.MessageRepository
	notificationService NotificationService
	storage             storage.Storage
	oracle              verification.Oracle
	oracleTimeout       time.Duration
}

func NewDealroomService(
	dealroomRepo repositories.DealroomRepository,
	documentRepo repositories.DocumentRepository,
	userRepo repositories.UserRepository,
	contactRepo repositories.ContactRepository,
	messageRepo repositories.MessageRepository,
	notificationService NotificationService,
	store storage.Storage,
	oracle verification.Oracle,
	oracleTimeout time.Duration,
) DealroomService {
	return &dealroomService{
		dealroomRepo:        dealroomRepo,
		documentRepo:        documentRepo,
		userRepo:            userRepo,
		contactRepo:         contactRepo,
		messageRepo:         messageRepo,
		notificationService: notificationService,
		storage:             store,
		oracle:              oracle,
		oracleTimeout:       oracleTimeout,
	}
}

func (s *dealroomService) CreateDealroom(db *gorm.DB, creatorID string, req *dto.CreateDealroomRequest) (*dto.DealroomResponse, error) {
	if req.ContactID == creatorID {
		return nil, apperrors.ErrSelfDealroom
	}

	creator, err := s.userRepo.FindByID(db, creatorID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	invited, err := s.userRepo.FindByID(db, req.ContactID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}

	areContacts, err := s.contactRepo.AreContacts(db, creatorID, req.ContactID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if !areContacts {
		return nil, apperrors.ErrNotAContact
	}

	if _, err := s.dealroomRepo.FindActiveBetweenUsers(db, creatorID, req.ContactID); err == nil {
		return nil, apperrors.ErrConflict(nil, "dealroom",
			"An active dealroom already exists with this contact")
	} else if !apperrors.Is(err, repositories.ErrDealroomNotFound) {
		return nil, apperrors.InternalError(err)
	}

	if _, err := s.dealroomRepo.FindPendingInviteBetweenUsers(db, creatorID, req.ContactID); err == nil {
		return nil, apperrors.ErrConflict(nil, "dealroom",
			"A pending dealroom invite already exists between you and this contact")
	} else if !apperrors.Is(err, repositories.ErrInviteNotFound) {
		return nil, apperrors.InternalError(err)
	}

	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	buyerID, sellerID := creatorID, req.ContactID
	if models.DealRole(req.Role) == models.DealRoleSeller {
		buyerID, sellerID = req.ContactID, creatorID
	}

	dealroom := &models.Dealroom{
		Title:           fmt.Sprintf("Deal: %s & %s", creator.Name, invited.Name),
		CreatorID:       creatorID,
		BuyerID:         buyerID,
		SellerID:        sellerID,
		Stage:           models.DealStage0,
		ContractDetails: datatypes.JSON([]byte("{}")),
		IsActive:        true,
	}
	if err := s.dealroomRepo.Create(tx, dealroom); err != nil {
		return nil, apperrors.InternalError(err)
	}

	participants := []models.DealroomParticipant{
		{DealroomID: dealroom.ID, UserID: buyerID, Role: models.DealRoleBuyer},
		{DealroomID: dealroom.ID, UserID: sellerID, Role: models.DealRoleSeller},
	}
	if err := s.dealroomRepo.AddParticipants(tx, participants); err != nil {
		return nil, apperrors.InternalError(err)
	}

	invite := &models.DealroomInvite{
		DealroomID: dealroom.ID,
		SenderID:   creatorID,
		ReceiverID: req.ContactID,
		Status:     models.InviteStatusPending,
	}
	if err := s.dealroomRepo.CreateInvite(tx, invite); err != nil {
		return nil, apperrors.InternalError(err)
	}

	if err := s.notificationService.Notify(tx, req.ContactID,
		models.NotificationTypeDealroomInvite, &dealroom.ID, &creatorID); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.DealroomResponse{
		ID:         dealroom.ID,
		Title:      dealroom.Title,
		BuyerID:    dealroom.BuyerID,
		BuyerName:  creator.Name,
		SellerID:   dealroom.SellerID,
		SellerName: invited.Name,
		Stage:      string(dealroom.Stage),
		IsActive:   dealroom.IsActive,
		CreatedAt:  dealroom.CreatedAt,
	}, nil
}

func (s *dealroomService) GetDealroomDetails(db *gorm.DB, dealroomID, userID string) (*dto.DealroomDetailsResponse, error) {
	dealroom, err := s.dealroomRepo.FindByID(db, dealroomID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrDealroomNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}

	isParticipant, err := s.dealroomRepo.IsParticipant(db, dealroomID, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if !isParticipant {
		return nil, apperrors.ErrNotParticipant
	}

	documents, err := s.documentRepo.FindVisible(db, dealroomID, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	messages, err := s.messageRepo.FindDealroomMessages(db, dealroomID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	// Fetching the room is the only way to read its chat, so viewing it
	// consumes the unread state and the new_messages badge follows.
	if err := s.messageRepo.MarkDealroomRead(db, dealroomID, userID); err != nil {
		return nil, apperrors.InternalError(err)
	}
	if err := s.notificationService.ReconcileNewMessages(db, userID); err != nil {
		logger.Error("failed to reconcile new_messages after dealroom view",
			"user_id", userID, "error", err.Error())
	}

	resp := &dto.DealroomDetailsResponse{
		DealroomResponse: *s.dealroomResponse(dealroom),
		FinalGreenLight:  dealroom.FinalGreenLight,
		ContractDetails:  decodeContract(dealroom.ContractDetails),
		Documents:        make([]*dto.DocumentResponse, 0, len(documents)),
		Messages:         make([]*dto.MessageResponse, 0, len(messages)),
	}
	for i := range documents {
		resp.Documents = append(resp.Documents, documentResponse(&documents[i]))
	}
	for i := range messages {
		m := &messages[i]
		mr := &dto.MessageResponse{
			ID:         m.ID,
			DealroomID: m.DealroomID,
			SenderID:   m.SenderID,
			Content:    m.Content,
			CreatedAt:  m.CreatedAt,
		}
		if m.Sender != nil {
			mr.SenderName = m.Sender.Name
		}
		resp.Messages = append(resp.Messages, mr)
	}
	return resp, nil
}

func (s *dealroomService) GetUserDealrooms(db *gorm.DB, userID string) ([]*dto.DealroomResponse, error) {
	dealrooms, err := s.dealroomRepo.FindUserDealrooms(db, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	result := make([]*dto.DealroomResponse, 0, len(dealrooms))
	for i := range dealrooms {
		result = append(result, s.dealroomResponse(&dealrooms[i]))
	}
	return result, nil
}

func (s *dealroomService) AdvanceStage(db *gorm.DB, dealroomID, userID string, req *dto.AdvanceStageRequest) (*dto.AdvanceStageResponse, error) {
	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	// Row lock: the evaluate-and-commit sequence below must not race a
	// concurrent action on the same room.
	dealroom, err := s.dealroomRepo.FindByIDForUpdate(tx, dealroomID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrDealroomNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}

	var role models.DealRole
	switch userID {
	case dealroom.BuyerID:
		role = models.DealRoleBuyer
	case dealroom.SellerID:
		role = models.DealRoleSeller
	default:
		return nil, apperrors.ErrNotParticipant
	}

	snapshot := StageSnapshot{
		Stage:           dealroom.Stage,
		BuyerReady:      dealroom.BuyerReady,
		SellerReady:     dealroom.SellerReady,
		FinalGreenLight: dealroom.FinalGreenLight,
		Contract:        decodeContract(dealroom.ContractDetails),
	}
	if dealroom.Stage == models.DealStage0 {
		snapshot.BuyerVerifiedPrivate, err = s.documentRepo.CountVerifiedPrivate(tx, dealroomID, dealroom.BuyerID)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		snapshot.SellerVerifiedPrivate, err = s.documentRepo.CountVerifiedPrivate(tx, dealroomID, dealroom.SellerID)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
	}

	outcome, err := EvaluateStageAction(snapshot, role, StageAction(req.Action), req.ContractData)
	if err != nil {
		return nil, err
	}

	dealroom.Stage = outcome.Stage
	dealroom.BuyerReady = outcome.BuyerReady
	dealroom.SellerReady = outcome.SellerReady
	dealroom.FinalGreenLight = outcome.FinalGreenLight
	if outcome.Contract != nil {
		raw, err := json.Marshal(outcome.Contract)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		dealroom.ContractDetails = datatypes.JSON(raw)
	}
	if outcome.Closed {
		dealroom.IsActive = false
	}

	if err := s.dealroomRepo.Save(tx, dealroom); err != nil {
		return nil, apperrors.InternalError(err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.AdvanceStageResponse{
		Message:  outcome.Message,
		NewStage: string(outcome.Stage),
		Advanced: outcome.Advanced,
	}, nil
}

func (s *dealroomService) UploadDocument(db *gorm.DB, dealroomID, uploaderID string, file *multipart.FileHeader) (*dto.DocumentResponse, error) {
	dealroom, err := s.dealroomRepo.FindByID(db, dealroomID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrDealroomNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}
	if dealroom.Stage == models.DealStageClosed {
		return nil, apperrors.ErrDealroomClosed
	}

	isParticipant, err := s.dealroomRepo.IsParticipant(db, dealroomID, uploaderID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if !isParticipant {
		return nil, apperrors.ErrNotParticipant
	}

	src, err := file.Open()
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	storagePath := filepath.Join("dealrooms", dealroomID,
		fmt.Sprintf("%s_%s", uuid.New().String(), filepath.Base(file.Filename)))
	if err := s.storage.Save(context.Background(), storagePath, src, contentType); err != nil {
		return nil, apperrors.InternalError(err)
	}

	document := &models.Document{
		DealroomID: dealroomID,
		UploaderID: uploaderID,
		FileName:   file.Filename,
		FilePath:   storagePath,
		MimeType:   contentType,
		SizeBytes:  file.Size,
		// Visibility is decided once, by the stage at upload time.
		// Retroactive visibility for the owner is a read-time rule.
		IsVisibleToAll:     dealroom.Stage != models.DealStage0,
		VerificationStatus: models.VerificationPending,
	}
	if err := s.documentRepo.Create(db, document); err != nil {
		return nil, apperrors.InternalError(err)
	}

	// Resolve the verdict out-of-line; no dealroom lock is held while
	// the oracle runs.
	go s.runVerification(db, document.ID, document.FileName, document.SizeBytes)

	return documentResponse(document), nil
}

// runVerification calls the oracle under a timeout and patches the
// verdict into the document row. Timeout or error means flagged, never
// pending forever.
func (s *dealroomService) runVerification(db *gorm.DB, documentID, fileName string, sizeBytes int64) {
	ctx, cancel := context.WithTimeout(context.Background(), s.oracleTimeout)
	defer cancel()

	start := time.Now()
	verdict, err := s.oracle.Verify(ctx, documentID, fileName, sizeBytes)

	status := models.VerificationFlagged
	if err != nil {
		verdict = &verification.Verdict{
			Status: verification.VerdictFlagged,
			Reason: "verification service unavailable",
		}
	} else if verdict.Status == verification.VerdictVerified {
		status = models.VerificationVerified
	}

	raw, marshalErr := json.Marshal(verdict)
	if marshalErr != nil {
		raw = []byte(`{"status":"flagged","reason":"verification service unavailable"}`)
	}

	if updateErr := s.documentRepo.UpdateVerification(db, documentID, status, datatypes.JSON(raw)); updateErr != nil {
		logger.Error("failed to record oracle verdict",
			"document_id", documentID, "error", updateErr.Error())
		return
	}
	logger.OracleLog(documentID, string(status), time.Since(start), err)
}

func (s *dealroomService) GetIncomingInvites(db *gorm.DB, userID string) ([]*dto.InviteResponse, error) {
	invites, err := s.dealroomRepo.FindIncomingInvites(db, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return inviteResponses(invites), nil
}

func (s *dealroomService) GetOutgoingInvites(db *gorm.DB, userID string) ([]*dto.InviteResponse, error) {
	invites, err := s.dealroomRepo.FindOutgoingInvites(db, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return inviteResponses(invites), nil
}

func (s *dealroomService) AcceptInvite(db *gorm.DB, inviteID, userID string) error {
	invite, err := s.dealroomRepo.FindInviteByID(db, inviteID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrInviteNotFound) {
			return apperrors.ErrNotFound(err)
		}
		return apperrors.InternalError(err)
	}
	if invite.ReceiverID != userID {
		return apperrors.NewForbiddenError("Only the invited user can accept this invite")
	}
	if invite.Status != models.InviteStatusPending {
		return apperrors.NewBadRequestError("Invite is not pending")
	}

	dealroom, err := s.dealroomRepo.FindByID(db, invite.DealroomID)
	if err != nil {
		return apperrors.InternalError(err)
	}
	role := models.DealRoleSeller
	if dealroom.BuyerID == userID {
		role = models.DealRoleBuyer
	}

	tx := db.Begin()
	if tx.Error != nil {
		return apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	if err := s.dealroomRepo.UpdateInviteStatus(tx, inviteID, models.InviteStatusAccepted); err != nil {
		return apperrors.InternalError(err)
	}
	// Participant rows are pre-created with the room, so accept is
	// idempotent here.
	participant := &models.DealroomParticipant{
		DealroomID: invite.DealroomID,
		UserID:     userID,
		Role:       role,
	}
	if err := s.dealroomRepo.AddParticipantIfMissing(tx, participant); err != nil {
		return apperrors.InternalError(err)
	}

	if err := s.notificationService.Notify(tx, invite.SenderID,
		models.NotificationTypeDealroomAccepted, &invite.DealroomID, &userID); err != nil {
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *dealroomService) RejectInvite(db *gorm.DB, inviteID, userID string) error {
	invite, err := s.dealroomRepo.FindInviteByID(db, inviteID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrInviteNotFound) {
			return apperrors.ErrNotFound(err)
		}
		return apperrors.InternalError(err)
	}
	if invite.ReceiverID != userID {
		return apperrors.NewForbiddenError("Only the invited user can reject this invite")
	}
	if invite.Status != models.InviteStatusPending {
		return apperrors.NewBadRequestError("Invite is not pending")
	}

	if err := s.dealroomRepo.DeleteInvite(db, inviteID); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *dealroomService) dealroomResponse(dealroom *models.Dealroom) *dto.DealroomResponse {
	resp := &dto.DealroomResponse{
		ID:          dealroom.ID,
		Title:       dealroom.Title,
		BuyerID:     dealroom.BuyerID,
		SellerID:    dealroom.SellerID,
		Stage:       string(dealroom.Stage),
		BuyerReady:  dealroom.BuyerReady,
		SellerReady: dealroom.SellerReady,
		IsActive:    dealroom.IsActive,
		CreatedAt:   dealroom.CreatedAt,
	}
	if dealroom.Buyer != nil {
		resp.BuyerName = dealroom.Buyer.Name
	}
	if dealroom.Seller != nil {
		resp.SellerName = dealroom.Seller.Name
	}
	return resp
}

func documentResponse(document *models.Document) *dto.DocumentResponse {
	resp := &dto.DocumentResponse{
		ID:                 document.ID,
		DealroomID:         document.DealroomID,
		UploaderID:         document.UploaderID,
		FileName:           document.FileName,
		VerificationStatus: string(document.VerificationStatus),
		IsVisibleToAll:     document.IsVisibleToAll,
		CreatedAt:          document.CreatedAt,
	}
	if document.Uploader != nil {
		resp.UploaderName = document.Uploader.Name
	}
	return resp
}

func inviteResponses(invites []models.DealroomInvite) []*dto.InviteResponse {
	result := make([]*dto.InviteResponse, 0, len(invites))
	for i := range invites {
		inv := &invites[i]
		resp := &dto.InviteResponse{
			ID:         inv.ID,
			DealroomID: inv.DealroomID,
			SenderID:   inv.SenderID,
			ReceiverID: inv.ReceiverID,
			Status:     string(inv.Status),
			CreatedAt:  inv.CreatedAt,
		}
		if inv.Dealroom != nil {
			resp.DealroomTitle = inv.Dealroom.Title
		}
		if inv.Sender != nil {
			resp.SenderName = inv.Sender.Name
		}
		if inv.Receiver != nil {
			resp.ReceiverName = inv.Receiver.Name
		}
		result = append(result, resp)
	}
	return result
}

func decodeContract(raw datatypes.JSON) map[string]interface{} {
	contract := map[string]interface{}{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &contract)
	}
	return contract
}
