package dto

import "time"

type CreateDealroomRequest struct {
	ContactID string `json:"contact_id" validate:"required,uuid"`
	// Role the creator takes in the deal. Defaults to buyer.
	Role string `json:"role,omitempty" validate:"omitempty,is-deal-role"`
}

type AdvanceStageRequest struct {
	Action       string                 `json:"action" validate:"required,is-stage-action"`
	ContractData map[string]interface{} `json:"contract_data,omitempty"`
}

type AdvanceStageResponse struct {
	Message  string `json:"message"`
	NewStage string `json:"new_stage"`
	Advanced bool   `json:"advanced"`
}

type DealroomResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	BuyerID     string    `json:"buyer_id"`
	BuyerName   string    `json:"buyer_name,omitempty"`
	SellerID    string    `json:"seller_id"`
	SellerName  string    `json:"seller_name,omitempty"`
	Stage       string    `json:"stage"`
	BuyerReady  bool      `json:"buyer_ready"`
	SellerReady bool      `json:"seller_ready"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

type DealroomDetailsResponse struct {
	DealroomResponse
	FinalGreenLight bool                   `json:"final_green_light"`
	ContractDetails map[string]interface{} `json:"contract_details"`
	Documents       []*DocumentResponse    `json:"documents"`
	Messages        []*MessageResponse     `json:"messages"`
}

type DocumentResponse struct {
	ID                 string    `json:"id"`
	DealroomID         string    `json:"dealroom_id"`
	UploaderID         string    `json:"uploader_id"`
	UploaderName       string    `json:"uploader_name,omitempty"`
	FileName           string    `json:"file_name"`
	VerificationStatus string    `json:"verification_status"`
	IsVisibleToAll     bool      `json:"is_visible_to_all"`
	CreatedAt          time.Time `json:"created_at"`
}

type InviteResponse struct {
	ID            string    `json:"id"`
	DealroomID    string    `json:"dealroom_id"`
	DealroomTitle string    `json:"dealroom_title,omitempty"`
	SenderID      string    `json:"sender_id"`
	SenderName    string    `json:"sender_name,omitempty"`
	ReceiverID    string    `json:"receiver_id"`
	ReceiverName  string    `json:"receiver_name,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}
