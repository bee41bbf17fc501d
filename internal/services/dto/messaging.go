package dto

import "time"

// SendMessageRequest targets exactly one of receiver, conversation or
// dealroom.
type SendMessageRequest struct {
	ReceiverID     *string `json:"receiver_id,omitempty"`
	ConversationID *string `json:"conversation_id,omitempty"`
	DealroomID     *string `json:"dealroom_id,omitempty"`
	Content        string  `json:"content" validate:"required"`
}

type MessageResponse struct {
	ID             string    `json:"id"`
	ConversationID *string   `json:"conversation_id,omitempty"`
	DealroomID     *string   `json:"dealroom_id,omitempty"`
	SenderID       string    `json:"sender_id"`
	SenderName     string    `json:"sender_name,omitempty"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

type ConversationResponse struct {
	ID                   string           `json:"id"`
	PartnerID            string           `json:"partner_id"`
	PartnerName          string           `json:"partner_name"`
	LastMessage          *MessageResponse `json:"last_message,omitempty"`
	LastMessageTimestamp time.Time        `json:"last_message_timestamp"`
	UnreadCount          int64            `json:"unread_count"`
}

type ThreadResponse struct {
	ConversationID string             `json:"conversation_id"`
	PartnerID      string             `json:"partner_id"`
	PartnerName    string             `json:"partner_name"`
	Messages       []*MessageResponse `json:"messages"`
}
