package dto

import "time"

type SendContactRequestRequest struct {
	ReceiverID string `json:"receiver_id" validate:"required,uuid"`
}

type ContactResponse struct {
	UserID  string    `json:"user_id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	AddedAt time.Time `json:"added_at"`
}

type ContactRequestResponse struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}
