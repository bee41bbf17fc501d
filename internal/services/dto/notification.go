package dto

import "time"

type NotificationResponse struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	SourceID   *string   `json:"source_id,omitempty"`
	SenderID   *string   `json:"sender_id,omitempty"`
	SenderName string    `json:"sender_name,omitempty"`
	Details    string    `json:"details,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
