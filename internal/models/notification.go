package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification types understood by the ledger.
const (
	NotificationTypeContactRequest   = "contact_request"
	NotificationTypeContactAccepted  = "contact_accepted"
	NotificationTypeDealroomInvite   = "dealroom_invite"
	NotificationTypeDealroomAccepted = "dealroom_accepted"
	NotificationTypeNewMessages      = "new_messages"
)

// Notification of type new_messages is a per-user singleton while
// unread: new arrivals refresh its timestamp instead of inserting.
type Notification struct {
	BaseModel
	UserID   string `gorm:"not null;index"`
	Type     string `gorm:"not null"`
	SourceID *string
	SenderID *string
	Data     datatypes.JSON `gorm:"type:jsonb"`
	IsRead   bool           `gorm:"default:false"`
	ReadAt   *time.Time
}
