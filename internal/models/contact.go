package models

// Contact is one direction of a mutual contact link. Accepting a
// request inserts both directions.
type Contact struct {
	BaseModel
	UserID    string `gorm:"not null;uniqueIndex:idx_contact_pair"`
	ContactID string `gorm:"not null;uniqueIndex:idx_contact_pair"`

	ContactUser *User `gorm:"foreignKey:ContactID"`
}

type ContactRequest struct {
	BaseModel
	SenderID   string               `gorm:"not null;uniqueIndex:idx_contact_request_pair"`
	ReceiverID string               `gorm:"not null;uniqueIndex:idx_contact_request_pair"`
	Status     ContactRequestStatus `gorm:"type:varchar(20);default:'pending'"`

	Sender   *User `gorm:"foreignKey:SenderID"`
	Receiver *User `gorm:"foreignKey:ReceiverID"`
}
