package models

import "time"

// Conversation is the unique 1:1 thread for a pair of users. User1ID
// and User2ID are stored in ascending order so the pair is unique
// regardless of who started it.
type Conversation struct {
	BaseModel
	User1ID              string    `gorm:"not null;uniqueIndex:idx_conversation_pair"`
	User2ID              string    `gorm:"not null;uniqueIndex:idx_conversation_pair"`
	LastMessageTimestamp time.Time `gorm:"index"`

	User1 *User `gorm:"foreignKey:User1ID"`
	User2 *User `gorm:"foreignKey:User2ID"`
}

// Message belongs to exactly one of a conversation or a dealroom.
// Immutable once created.
type Message struct {
	BaseModel
	ConversationID *string `gorm:"index"`
	DealroomID     *string `gorm:"index"`
	SenderID       string  `gorm:"not null;index"`
	Content        string  `gorm:"not null"`

	Sender *User `gorm:"foreignKey:SenderID"`
}

// MessageRead marks a message as seen by a user. Absence of a row is
// what makes a message unread for a recipient.
type MessageRead struct {
	BaseModel
	MessageID string `gorm:"not null;uniqueIndex:idx_message_read"`
	UserID    string `gorm:"not null;uniqueIndex:idx_message_read"`
}
