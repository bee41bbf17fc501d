package models

import "gorm.io/datatypes"

// Dealroom is a two-party staged negotiation. Buyer and seller must be
// distinct users; the stage only moves forward along the lifecycle
// sequence and a closed room is immutable except for reads.
type Dealroom struct {
	BaseModel
	Title           string         `gorm:"not null"`
	CreatorID       string         `gorm:"not null;index"`
	BuyerID         string         `gorm:"not null;index"`
	SellerID        string         `gorm:"not null;index"`
	Stage           DealStage      `gorm:"type:varchar(20);not null;default:'pending'"`
	BuyerReady      bool           `gorm:"default:false"`
	SellerReady     bool           `gorm:"default:false"`
	FinalGreenLight bool           `gorm:"default:false"`
	ContractDetails datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
	IsActive        bool           `gorm:"default:true"`

	Buyer        *User                 `gorm:"foreignKey:BuyerID"`
	Seller       *User                 `gorm:"foreignKey:SellerID"`
	Participants []DealroomParticipant `gorm:"foreignKey:DealroomID"`
	Documents    []Document            `gorm:"foreignKey:DealroomID"`
}

// DealroomParticipant is the sole authorization record for dealroom
// reads and writes. Both parties get a row at creation, so invite
// acceptance is idempotent.
type DealroomParticipant struct {
	BaseModel
	DealroomID string   `gorm:"not null;uniqueIndex:idx_dealroom_member"`
	UserID     string   `gorm:"not null;uniqueIndex:idx_dealroom_member"`
	Role       DealRole `gorm:"type:varchar(10);not null"`
}

type DealroomInvite struct {
	BaseModel
	DealroomID string       `gorm:"not null;index"`
	SenderID   string       `gorm:"not null;index"`
	ReceiverID string       `gorm:"not null;index"`
	Status     InviteStatus `gorm:"type:varchar(20);default:'pending'"`

	Dealroom *Dealroom `gorm:"foreignKey:DealroomID"`
	Sender   *User     `gorm:"foreignKey:SenderID"`
	Receiver *User     `gorm:"foreignKey:ReceiverID"`
}

// Document's IsVisibleToAll bit is computed once, from the room's stage
// at upload time, and never rewritten. Owner visibility of private
// uploads is a read-time rule, not a stored one.
type Document struct {
	BaseModel
	DealroomID         string             `gorm:"not null;index"`
	UploaderID         string             `gorm:"not null;index"`
	FileName           string             `gorm:"not null"`
	FilePath           string             `gorm:"not null"`
	MimeType           string
	SizeBytes          int64
	VerificationStatus VerificationStatus `gorm:"type:varchar(20);default:'pending'"`
	OracleResponse     datatypes.JSON     `gorm:"type:jsonb"`
	IsVisibleToAll     bool               `gorm:"default:false"`

	Uploader *User `gorm:"foreignKey:UploaderID"`
}
