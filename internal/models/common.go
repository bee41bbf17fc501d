package models

import (
	"time"

	"gorm.io/gorm"
)

type BaseModel struct {
	// gen_random_uuid is built into Postgres 13+, no extension needed.
	ID        string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"default:now()"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

type BaseModelWithDeleted struct {
	BaseModel
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
