package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID        string    `gorm:"primaryKey"`
	Name      string    `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

type GenerationRecordModel struct {
	ID          string `gorm:"primaryKey"`
	UserID      string `gorm:"not null;index"`
	UserPrompt  string `gorm:"type:text;not null"`
	FinalPrompt string `gorm:"type:text;not null"`
	StorageKey  string `gorm:"not null"`
	IsModified  bool   `gorm:"not null"`
	Params      datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt   time.Time      `gorm:"not null;index"`
}
