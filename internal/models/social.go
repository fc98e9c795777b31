package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserLink represents a follower/following relationship
type UserLink struct {
	ID        string         `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	LinkerID string `gorm:"uniqueIndex:idx_linker_linked" json:"linkerId"` // The user who follows
	LinkedID string `gorm:"uniqueIndex:idx_linker_linked" json:"linkedId"` // The user being followed
}

func (UserLink) TableName() string {
	return "UserLink"
}

func (ul *UserLink) BeforeCreate(tx *gorm.DB) (err error) {
	if ul.ID == "" {
		ul.ID = uuid.New().String()
	}
	return
}
