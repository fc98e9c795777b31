package models

import (
	"time"

	"gorm.io/gorm"
)

// User is the read-only directory view of an account. Accounts are owned by the
// identity service; this service only reads them.
type User struct {
	ID        string         `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time      `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updatedAt" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index;column:deletedAt" json:"-"`

	Name     string `json:"name"`
	Username string `gorm:"uniqueIndex" json:"username"`
	Image    string `json:"image"`
}

func (User) TableName() string {
	return "User"
}

// Summary is the sender/partner card embedded in chat-list and notification payloads.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:          u.ID,
		Username:    u.Username,
		Avatar:      u.Image,
		DisplayName: u.Name,
	}
}

// UserSummary is the public card of a user
type UserSummary struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Avatar      string `json:"avatar"`
	DisplayName string `json:"displayName"`
}
