package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Name          string         `gorm:"size:255;not null" json:"name"`
	Email         string         `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password      string         `gorm:"not null" json:"-"`
	RememberToken string         `gorm:"size:100" json:"-"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// AccessToken backs an issued bearer token. The row's ID is the token's jti;
// deleting the row revokes the token.
type AccessToken struct {
	ID         string     `gorm:"primaryKey;size:64" json:"id"`
	UserID     uint       `gorm:"index;not null" json:"user_id"`
	User       User       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Name       string     `gorm:"size:100" json:"name"`
	ExpiresAt  time.Time  `json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at"`
}
