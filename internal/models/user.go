package models

import (
	"time"
)

// User is a registered contributor. Username is the identity referenced by
// every other table.
type User struct {
	ID                uint64     `gorm:"primarykey" json:"id"`
	Username          string     `gorm:"type:varchar(50);uniqueIndex:idx_users_username;not null" json:"username"`
	PasswordHash      string     `gorm:"type:varchar(255);not null" json:"-"`
	PreferredLanguage string     `gorm:"type:varchar(8);not null;default:'en'" json:"preferred_language"`
	FullName          *string    `gorm:"type:varchar(255)" json:"full_name,omitempty"`
	Email             *string    `gorm:"type:varchar(255)" json:"email,omitempty"`
	Age               *int       `json:"age,omitempty"`
	ProfilePicture    *string    `gorm:"type:varchar(255)" json:"profile_picture,omitempty"`
	IsActive          bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedAt         time.Time  `json:"created_at"`
	LastLogin         *time.Time `json:"last_login,omitempty"`
}
