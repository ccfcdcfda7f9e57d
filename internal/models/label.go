package models

import (
	"time"
)

// Label is a text annotation in one language. (ImageID, Text, Language) is unique.
type Label struct {
	ID                uint64    `gorm:"primarykey" json:"id"`
	ImageID           string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_labels_key,priority:1" json:"image_id"`
	Text              string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_labels_key,priority:2" json:"text"`
	Language          string    `gorm:"type:varchar(8);not null;uniqueIndex:idx_labels_key,priority:3" json:"language"`
	AddedBy           string    `gorm:"type:varchar(50);not null" json:"added_by"`
	AddedAt           time.Time `gorm:"not null" json:"added_at"`
	IsVerified        bool      `gorm:"not null;default:false" json:"is_verified"`
	ConfidenceScore   float64   `gorm:"not null;default:1" json:"confidence_score"`
	VerificationCount int       `gorm:"not null;default:0" json:"verification_count"`
	IsOffensive       bool      `gorm:"not null;default:false" json:"is_offensive"`

	// Relations
	Image       Image `gorm:"foreignKey:ImageID;constraint:OnDelete:CASCADE" json:"-"`
	Contributor User  `gorm:"foreignKey:AddedBy;references:Username;constraint:OnDelete:CASCADE" json:"-"`
}
