package models

import (
	"time"

	"gorm.io/datatypes"
)

// Analytics event types
const (
	EventUserRegistered  = "user_registered"
	EventUserLogin       = "user_login"
	EventUserLogout      = "user_logout"
	EventProfileUpdated  = "profile_updated"
	EventUserDeactivated = "user_deactivated"
	EventImageUploaded   = "image_uploaded"
	EventLabelAdded      = "label_added"
	EventDataExported    = "data_exported"
)

// Activity types credited with points
const (
	ActivityImageUpload = "image_upload"
	ActivityLabelAdd    = "label_add"
)

// AnalyticsEvent is one row of the append-only event log.
type AnalyticsEvent struct {
	ID        uint64            `gorm:"primarykey" json:"id"`
	EventType string            `gorm:"type:varchar(64);not null" json:"event_type"`
	UserID    *string           `gorm:"type:varchar(50)" json:"user_id,omitempty"`
	ImageID   *string           `gorm:"type:varchar(36)" json:"image_id,omitempty"`
	LabelID   *uint64           `json:"label_id,omitempty"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty"`
	Timestamp time.Time         `gorm:"not null" json:"timestamp"`
	IPAddress *string           `gorm:"type:varchar(64)" json:"ip_address,omitempty"`
	UserAgent *string           `gorm:"type:varchar(512)" json:"user_agent,omitempty"`
}

func (AnalyticsEvent) TableName() string {
	return "analytics"
}

// UserActivity is one row of the gamification ledger.
type UserActivity struct {
	ID           uint64    `gorm:"primarykey" json:"id"`
	UserID       string    `gorm:"type:varchar(50);not null" json:"user_id"`
	ActivityType string    `gorm:"type:varchar(32);not null" json:"activity_type"`
	Description  string    `gorm:"type:text" json:"description"`
	PointsEarned int       `gorm:"not null;default:0" json:"points_earned"`
	Timestamp    time.Time `gorm:"not null" json:"timestamp"`

	// Relations
	User User `gorm:"foreignKey:UserID;references:Username;constraint:OnDelete:CASCADE" json:"-"`
}
