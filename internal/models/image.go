package models

import (
	"time"
)

// Category is the closed set of image classifications.
type Category string

const (
	CategoryAnimals        Category = "Animals"
	CategoryFood           Category = "Food"
	CategoryObjects        Category = "Objects"
	CategoryNature         Category = "Nature"
	CategoryPeople         Category = "People"
	CategoryTransportation Category = "Transportation"
	CategoryBuildings      Category = "Buildings"
	CategoryTechnology     Category = "Technology"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryAnimals,
	CategoryFood,
	CategoryObjects,
	CategoryNature,
	CategoryPeople,
	CategoryTransportation,
	CategoryBuildings,
	CategoryTechnology,
}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Location methods
const (
	LocationMethodIP     = "IP"
	LocationMethodManual = "Manual"
)

type Image struct {
	ID                string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title             string    `gorm:"type:varchar(255);not null" json:"title"`
	Description       string    `gorm:"type:text" json:"description"`
	Category          Category  `gorm:"type:varchar(32);not null" json:"category"`
	ImagePath         string    `gorm:"type:varchar(255);not null" json:"image_path"`
	UploadedBy        string    `gorm:"type:varchar(50);not null" json:"uploaded_by"`
	UploadedAt        time.Time `gorm:"not null" json:"uploaded_at"`
	Latitude          *float64  `json:"latitude,omitempty"`
	Longitude         *float64  `json:"longitude,omitempty"`
	City              *string   `gorm:"type:varchar(255)" json:"city,omitempty"`
	Country           *string   `gorm:"type:varchar(255)" json:"country,omitempty"`
	LocationMethod    *string   `gorm:"type:varchar(16)" json:"location_method,omitempty"`
	FileSize          int64     `json:"file_size"`
	ImageWidth        int       `json:"image_width"`
	ImageHeight       int       `json:"image_height"`
	IsVerified        bool      `gorm:"not null;default:false" json:"is_verified"`
	VerificationScore float64   `gorm:"not null;default:0" json:"verification_score"`
	ViewCount         int64     `gorm:"not null;default:0" json:"view_count"`
	LabelCount        int64     `gorm:"not null;default:0" json:"label_count"`

	// Relations
	Uploader User `gorm:"foreignKey:UploadedBy;references:Username;constraint:OnDelete:CASCADE" json:"-"`
}

// HasLocation reports whether coordinates were captured for the image.
func (i Image) HasLocation() bool {
	return i.Latitude != nil && i.Longitude != nil
}
