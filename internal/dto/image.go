package dto

import (
	"time"

	"github.com/yukikurage/labelit-api/internal/models"
	"github.com/yukikurage/labelit-api/internal/repository"
	"github.com/yukikurage/labelit-api/internal/utils"
)

// LocationDTO represents where an image was taken
type LocationDTO struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      *string `json:"city,omitempty"`
	Country   *string `json:"country,omitempty"`
	Method    *string `json:"method,omitempty"`
}

// ImageDTO represents an image in API responses
type ImageDTO struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Category      models.Category `json:"category"`
	CategoryName  string          `json:"category_name"`
	UploadedBy    string          `json:"uploaded_by"`
	UploadedAt    time.Time       `json:"uploaded_at"`
	FileURL       string          `json:"file_url"`
	FileSize      int64           `json:"file_size"`
	FileSizeLabel string          `json:"file_size_label"`
	Width         int             `json:"image_width"`
	Height        int             `json:"image_height"`
	LabelCount    int64           `json:"label_count"`
	ViewCount     int64           `json:"view_count"`
	Location      *LocationDTO    `json:"location,omitempty"`
}

// ImageListItemDTO is a feed entry annotated with its label languages
type ImageListItemDTO struct {
	ImageDTO
	TotalLabels int64    `json:"total_labels"`
	Languages   []string `json:"languages"`
}

// ImageListResponse represents one page of the feed
type ImageListResponse struct {
	Images     []ImageListItemDTO       `json:"images"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// ImageDetailResponse is an image with its labels
type ImageDetailResponse struct {
	Image  ImageDTO   `json:"image"`
	Labels []LabelDTO `json:"labels"`
}

// UploadResponse is returned after a successful upload
type UploadResponse struct {
	ID    string   `json:"id"`
	Image ImageDTO `json:"image"`
}

// ToImageDTO converts an image model to DTO. categoryName is the localized
// category label.
func ToImageDTO(image models.Image, categoryName string) ImageDTO {
	result := ImageDTO{
		ID:            image.ID,
		Title:         image.Title,
		Description:   image.Description,
		Category:      image.Category,
		CategoryName:  categoryName,
		UploadedBy:    image.UploadedBy,
		UploadedAt:    image.UploadedAt,
		FileURL:       "/api/images/" + image.ID + "/file",
		FileSize:      image.FileSize,
		FileSizeLabel: utils.FormatFileSize(image.FileSize),
		Width:         image.ImageWidth,
		Height:        image.ImageHeight,
		LabelCount:    image.LabelCount,
		ViewCount:     image.ViewCount,
	}

	if image.HasLocation() {
		result.Location = &LocationDTO{
			Latitude:  *image.Latitude,
			Longitude: *image.Longitude,
			City:      image.City,
			Country:   image.Country,
			Method:    image.LocationMethod,
		}
	}

	return result
}

// ToImageListItemDTO converts a feed row to DTO
func ToImageListItemDTO(summary repository.ImageSummary, categoryName string) ImageListItemDTO {
	return ImageListItemDTO{
		ImageDTO:    ToImageDTO(summary.Image, categoryName),
		TotalLabels: summary.TotalLabels,
		Languages:   summary.Languages,
	}
}
