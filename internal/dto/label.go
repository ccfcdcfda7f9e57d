package dto

import (
	"time"

	"github.com/yukikurage/labelit-api/internal/models"
)

// LabelDTO represents a label in API responses
type LabelDTO struct {
	ID         uint64    `json:"id"`
	Text       string    `json:"text"`
	Language   string    `json:"language"`
	AddedBy    string    `json:"added_by"`
	AddedAt    time.Time `json:"added_at"`
	IsVerified bool      `json:"is_verified"`
}

// AddLabelRequest is the body of POST /api/images/:id/labels
type AddLabelRequest struct {
	Text     string `json:"text" binding:"required,max=100"`
	Language string `json:"language" binding:"required,label_language"`
}

// ToLabelDTO converts a label model to DTO
func ToLabelDTO(label models.Label) LabelDTO {
	return LabelDTO{
		ID:         label.ID,
		Text:       label.Text,
		Language:   label.Language,
		AddedBy:    label.AddedBy,
		AddedAt:    label.AddedAt,
		IsVerified: label.IsVerified,
	}
}

// ToLabelDTOs converts a slice of labels, never returning nil
func ToLabelDTOs(labels []models.Label) []LabelDTO {
	result := make([]LabelDTO, len(labels))
	for i, label := range labels {
		result[i] = ToLabelDTO(label)
	}
	return result
}
