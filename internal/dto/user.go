package dto

import (
	"time"

	"github.com/yukikurage/labelit-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	Username          string     `json:"username"`
	PreferredLanguage string     `json:"preferred_language"`
	FullName          *string    `json:"full_name,omitempty"`
	Email             *string    `json:"email,omitempty"`
	Age               *int       `json:"age,omitempty"`
	ProfilePicture    *string    `json:"profile_picture,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	LastLogin         *time.Time `json:"last_login,omitempty"`
}

// ToUserDTO converts a user model to DTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		Username:          user.Username,
		PreferredLanguage: user.PreferredLanguage,
		FullName:          user.FullName,
		Email:             user.Email,
		Age:               user.Age,
		ProfilePicture:    user.ProfilePicture,
		CreatedAt:         user.CreatedAt,
		LastLogin:         user.LastLogin,
	}
}

// RegisterRequest is the body of POST /api/auth/register
type RegisterRequest struct {
	Username          string `json:"username"`
	Password          string `json:"password"`
	PreferredLanguage string `json:"preferred_language" binding:"omitempty,label_language"`
	FullName          string `json:"full_name" binding:"max=255"`
	Email             string `json:"email" binding:"omitempty,email"`
	Age               *int   `json:"age" binding:"omitempty,min=0,max=150"`
}

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest is the body of PUT /api/auth/me. Omitted fields are unchanged.
type UpdateProfileRequest struct {
	PreferredLanguage *string `json:"preferred_language" binding:"omitempty,label_language"`
	FullName          *string `json:"full_name" binding:"omitempty,max=255"`
	Email             *string `json:"email"`
	Age               *int    `json:"age" binding:"omitempty,min=0,max=150"`
}
