package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/labelit-api/internal/constants"
	"github.com/yukikurage/labelit-api/internal/dto"
	apierrors "github.com/yukikurage/labelit-api/internal/errors"
	"github.com/yukikurage/labelit-api/internal/logging"
	"github.com/yukikurage/labelit-api/internal/middleware"
	"github.com/yukikurage/labelit-api/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register creates a new account.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), services.RegisterInput{
		Username:          req.Username,
		Password:          req.Password,
		PreferredLanguage: req.PreferredLanguage,
		FullName:          req.FullName,
		Email:             req.Email,
		Age:               req.Age,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToUserDTO(*user))
}

// Login authenticates a user and initializes the session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Username and password are required")
		return
	}

	user, err := h.authService.Login(c.Request.Context(), services.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Clear()
	session.Set(constants.SessionKeyUsername, user.Username)
	session.Set(constants.SessionKeyLanguage, user.PreferredLanguage)
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	if username, ok := session.Get(constants.SessionKeyUsername).(string); ok && username != "" {
		h.authService.Logout(c.Request.Context(), username)
	}

	session.Clear()
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// GetCurrentUser returns the authenticated user.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	username, exists := middleware.GetUsername(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	user, err := h.authService.GetUser(c.Request.Context(), username)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// UpdateCurrentUser changes profile fields of the authenticated user.
func (h *AuthHandler) UpdateCurrentUser(c *gin.Context) {
	username, exists := middleware.GetUsername(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.authService.UpdateProfile(c.Request.Context(), username, services.ProfileInput{
		PreferredLanguage: req.PreferredLanguage,
		FullName:          req.FullName,
		Email:             req.Email,
		Age:               req.Age,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	if req.PreferredLanguage != nil {
		session := sessions.Default(c)
		session.Set(constants.SessionKeyLanguage, user.PreferredLanguage)
		if err := session.Save(); err != nil {
			logging.Ctx(c.Request.Context()).Warn().Err(err).Msg("failed to store session language")
		}
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// DeleteCurrentUser deactivates the authenticated user and ends the session.
func (h *AuthHandler) DeleteCurrentUser(c *gin.Context) {
	username, exists := middleware.GetUsername(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	if err := h.authService.Deactivate(c.Request.Context(), username); err != nil {
		respondAuthError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		logging.Ctx(c.Request.Context()).Warn().Err(err).Msg("failed to clear session")
	}

	c.Status(http.StatusNoContent)
}

func respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrCredentialsRequired),
		errors.Is(err, services.ErrUsernameTooShort),
		errors.Is(err, services.ErrUsernameTooLong),
		errors.Is(err, services.ErrPasswordTooShort),
		errors.Is(err, services.ErrInvalidUsername),
		errors.Is(err, services.ErrUnsupportedLanguage):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrUsernameTaken):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.InvalidCredentials(c)
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, "User not found")
	case errors.Is(err, services.ErrFailedToHashPassword),
		errors.Is(err, services.ErrFailedToCreateUser):
		apierrors.InternalError(c, err.Error())
	default:
		logging.Ctx(c.Request.Context()).Error().Err(err).Msg("auth request failed")
		apierrors.InternalError(c, "Internal server error")
	}
}
