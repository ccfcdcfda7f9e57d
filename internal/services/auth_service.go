package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yukikurage/labelit-api/internal/cache"
	"github.com/yukikurage/labelit-api/internal/constants"
	"github.com/yukikurage/labelit-api/internal/i18n"
	"github.com/yukikurage/labelit-api/internal/logging"
	"github.com/yukikurage/labelit-api/internal/models"
	"github.com/yukikurage/labelit-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrCredentialsRequired  = errors.New("Username and password are required")
	ErrUsernameTooShort     = fmt.Errorf("Username must be at least %d characters", constants.MinUsernameLength)
	ErrUsernameTooLong      = fmt.Errorf("Username must be at most %d characters", constants.MaxUsernameLength)
	ErrPasswordTooShort     = fmt.Errorf("Password must be at least %d characters", constants.MinPasswordLength)
	ErrInvalidUsername      = errors.New("Username can only contain letters, numbers, underscore, and hyphen")
	ErrUsernameTaken        = errors.New("Username already exists")
	ErrUnsupportedLanguage  = errors.New("Unsupported language")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrUserNotFound         = errors.New("user not found")
	ErrFailedToHashPassword = errors.New("failed to hash password")
	ErrFailedToCreateUser   = errors.New("failed to create user")
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// AuthService handles registration, login and profile management.
type AuthService struct {
	userRepo repository.UserRepository
	activity *ActivityRecorder
	stats    *cache.Cache
	now      func() time.Time
}

// NewAuthService creates a new AuthService. stats may be nil.
func NewAuthService(userRepo repository.UserRepository, activity *ActivityRecorder, stats *cache.Cache) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		activity: activity,
		stats:    stats,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RegisterInput represents the information used to create a new user.
type RegisterInput struct {
	Username          string
	Password          string
	PreferredLanguage string
	FullName          string
	Email             string
	Age               *int
}

// Register validates the input and creates a user with a hashed password.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	password := strings.TrimSpace(input.Password)

	if username == "" || password == "" {
		return nil, ErrCredentialsRequired
	}
	if utf8.RuneCountInString(username) < constants.MinUsernameLength {
		return nil, ErrUsernameTooShort
	}
	if utf8.RuneCountInString(password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if !usernamePattern.MatchString(username) {
		return nil, ErrInvalidUsername
	}
	if len(username) > constants.MaxUsernameLength {
		return nil, ErrUsernameTooLong
	}

	language := strings.TrimSpace(input.PreferredLanguage)
	if language == "" {
		language = constants.DefaultLanguage
	}
	if !i18n.IsSupported(language) {
		return nil, ErrUnsupportedLanguage
	}

	if _, err := s.userRepo.FindByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	user := &models.User{
		Username:          username,
		PasswordHash:      string(hashedPassword),
		PreferredLanguage: language,
		FullName:          optional(strings.TrimSpace(input.FullName)),
		Email:             optional(strings.TrimSpace(input.Email)),
		Age:               recordedAge(input.Age),
		IsActive:          true,
		CreatedAt:         s.now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		logging.Ctx(ctx).Error().Err(err).Str("username", username).Msg("failed to create user")
		return nil, ErrFailedToCreateUser
	}
	s.invalidateStats()

	s.activity.LogEvent(ctx, Event{
		Type:     models.EventUserRegistered,
		Username: username,
		Metadata: map[string]interface{}{
			"language":      language,
			"has_full_name": user.FullName != nil,
			"has_email":     user.Email != nil,
		},
	})

	return user, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Username string
	Password string
}

// Login verifies credentials against an active user, stamps last_login and
// returns the user.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	password := strings.TrimSpace(input.Password)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.FindActiveByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.userRepo.UpdateLastLogin(ctx, username, now); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("username", username).Msg("failed to update last login")
	} else {
		user.LastLogin = &now
	}

	s.activity.LogEvent(ctx, Event{Type: models.EventUserLogin, Username: username})

	return user, nil
}

// Authenticate reports whether the credentials belong to an active user.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) bool {
	_, err := s.Login(ctx, LoginInput{Username: username, Password: password})
	if err != nil && !errors.Is(err, ErrInvalidCredentials) {
		logging.Ctx(ctx).Error().Err(err).Msg("authentication failed")
	}
	return err == nil
}

// Logout records the end of a session.
func (s *AuthService) Logout(ctx context.Context, username string) {
	s.activity.LogEvent(ctx, Event{Type: models.EventUserLogout, Username: username})
}

// GetUser retrieves an active user by username.
func (s *AuthService) GetUser(ctx context.Context, username string) (*models.User, error) {
	user, err := s.userRepo.FindActiveByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// ProfileInput holds profile changes. Nil fields are left untouched; empty
// strings clear the optional columns.
type ProfileInput struct {
	PreferredLanguage *string
	FullName          *string
	Email             *string
	Age               *int
}

// UpdateProfile applies profile changes and returns the updated user.
func (s *AuthService) UpdateProfile(ctx context.Context, username string, input ProfileInput) (*models.User, error) {
	if _, err := s.GetUser(ctx, username); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.PreferredLanguage != nil {
		language := strings.TrimSpace(*input.PreferredLanguage)
		if !i18n.IsSupported(language) {
			return nil, ErrUnsupportedLanguage
		}
		updates["preferred_language"] = language
	}
	if input.FullName != nil {
		updates["full_name"] = optional(strings.TrimSpace(*input.FullName))
	}
	if input.Email != nil {
		updates["email"] = optional(strings.TrimSpace(*input.Email))
	}
	if input.Age != nil {
		updates["age"] = recordedAge(input.Age)
	}

	if err := s.userRepo.UpdateProfile(ctx, username, updates); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	if len(updates) > 0 {
		s.invalidateStats()
		fields := make([]string, 0, len(updates))
		for field := range updates {
			fields = append(fields, field)
		}
		s.activity.LogEvent(ctx, Event{
			Type:     models.EventProfileUpdated,
			Username: username,
			Metadata: map[string]interface{}{"fields": fields},
		})
	}

	return s.GetUser(ctx, username)
}

// Deactivate soft-deletes a user. Deactivated users can no longer log in.
func (s *AuthService) Deactivate(ctx context.Context, username string) error {
	if err := s.userRepo.Deactivate(ctx, username); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	s.invalidateStats()

	s.activity.LogEvent(ctx, Event{Type: models.EventUserDeactivated, Username: username})
	return nil
}

// invalidateStats drops cached statistics after a user row changes.
func (s *AuthService) invalidateStats() {
	if s.stats != nil {
		s.stats.Invalidate()
	}
}

func recordedAge(age *int) *int {
	if age == nil || *age <= constants.MinRecordedAge {
		return nil
	}
	value := *age
	return &value
}
