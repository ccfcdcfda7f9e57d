package middleware

import (
	"context"
	"errors"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/labelit-api/internal/constants"
	apierrors "github.com/yukikurage/labelit-api/internal/errors"
	"github.com/yukikurage/labelit-api/internal/logging"
	"github.com/yukikurage/labelit-api/internal/models"
	"github.com/yukikurage/labelit-api/internal/reqctx"
	"github.com/yukikurage/labelit-api/internal/services"
)

// UserLookup resolves the active account behind a session.
type UserLookup interface {
	GetUser(ctx context.Context, username string) (*models.User, error)
}

// RequireAuth checks if the user is authenticated via session and the
// account is still active. Sessions of deactivated accounts are cleared.
func RequireAuth(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		username, ok := session.Get(constants.SessionKeyUsername).(string)

		if !ok || username == "" {
			apierrors.Unauthorized(c, "")
			return
		}

		if _, err := users.GetUser(c.Request.Context(), username); err != nil {
			if errors.Is(err, services.ErrUserNotFound) {
				session.Clear()
				if err := session.Save(); err != nil {
					logging.Ctx(c.Request.Context()).Warn().Err(err).Msg("failed to clear session")
				}
				apierrors.Unauthorized(c, "")
				return
			}
			logging.Ctx(c.Request.Context()).Error().Err(err).Str("username", username).Msg("failed to load session user")
			apierrors.InternalError(c, "")
			return
		}

		// Store username in context for easy access in handlers
		c.Set(constants.ContextKeyUsername, username)
		if info, ok := reqctx.FromContext(c.Request.Context()); ok {
			info.Username = username
		}
		c.Next()
	}
}

// GetUsername retrieves the current username from context
func GetUsername(c *gin.Context) (string, bool) {
	username, exists := c.Get(constants.ContextKeyUsername)
	if !exists {
		return "", false
	}
	value, ok := username.(string)
	return value, ok && value != ""
}
