package middleware

import (
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yukikurage/labelit-api/internal/constants"
	"github.com/yukikurage/labelit-api/internal/i18n"
	"github.com/yukikurage/labelit-api/internal/logging"
	"github.com/yukikurage/labelit-api/internal/reqctx"
)

// RequestContext attaches request-scoped state: an ID, the resolved UI
// language, client details and a tagged logger. It must run after the
// sessions middleware.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(constants.HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(constants.HeaderRequestID, requestID)

		session := sessions.Default(c)
		username, _ := session.Get(constants.SessionKeyUsername).(string)

		info := &reqctx.Info{
			RequestID: requestID,
			Username:  username,
			Language:  resolveLanguage(c, session),
			ClientIP:  c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		info.Logger = logging.With().
			Str("request_id", requestID).
			Str("client_ip", info.ClientIP).
			Logger()

		c.Set(constants.ContextKeyRequestInfo, info)
		c.Request = c.Request.WithContext(reqctx.NewContext(c.Request.Context(), info))
		c.Next()
	}
}

// resolveLanguage picks ?lang, then the session language, then Accept-Language.
func resolveLanguage(c *gin.Context, session sessions.Session) string {
	if lang := strings.TrimSpace(c.Query("lang")); i18n.IsSupported(lang) {
		return lang
	}
	if lang, ok := session.Get(constants.SessionKeyLanguage).(string); ok && i18n.IsSupported(lang) {
		return lang
	}
	return i18n.Match(c.GetHeader("Accept-Language"))
}

// GetLanguage returns the language resolved for this request
func GetLanguage(c *gin.Context) string {
	if info := GetRequestInfo(c); info != nil && info.Language != "" {
		return info.Language
	}
	return constants.DefaultLanguage
}

// GetRequestInfo returns the request state set by RequestContext, if any
func GetRequestInfo(c *gin.Context) *reqctx.Info {
	value, exists := c.Get(constants.ContextKeyRequestInfo)
	if !exists {
		return nil
	}
	info, _ := value.(*reqctx.Info)
	return info
}
