package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/labelit-api/internal/constants"
	"github.com/yukikurage/labelit-api/internal/models"
	"github.com/yukikurage/labelit-api/internal/reqctx"
	"github.com/yukikurage/labelit-api/internal/services"
)

// fakeUsers is a UserLookup over a fixed set of active usernames.
type fakeUsers struct {
	active map[string]bool
	err    error
}

func (f fakeUsers) GetUser(_ context.Context, username string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if !f.active[username] {
		return nil, services.ErrUserNotFound
	}
	return &models.User{Username: username, IsActive: true}, nil
}

// newRouter serves GET /echo behind the session and request middleware.
// /login stores the given username and language in the session.
func newRouter(handler gin.HandlerFunc) *gin.Engine {
	return newRouterWithUsers(handler, fakeUsers{active: map[string]bool{"alice123": true}})
}

func newRouterWithUsers(handler gin.HandlerFunc, users UserLookup) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("test-secret"))))
	r.Use(RequestContext())

	r.GET("/login", func(c *gin.Context) {
		session := sessions.Default(c)
		session.Set(constants.SessionKeyUsername, c.Query("username"))
		session.Set(constants.SessionKeyLanguage, c.Query("language"))
		_ = session.Save()
		c.Status(http.StatusNoContent)
	})
	r.GET("/echo", handler)
	r.GET("/private", RequireAuth(users), handler)
	return r
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestContext_Language(t *testing.T) {
	var seen string
	r := newRouter(func(c *gin.Context) {
		seen = GetLanguage(c)
		c.Status(http.StatusOK)
	})

	login := serve(r, httptest.NewRequest(http.MethodGet, "/login?username=alice123&language=te", nil))
	require.Equal(t, http.StatusNoContent, login.Code)
	cookies := login.Result().Cookies()
	require.NotEmpty(t, cookies)

	tests := []struct {
		name    string
		path    string
		accept  string
		session bool
		want    string
	}{
		{name: "fallback", path: "/echo", want: "en"},
		{name: "header", path: "/echo", accept: "mr-IN", want: "mr"},
		{name: "session beats header", path: "/echo", accept: "mr-IN", session: true, want: "te"},
		{name: "query beats session", path: "/echo?lang=kn", session: true, want: "kn"},
		{name: "unsupported query ignored", path: "/echo?lang=zz", session: true, want: "te"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			if tt.session {
				for _, c := range cookies {
					req.AddCookie(c)
				}
			}
			w := serve(r, req)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, seen)
		})
	}
}

func TestRequestContext_Info(t *testing.T) {
	var info *reqctx.Info
	r := newRouter(func(c *gin.Context) {
		info, _ = reqctx.FromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/echo", nil)
	req.Header.Set(constants.HeaderRequestID, "req-1")
	req.Header.Set("User-Agent", "labelit-test")
	w := serve(r, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, info)
	assert.Equal(t, "req-1", info.RequestID)
	assert.Equal(t, "labelit-test", info.UserAgent)
	assert.Empty(t, info.Username)
	assert.Equal(t, "req-1", w.Header().Get(constants.HeaderRequestID))
}

func TestRequireAuth(t *testing.T) {
	var username string
	var info *reqctx.Info
	r := newRouter(func(c *gin.Context) {
		username, _ = GetUsername(c)
		info, _ = reqctx.FromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	login := serve(r, httptest.NewRequest(http.MethodGet, "/login?username=alice123&language=hi", nil))
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	for _, c := range login.Result().Cookies() {
		req.AddCookie(c)
	}
	w = serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice123", username)
	require.NotNil(t, info)
	assert.Equal(t, "alice123", info.Username)
}

func TestRequireAuth_DeactivatedAccount(t *testing.T) {
	active := map[string]bool{}
	r := newRouterWithUsers(func(c *gin.Context) {
		c.Status(http.StatusOK)
	}, fakeUsers{active: active})

	login := serve(r, httptest.NewRequest(http.MethodGet, "/login?username=alice123", nil))
	private := func(cookies []*http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		return serve(r, req)
	}

	w := private(login.Result().Cookies())
	require.Equal(t, http.StatusUnauthorized, w.Code)
	cleared := w.Result().Cookies()
	require.NotEmpty(t, cleared)

	// The rewritten session no longer names the user.
	active["alice123"] = true
	assert.Equal(t, http.StatusUnauthorized, private(cleared).Code)
	assert.Equal(t, http.StatusOK, private(login.Result().Cookies()).Code)
}

func TestRequireAuth_LookupFailure(t *testing.T) {
	r := newRouterWithUsers(func(c *gin.Context) {
		c.Status(http.StatusOK)
	}, fakeUsers{err: errors.New("database is down")})

	login := serve(r, httptest.NewRequest(http.MethodGet, "/login?username=alice123", nil))
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	for _, c := range login.Result().Cookies() {
		req.AddCookie(c)
	}
	w := serve(r, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
