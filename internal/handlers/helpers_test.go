package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/labelit-api/internal/cache"
	"github.com/yukikurage/labelit-api/internal/config"
	"github.com/yukikurage/labelit-api/internal/constants"
	"github.com/yukikurage/labelit-api/internal/database"
	"github.com/yukikurage/labelit-api/internal/geolocation"
	"github.com/yukikurage/labelit-api/internal/middleware"
	"github.com/yukikurage/labelit-api/internal/repository"
	"github.com/yukikurage/labelit-api/internal/services"
	"github.com/yukikurage/labelit-api/internal/storage"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testServer is the API router backed by sqlite and a temp file store. It
// keeps the session cookie between requests like a browser would.
type testServer struct {
	t            *testing.T
	db           *gorm.DB
	router       *gin.Engine
	files        storage.FileStore
	authService  *services.AuthService
	imageService *services.ImageService
	labelService *services.LabelService
	cookies      []*http.Cookie
}

type serverOptions struct {
	geo *geolocation.Service
	ai  *services.AIService
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()

	db, err := database.Connect(config.DatabaseConfig{
		Driver:   "sqlite",
		Path:     filepath.Join(t.TempDir(), "labelit.db"),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	files, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	statsCache, err := cache.New("test", time.Minute)
	require.NoError(t, err)

	t.Cleanup(func() {
		statsCache.Close()
		database.Close(db)
	})

	userRepo := repository.NewUserRepository(db)
	imageRepo := repository.NewImageRepository(db)
	labelRepo := repository.NewLabelRepository(db)
	activity := services.NewActivityRecorder(repository.NewActivityRepository(db))

	authService := services.NewAuthService(userRepo, activity, statsCache)
	imageService := services.NewImageService(imageRepo, activity, statsCache)
	labelService := services.NewLabelService(labelRepo, activity, statsCache)
	statsService := services.NewStatsService(repository.NewStatsRepository(db), statsCache)
	exportService := services.NewExportService(userRepo, imageRepo, labelRepo, statsService, files, activity)

	authHandler := NewAuthHandler(authService)
	imageHandler := NewImageHandler(imageService, labelService, files, opts.geo)
	labelHandler := NewLabelHandler(labelService, opts.ai)
	statsHandler := NewStatsHandler(statsService)
	exportHandler := NewExportHandler(exportService)
	locationHandler := NewLocationHandler(opts.geo)

	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("test-secret"))))
	r.Use(middleware.RequestContext())

	requireAuth := middleware.RequireAuth(authService)
	requireImage := middleware.RequireImage(imageService)

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
		auth.GET("/me", requireAuth, authHandler.GetCurrentUser)
		auth.PUT("/me", requireAuth, authHandler.UpdateCurrentUser)
		auth.DELETE("/me", requireAuth, authHandler.DeleteCurrentUser)

		images := api.Group("/images")
		images.GET("", imageHandler.ListImages)
		images.POST("", requireAuth, imageHandler.UploadImage)
		images.GET("/:id", requireImage, imageHandler.GetImage)
		images.GET("/:id/file", requireImage, imageHandler.GetImageFile)
		images.GET("/:id/thumbnail", requireImage, imageHandler.GetThumbnail)
		images.GET("/:id/labels", requireImage, labelHandler.ListLabels)
		images.POST("/:id/labels", requireAuth, requireImage, labelHandler.AddLabel)
		images.GET("/:id/labels/suggestions", requireAuth, requireImage, labelHandler.SuggestLabels)

		stats := api.Group("/stats")
		stats.GET("", statsHandler.Statistics)
		stats.GET("/me", requireAuth, statsHandler.UserStatistics)
		stats.GET("/categories", statsHandler.CategoryStatistics)
		stats.GET("/languages", statsHandler.LanguageStatistics)
		stats.GET("/timeline", statsHandler.ActivityTimeline)

		export := api.Group("/export", requireAuth)
		export.GET("/spreadsheet", exportHandler.ExportSpreadsheet)
		export.GET("/archive", exportHandler.ExportArchive)

		location := api.Group("/location", requireAuth)
		location.GET("/ip", locationHandler.GetIPLocation)
		location.DELETE("/ip", locationHandler.ForgetIPLocation)
		location.POST("/reverse", locationHandler.ReverseGeocode)
		location.POST("/manual", locationHandler.ManualLocation)

		i18nRoutes := api.Group("/i18n")
		i18nRoutes.GET("/languages", ListLanguages)
		i18nRoutes.GET("/translations", Translations)
		i18nRoutes.GET("/categories", ListCategories)
	}

	return &testServer{
		t:            t,
		db:           db,
		router:       r,
		files:        files,
		authService:  authService,
		imageService: imageService,
		labelService: labelService,
	}
}

// do sends a request with the current session cookie and keeps any cookie
// the response sets.
func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if set := w.Result().Cookies(); len(set) > 0 {
		s.cookies = s.cookies[:0]
		for _, c := range set {
			if c.MaxAge >= 0 {
				s.cookies = append(s.cookies, c)
			}
		}
	}
	return w
}

func (s *testServer) request(method, path string, body io.Reader) *httptest.ResponseRecorder {
	return s.do(httptest.NewRequest(method, path, body))
}

func (s *testServer) requestJSON(method, path string, payload interface{}) *httptest.ResponseRecorder {
	body, err := json.Marshal(payload)
	require.NoError(s.t, err)

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

// signIn registers username and logs in through the API.
func (s *testServer) signIn(username string) {
	s.t.Helper()

	_, err := s.authService.Register(context.Background(), registerInput(username))
	require.NoError(s.t, err)

	w := s.requestJSON(http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": "secret",
	})
	require.Equal(s.t, http.StatusOK, w.Code)
}

func registerInput(username string) services.RegisterInput {
	return services.RegisterInput{Username: username, Password: "secret"}
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	decode(t, w, &body)
	return body
}
