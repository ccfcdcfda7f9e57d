package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/labelit-api/internal/cache"
	"github.com/yukikurage/labelit-api/internal/config"
	"github.com/yukikurage/labelit-api/internal/constants"
	"github.com/yukikurage/labelit-api/internal/database"
	"github.com/yukikurage/labelit-api/internal/geolocation"
	"github.com/yukikurage/labelit-api/internal/handlers"
	"github.com/yukikurage/labelit-api/internal/i18n"
	"github.com/yukikurage/labelit-api/internal/logging"
	"github.com/yukikurage/labelit-api/internal/metrics"
	"github.com/yukikurage/labelit-api/internal/middleware"
	"github.com/yukikurage/labelit-api/internal/repository"
	"github.com/yukikurage/labelit-api/internal/services"
	"github.com/yukikurage/labelit-api/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	if err := i18n.LoadError(); err != nil {
		logging.Fatal().Err(err).Msg("failed to load translations")
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logging.Error().Err(err).Msg("failed to close database")
		}
	}()

	// Run migrations
	if err := database.Migrate(db); err != nil {
		logging.Fatal().Err(err).Msg("failed to run migrations")
	}

	files, err := newFileStore(cfg.Storage)
	if err != nil {
		logging.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("failed to initialize file storage")
	}

	statsCache, err := cache.New("statistics", cfg.Cache.StatsTTL)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create statistics cache")
	}
	defer statsCache.Close()

	// Initialize repositories and services
	userRepo := repository.NewUserRepository(db)
	imageRepo := repository.NewImageRepository(db)
	labelRepo := repository.NewLabelRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	activity := services.NewActivityRecorder(repository.NewActivityRepository(db))

	authService := services.NewAuthService(userRepo, activity, statsCache)
	imageService := services.NewImageService(imageRepo, activity, statsCache)
	labelService := services.NewLabelService(labelRepo, activity, statsCache)
	statsService := services.NewStatsService(statsRepo, statsCache)
	exportService := services.NewExportService(userRepo, imageRepo, labelRepo, statsService, files, activity)
	aiService := services.NewAIService(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
	geo := geolocation.NewService(cfg.Geolocation)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	imageHandler := handlers.NewImageHandler(imageService, labelService, files, geo)
	labelHandler := handlers.NewLabelHandler(labelService, aiService)
	statsHandler := handlers.NewStatsHandler(statsService)
	exportHandler := handlers.NewExportHandler(exportService)
	locationHandler := handlers.NewLocationHandler(geo)
	if err := handlers.RegisterValidators(); err != nil {
		logging.Fatal().Err(err).Msg("failed to register validators")
	}

	store, err := newSessionStore(cfg.Server)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create session store")
	}

	// Initialize Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Accept-Language", constants.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Disposition", constants.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(sessions.Sessions(constants.SessionCookieName, store))
	r.Use(middleware.RequestContext())
	r.Use(logging.GinLogger())
	r.Use(metrics.Middleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "LabelIt API is running",
		})
	})
	r.GET("/metrics", metrics.Handler())

	requireAuth := middleware.RequireAuth(authService)
	requireImage := middleware.RequireImage(imageService)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", requireAuth, authHandler.GetCurrentUser)
			auth.PUT("/me", requireAuth, authHandler.UpdateCurrentUser)
			auth.DELETE("/me", requireAuth, authHandler.DeleteCurrentUser)
		}

		// Image routes (read-only routes are public)
		images := api.Group("/images")
		{
			images.GET("", imageHandler.ListImages)
			images.POST("", requireAuth, imageHandler.UploadImage)
			images.GET("/:id", requireImage, imageHandler.GetImage)
			images.GET("/:id/file", requireImage, imageHandler.GetImageFile)
			images.GET("/:id/thumbnail", requireImage, imageHandler.GetThumbnail)
			images.GET("/:id/labels", requireImage, labelHandler.ListLabels)
			images.POST("/:id/labels", requireAuth, requireImage, labelHandler.AddLabel)
			images.GET("/:id/labels/suggestions", requireAuth, requireImage, labelHandler.SuggestLabels)
		}

		// Statistics routes
		stats := api.Group("/stats")
		{
			stats.GET("", statsHandler.Statistics)
			stats.GET("/me", requireAuth, statsHandler.UserStatistics)
			stats.GET("/categories", statsHandler.CategoryStatistics)
			stats.GET("/languages", statsHandler.LanguageStatistics)
			stats.GET("/timeline", statsHandler.ActivityTimeline)
		}

		// Export routes (protected)
		export := api.Group("/export")
		export.Use(requireAuth)
		{
			export.GET("/spreadsheet", exportHandler.ExportSpreadsheet)
			export.GET("/archive", exportHandler.ExportArchive)
		}

		// Location routes (protected)
		location := api.Group("/location")
		location.Use(requireAuth)
		{
			location.GET("/ip", locationHandler.GetIPLocation)
			location.DELETE("/ip", locationHandler.ForgetIPLocation)
			location.POST("/reverse", locationHandler.ReverseGeocode)
			location.POST("/manual", locationHandler.ManualLocation)
		}

		// Translation routes
		i18nRoutes := api.Group("/i18n")
		{
			i18nRoutes.GET("/languages", handlers.ListLanguages)
			i18nRoutes.GET("/translations", handlers.Translations)
			i18nRoutes.GET("/categories", handlers.ListCategories)
		}
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logging.Info().Str("addr", cfg.Server.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	logging.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("server shutdown failed")
	}
}

func newFileStore(cfg config.StorageConfig) (storage.FileStore, error) {
	switch cfg.Backend {
	case "minio":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return storage.NewMinioStore(ctx, cfg.Minio)
	default:
		return storage.NewLocalStore(cfg.Dir)
	}
}

func newSessionStore(cfg config.ServerConfig) (sessions.Store, error) {
	var store sessions.Store
	switch cfg.SessionStore {
	case "redis":
		redis, err := redisStore.NewStore(
			10,            // Redis pool size
			"tcp",         // network type
			cfg.RedisAddr, // Redis address from config
			"",            // password (empty = no password)
			[]byte(cfg.SessionSecret),
		)
		if err != nil {
			return nil, err
		}
		store = redis
	default:
		store = cookie.NewStore([]byte(cfg.SessionSecret))
	}

	// Configure session options based on environment
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}
