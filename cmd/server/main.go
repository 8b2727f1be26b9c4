// Package main runs the school administration HTTP API with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sekolah-admin/backend/config"
	"github.com/sekolah-admin/backend/internal/auth"
	"github.com/sekolah-admin/backend/internal/board"
	"github.com/sekolah-admin/backend/internal/dashboard"
	"github.com/sekolah-admin/backend/internal/evaluations"
	"github.com/sekolah-admin/backend/internal/media"
	"github.com/sekolah-admin/backend/internal/messages"
	"github.com/sekolah-admin/backend/internal/middleware"
	"github.com/sekolah-admin/backend/internal/organizations"
	"github.com/sekolah-admin/backend/internal/periods"
	"github.com/sekolah-admin/backend/internal/rpp"
	"github.com/sekolah-admin/backend/internal/users"
	"github.com/sekolah-admin/backend/pkg/database"
	"github.com/sekolah-admin/backend/pkg/queue"
	"github.com/sekolah-admin/backend/pkg/redis"
	"github.com/sekolah-admin/backend/pkg/response"
	"github.com/sekolah-admin/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			MediaBucket:          cfg.AWS.MediaBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	pageSize := cfg.Pagination.DefaultSize

	// Users and auth
	userRepo := users.NewRepository(pool)
	orgRepo := organizations.NewRepository(pool)
	orgHandler := organizations.NewHandler(orgRepo)
	userHandler := users.NewHandler(userRepo, orgRepo, jobQueue, pageSize, logger)
	authHandler := auth.NewHandler(userRepo, jwtService, auth.CookieConfig{
		MaxAge: cfg.JWT.ExpireHours * 3600,
		Domain: cfg.Server.CookieDomain,
		Secure: cfg.Server.CookieSecure,
	}, logger)

	// Academic periods
	periodRepo := periods.NewRepository(pool)
	periodHandler := periods.NewHandler(periodRepo, pageSize, logger)

	// Board of administrators (pengurus)
	boardRepo := board.NewRepository(pool)
	boardHandler := board.NewHandler(boardRepo, logger)

	// Teacher evaluations
	evalRepo := evaluations.NewRepository(pool)
	evalHandler := evaluations.NewHandler(evalRepo, periodRepo, pageSize, logger)

	// Media files (S3-backed uploads)
	mediaRepo := media.NewRepository(pool)
	mediaHandler := media.NewHandler(mediaRepo, s3Client, cfg.Upload.MaxFileSizeMB, pageSize, logger)

	// RPP submissions
	rppRepo := rpp.NewRepository(pool)
	rppHandler := rpp.NewHandler(rppRepo, periodRepo, jobQueue, pageSize, logger)

	// Contact messages
	messageRepo := messages.NewRepository(pool)
	messageHandler := messages.NewHandler(messageRepo, jobQueue, cfg.Email.AdminInbox, pageSize, logger)

	// Dashboards
	dashboardHandler := dashboard.NewHandler(pool, logger)

	messageLimit := middleware.RateLimit(rdb.Client, "messages", cfg.RateLimit.MessageLimit, time.Duration(cfg.RateLimit.MessageWindowSec)*time.Second)
	loginLimit := middleware.RateLimit(rdb.Client, "login", cfg.RateLimit.LoginLimit, time.Duration(cfg.RateLimit.LoginWindowSec)*time.Second)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public: board profile page and contact form
	router.GET("/board/groups", boardHandler.ListGroups)
	router.POST("/messages", messageLimit, messageHandler.Create)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", loginLimit, authHandler.Login)
		authGroup.POST("/logout", authHandler.Logout)
	}

	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/auth/me", authHandler.Me)
		api.POST("/auth/change-password", authHandler.ChangePassword)

		admin := middleware.RequireRole("admin")
		reviewer := middleware.RequireRole("admin", "kepala_sekolah")

		// Users (admin only)
		api.GET("/users", admin, userHandler.List)
		api.POST("/users", admin, userHandler.Create)
		api.GET("/users/:id", admin, userHandler.GetByID)
		api.PATCH("/users/:id", admin, userHandler.Update)
		api.PUT("/users/:id/role", admin, userHandler.SetRole)
		api.PUT("/users/:id/password", admin, userHandler.ResetPassword)
		api.DELETE("/users/:id", admin, userHandler.Delete)

		// Organizations (schools)
		api.GET("/organizations", orgHandler.List)
		api.POST("/organizations", admin, orgHandler.Create)
		api.GET("/organizations/:id", orgHandler.GetByID)
		api.PATCH("/organizations/:id", admin, orgHandler.Update)
		api.DELETE("/organizations/:id", admin, orgHandler.Delete)

		// Academic periods
		api.GET("/periods", periodHandler.List)
		api.GET("/periods/active", periodHandler.GetActive)
		api.GET("/periods/:id", periodHandler.GetByID)
		api.GET("/periods/:id/stats", reviewer, periodHandler.Stats)
		api.POST("/periods", admin, periodHandler.Create)
		api.PATCH("/periods/:id", admin, periodHandler.Update)
		api.PUT("/periods/:id/activate", admin, periodHandler.Activate)
		api.PUT("/periods/:id/deactivate", admin, periodHandler.Deactivate)
		api.DELETE("/periods/:id", admin, periodHandler.Delete)

		// Board groups and members (admin manages, public reads via /board/groups)
		api.POST("/board/groups", admin, boardHandler.CreateGroup)
		api.GET("/board/groups/:id", boardHandler.GetGroup)
		api.PATCH("/board/groups/:id", admin, boardHandler.UpdateGroup)
		api.PUT("/board/groups/:id/order", admin, boardHandler.MoveGroup)
		api.DELETE("/board/groups/:id", admin, boardHandler.DeleteGroup)
		api.POST("/board/groups/:id/members", admin, boardHandler.CreateMember)
		api.PATCH("/board/members/:id", admin, boardHandler.UpdateMember)
		api.PUT("/board/members/:id/order", admin, boardHandler.MoveMember)
		api.DELETE("/board/members/:id", admin, boardHandler.DeleteMember)

		// Evaluation categories and aspects
		api.GET("/evaluation-categories", evalHandler.ListCategories)
		api.POST("/evaluation-categories", admin, evalHandler.CreateCategory)
		api.PATCH("/evaluation-categories/:id", admin, evalHandler.UpdateCategory)
		api.PUT("/evaluation-categories/:id/order", admin, evalHandler.MoveCategory)
		api.DELETE("/evaluation-categories/:id", admin, evalHandler.DeleteCategory)
		api.GET("/evaluation-aspects", evalHandler.ListAspects)
		api.POST("/evaluation-aspects", admin, evalHandler.CreateAspect)
		api.PATCH("/evaluation-aspects/:id", admin, evalHandler.UpdateAspect)
		api.PUT("/evaluation-aspects/:id/order", admin, evalHandler.MoveAspect)
		api.DELETE("/evaluation-aspects/:id", admin, evalHandler.DeleteAspect)

		// Teacher evaluations
		api.GET("/evaluations", evalHandler.List)
		api.POST("/evaluations", reviewer, evalHandler.Create)
		api.GET("/evaluations/export", reviewer, evalHandler.Export)
		api.GET("/evaluations/:id", evalHandler.GetByID)
		api.PUT("/evaluations/:id/items", reviewer, evalHandler.UpsertItem)
		api.DELETE("/evaluations/:id/items/:itemID", reviewer, evalHandler.DeleteItem)
		api.PATCH("/evaluations/:id/notes", reviewer, evalHandler.UpdateNotes)
		api.DELETE("/evaluations/:id", admin, evalHandler.Delete)

		// Media files
		api.POST("/media", mediaHandler.Upload)
		api.GET("/media", mediaHandler.List)
		api.GET("/media/:id", mediaHandler.GetByID)
		api.GET("/media/:id/download", mediaHandler.Download)
		api.GET("/media/:id/stream", mediaHandler.Stream)
		api.DELETE("/media/:id", admin, mediaHandler.Delete)

		// RPP submissions
		api.POST("/rpp", middleware.RequireRole("guru"), rppHandler.Submit)
		api.GET("/rpp", rppHandler.List)
		api.GET("/rpp/:id", rppHandler.GetByID)
		api.PUT("/rpp/:id/review", middleware.RequireRole("kepala_sekolah"), rppHandler.Review)
		api.PUT("/rpp/:id/resubmit", middleware.RequireRole("guru"), rppHandler.Resubmit)
		api.DELETE("/rpp/:id", admin, rppHandler.Delete)

		// Contact messages (admin inbox)
		api.GET("/messages", admin, messageHandler.List)
		api.GET("/messages/:id", admin, messageHandler.GetByID)
		api.PUT("/messages/:id/status", admin, messageHandler.SetStatus)
		api.DELETE("/messages/:id", admin, messageHandler.Delete)

		// Dashboards
		api.GET("/dashboard/admin", reviewer, dashboardHandler.Admin)
		api.GET("/dashboard/guru", middleware.RequireRole("guru"), dashboardHandler.Guru)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
