// Package main runs the team activity HTTP API with the realtime change feed and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/teamhuddle/backend/config"
	"github.com/teamhuddle/backend/internal/activities"
	"github.com/teamhuddle/backend/internal/auth"
	"github.com/teamhuddle/backend/internal/leaderboard"
	"github.com/teamhuddle/backend/internal/middleware"
	"github.com/teamhuddle/backend/internal/notifications"
	"github.com/teamhuddle/backend/internal/participation"
	"github.com/teamhuddle/backend/internal/polls"
	"github.com/teamhuddle/backend/internal/profiles"
	"github.com/teamhuddle/backend/internal/realtime"
	"github.com/teamhuddle/backend/pkg/database"
	"github.com/teamhuddle/backend/pkg/queue"
	"github.com/teamhuddle/backend/pkg/redis"
	"github.com/teamhuddle/backend/pkg/response"
	"github.com/teamhuddle/backend/pkg/storage"
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

	var avatars profiles.AvatarStore
	if cfg.AWS.Region != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			AvatarsBucket:   cfg.AWS.AvatarsBucket,
			PublicBaseURL:   cfg.AWS.PublicBaseURL,
		}, logger)
		if err != nil {
			logger.Warn("avatar uploads disabled", zap.Error(err))
		} else {
			avatars = s3Client
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	changes := realtime.NewRedisPubSub(rdb.Client, logger)
	notifier := notifications.NewQueueDispatcher(jobQueue, logger)

	// Profiles and admin allowlist
	profileRepo := profiles.NewRepository(pool)
	profileSvc := profiles.NewService(profileRepo, avatars, changes, logger)
	profileHandler := profiles.NewHandler(profileSvc, cfg.Secrets.Webhook, logger)
	seed, err := config.LoadAdminSeed(cfg.AdminSeed)
	if err != nil {
		logger.Fatal("admin seed", zap.Error(err))
	}
	if err := profileSvc.SeedAdmins(ctx, seed); err != nil {
		logger.Fatal("seed admins", zap.Error(err))
	}

	// Polls
	pollSvc := polls.NewService(polls.NewRepository(pool), notifier, changes, logger, polls.WithLocation(cfg.Polls.Location()))
	pollHandler := polls.NewHandler(pollSvc, jobQueue, cfg.Secrets.Cron, logger)

	// Activities, participation, leaderboard
	participationRepo := participation.NewRepository(pool)
	activitySvc := activities.NewService(activities.NewRepository(pool), profileRepo, notifier, changes, logger)
	activityHandler := activities.NewHandler(activitySvc, participationRepo, logger)
	participationSvc := participation.NewService(participationRepo, activitySvc, profileRepo, notifier, changes, logger)
	participationHandler := participation.NewHandler(participationSvc, logger)
	leaderboardSvc := leaderboard.NewService(leaderboard.NewRepository(pool), activitySvc, notifier, changes, logger)
	leaderboardHandler := leaderboard.NewHandler(leaderboardSvc, logger)

	notificationHandler := notifications.NewHandler(notifications.NewRepository(pool), logger)

	// Realtime
	hub := realtime.NewHub(cfg.Realtime.Debounce, logger)
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	if err := hub.Run(hubCtx, changes); err != nil {
		logger.Fatal("realtime subscribe", zap.Error(err))
	}
	wsValidate := func(token string) (uuid.UUID, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return uuid.Nil, err
		}
		return claims.UserID()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Machine callers (shared secrets checked in handlers)
	router.POST("/webhooks/auth/signup", profileHandler.Signup)
	router.POST("/internal/polls/process-expired", pollHandler.ProcessExpiredCron)

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, logger, wsValidate))

	// Protected API (JWT + active profile required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService), middleware.LoadProfile(profileRepo, logger))
	admin := middleware.RequireAdmin()
	{
		// Me
		api.GET("/me", profileHandler.Me)
		api.PATCH("/me", profileHandler.UpdateMe)
		api.PATCH("/me/status", profileHandler.SetMyStatus)
		api.POST("/me/avatar", profileHandler.UploadAvatar)

		// Polls
		api.GET("/polls", pollHandler.List)
		api.GET("/polls/:id", pollHandler.Get)
		api.POST("/polls", pollHandler.Create)
		api.POST("/polls/:id/vote", pollHandler.Vote)
		api.PUT("/polls/:id/vote", pollHandler.ChangeVote)
		api.POST("/polls/:id/close", admin, pollHandler.Close)
		api.DELETE("/polls/:id", admin, pollHandler.Delete)
		api.POST("/polls/process-expired", admin, pollHandler.ProcessExpired)

		// Activities
		api.GET("/activities", activityHandler.List)
		api.GET("/activities/:id", activityHandler.Get)
		api.POST("/activities", admin, activityHandler.Create)
		api.PATCH("/activities/:id", admin, activityHandler.Update)
		api.POST("/activities/:id/complete", admin, activityHandler.Complete)
		api.POST("/activities/:id/cancel", admin, activityHandler.Cancel)
		api.DELETE("/activities/:id", admin, activityHandler.Delete)

		// Participation
		api.POST("/activities/:id/respond", participationHandler.Respond)
		api.GET("/activities/:id/participants", participationHandler.List)

		// Leaderboard
		api.GET("/leaderboard", leaderboardHandler.Overview)
		api.GET("/activities/:id/leaderboard", leaderboardHandler.Board)
		api.PUT("/activities/:id/leaderboard/:userId", admin, leaderboardHandler.SetRank)

		// Notifications
		api.GET("/notifications", notificationHandler.List)
		api.POST("/notifications/:id/read", notificationHandler.MarkRead)
		api.POST("/notifications/read-all", notificationHandler.MarkAllRead)

		// User and admin management
		api.GET("/users", admin, profileHandler.List)
		api.PATCH("/users/:id/role", admin, profileHandler.SetRole)
		api.PATCH("/users/:id/status", admin, profileHandler.SetStatus)
		api.GET("/admins", admin, profileHandler.ListAdmins)
		api.POST("/admins", admin, profileHandler.AddAdmin)
		api.DELETE("/admins/:id", admin, profileHandler.RemoveAdmin)
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

	hubCancel()
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
