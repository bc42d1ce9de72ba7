package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/talimuddin/roomhub/internal/api"
	"github.com/talimuddin/roomhub/internal/assets"
	"github.com/talimuddin/roomhub/internal/cache"
	"github.com/talimuddin/roomhub/internal/config"
	"github.com/talimuddin/roomhub/internal/content"
	"github.com/talimuddin/roomhub/internal/db"
	"github.com/talimuddin/roomhub/internal/middleware"
	"github.com/talimuddin/roomhub/internal/observ"
	"github.com/talimuddin/roomhub/internal/policy"
	"github.com/talimuddin/roomhub/internal/repository/postgres"
	"github.com/talimuddin/roomhub/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	pol, err := policy.FromName(cfg.RoomPolicy)
	if err != nil {
		return fmt.Errorf("room policy: %w", err)
	}

	if err := db.Migrate(context.Background(), cfg.DatabaseURL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	database, err := db.New(context.Background(), cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	pool := database.Pool()
	roomRepo := postgres.NewRoomStore(pool)
	membershipRepo := postgres.NewMembershipStore(pool)
	userRepo := postgres.NewUserStore(pool)
	postRepo := postgres.NewPostStore(pool)

	// The join-code cache is an optimization; the server runs without it.
	var joinCache service.JoinCodeCache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRoomCache(cfg.RedisURL, logger)
		if err != nil {
			logger.Warn("redis unavailable, join-code cache disabled", zap.Error(err))
		} else {
			defer rc.Close()
			joinCache = rc
		}
	}

	var assetStorage assets.Storage = assets.NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseBucket)

	contentSvc := content.NewService(postRepo)
	roomSvc := service.NewRoomService(roomRepo, membershipRepo, userRepo, contentSvc, assetStorage, joinCache, pol, logger)

	authHandler := api.NewAuthHandler(userRepo, cfg.JWTSecret, logger)
	roomHandler := api.NewRoomHandler(roomSvc, logger)
	membershipHandler := api.NewMembershipHandler(roomSvc, logger)
	postHandler := api.NewPostHandler(roomSvc, logger)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := gin.New()
	srv.Use(gin.Logger(), gin.Recovery())

	logger.Info("starting roomhub",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
		zap.String("policy", pol.Name),
	)

	// Health check is public so load balancers can probe it.
	srv.GET("/v1/health", func(c *gin.Context) {
		if err := database.Health(c.Request.Context()); err != nil {
			c.JSON(503, gin.H{"status": "degraded"})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := srv.Group("/v1")
	v1.POST("/auth/signup", authHandler.Signup)
	v1.POST("/auth/login", authHandler.Login)

	authed := v1.Group("")
	authed.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	authed.GET("/auth/me", authHandler.Me)

	rooms := authed.Group("/rooms")
	rooms.POST("", roomHandler.Create)
	rooms.POST("/join", roomHandler.Join)
	rooms.GET("/mine", roomHandler.Mine)
	rooms.GET("/hidden", roomHandler.Hidden)
	rooms.GET("/archived", roomHandler.Archived)
	rooms.GET("/:roomId", roomHandler.Details)
	rooms.PATCH("/:roomId", roomHandler.Update)
	rooms.PATCH("/:roomId/cover", roomHandler.UpdateCover)
	rooms.PATCH("/:roomId/archive", roomHandler.ToggleArchive)
	rooms.PATCH("/:roomId/hide", roomHandler.ToggleHide)
	rooms.DELETE("/:roomId", roomHandler.Delete)
	rooms.POST("/:roomId/leave", roomHandler.Leave)
	rooms.POST("/:roomId/reconcile", roomHandler.Reconcile)

	rooms.GET("/:roomId/members", membershipHandler.ListMembers)
	rooms.PATCH("/:roomId/members/:membershipId", membershipHandler.Promote)
	rooms.GET("/:roomId/requests", membershipHandler.ListRequests)
	rooms.POST("/:roomId/requests/:membershipId/approve", membershipHandler.Approve)
	rooms.POST("/:roomId/requests/:membershipId/reject", membershipHandler.Reject)

	rooms.GET("/:roomId/posts", postHandler.List)
	rooms.POST("/:roomId/posts", postHandler.Create)
	rooms.POST("/:roomId/posts/:postId/read", postHandler.MarkRead)

	return srv.Run(":" + cfg.Port)
}
