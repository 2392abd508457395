package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/plurahq/agencyhub/internal/api"
	"github.com/plurahq/agencyhub/internal/cache"
	"github.com/plurahq/agencyhub/internal/config"
	"github.com/plurahq/agencyhub/internal/db"
	"github.com/plurahq/agencyhub/internal/identity"
	"github.com/plurahq/agencyhub/internal/middleware"
	"github.com/plurahq/agencyhub/internal/observ"
	"github.com/plurahq/agencyhub/internal/realtime"
	"github.com/plurahq/agencyhub/internal/repository/postgres"
	"github.com/plurahq/agencyhub/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	// Startup has no parent deadline; Background() is fine here. Each
	// request gets its own context once the server is up.
	database, err := db.New(context.Background(), cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	if err := db.Migrate(context.Background(), database, logger); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	// Repositories share the pool; it is goroutine-safe.
	pool := database.Pool()
	agencyRepo := postgres.NewAgencyStore(pool)
	subAccountRepo := postgres.NewSubAccountStore(pool)
	userRepo := postgres.NewUserStore(pool)
	permissionRepo := postgres.NewPermissionStore(pool)
	invitationRepo := postgres.NewInvitationStore(pool)
	notificationRepo := postgres.NewNotificationStore(pool)

	// External identity provider. Without an API key the metadata push
	// becomes a no-op, which keeps local development self-contained.
	var provider identity.Provider = identity.Noop{}
	if cfg.IdentityAPIKey != "" {
		provider = identity.NewClient(cfg.IdentityAPIURL, cfg.IdentityAPIKey, logger.Named("identity"))
	}

	hub := realtime.NewHub(redisClient, logger.Named("realtime"))
	permCache := cache.NewPermissionCache(redisClient, logger.Named("cache"))

	activitySvc := service.NewActivityService(userRepo, subAccountRepo, notificationRepo, hub, logger.Named("activity"))
	invitationSvc := service.NewInvitationService(invitationRepo, userRepo, activitySvc, provider, logger.Named("invitations"))
	permissionSvc := service.NewPermissionService(permissionRepo, subAccountRepo, userRepo, activitySvc, permCache, logger.Named("permissions"))
	userSvc := service.NewUserService(userRepo, agencyRepo, permissionRepo, provider, logger.Named("users"))
	agencySvc := service.NewAgencyService(agencyRepo, userRepo, notificationRepo, logger.Named("agencies"))
	subAccountSvc := service.NewSubAccountService(subAccountRepo, userRepo, permissionRepo, logger.Named("subaccounts"))

	userHandler := api.NewUserHandler(userSvc, activitySvc, logger.Named("api"))
	permissionHandler := api.NewPermissionHandler(permissionSvc, logger.Named("api"))
	invitationHandler := api.NewInvitationHandler(invitationSvc, logger.Named("api"))
	agencyHandler := api.NewAgencyHandler(agencySvc, activitySvc, logger.Named("api"))
	subAccountHandler := api.NewSubAccountHandler(subAccountSvc, activitySvc, logger.Named("api"))
	notificationHandler := api.NewNotificationHandler(agencySvc, hub, logger.Named("api"))
	webhookHandler := api.NewWebhookHandler(userSvc, cfg.IdentityWebhookSecret, logger.Named("api"))

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := gin.New()
	srv.Use(gin.Logger(), gin.Recovery())

	// Public: health for load balancers, webhook for the provider
	// (authenticated by HMAC signature, not a session).
	srv.GET("/v1/health", func(c *gin.Context) {
		if err := database.Health(c.Request.Context()); err != nil {
			c.JSON(503, gin.H{"status": "degraded"})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})
	srv.POST("/v1/webhooks/identity", webhookHandler.Identity)

	v1 := srv.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	v1.POST("/users/init", userHandler.Init)
	v1.GET("/users/me", userHandler.Me)
	v1.PUT("/users/me", userHandler.Update)
	v1.GET("/users/:userId/permissions", userHandler.Permissions)

	v1.PUT("/permissions", permissionHandler.Set)

	v1.POST("/invitations", invitationHandler.Send)
	v1.POST("/invitations/accept", invitationHandler.Accept)

	v1.POST("/agencies", agencyHandler.Upsert)
	v1.GET("/agencies/:agencyId", agencyHandler.Get)
	v1.PUT("/agencies/:agencyId", agencyHandler.Update)
	v1.PUT("/agencies/:agencyId/goal", agencyHandler.UpdateGoal)
	v1.DELETE("/agencies/:agencyId", agencyHandler.Delete)
	v1.GET("/agencies/:agencyId/notifications", notificationHandler.List)
	v1.GET("/agencies/:agencyId/notifications/stream", notificationHandler.Stream)

	v1.POST("/subaccounts", subAccountHandler.Upsert)
	v1.GET("/subaccounts/:subAccountId", subAccountHandler.Get)
	v1.DELETE("/subaccounts/:subAccountId", subAccountHandler.Delete)
	v1.GET("/subaccounts/:subAccountId/access", permissionHandler.Access)

	logger.Info("starting agencyhub",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
	)

	return srv.Run(":" + cfg.Port)
}
