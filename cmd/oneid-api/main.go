package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/oneid-dev/oneid-api/api/swagger"
	"github.com/oneid-dev/oneid-api/internal/handler"
	internalmiddleware "github.com/oneid-dev/oneid-api/internal/middleware"
	"github.com/oneid-dev/oneid-api/internal/repository"
	"github.com/oneid-dev/oneid-api/internal/service"
	"github.com/oneid-dev/oneid-api/pkg/cache"
	"github.com/oneid-dev/oneid-api/pkg/config"
	"github.com/oneid-dev/oneid-api/pkg/database"
	"github.com/oneid-dev/oneid-api/pkg/logger"
	corsmiddleware "github.com/oneid-dev/oneid-api/pkg/middleware/cors"
	reqidmiddleware "github.com/oneid-dev/oneid-api/pkg/middleware/requestid"
)

// @title OneID API
// @version 1.0.0
// @description Central login platform: token issuance, validation, refresh and revocation
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	validate := validator.New()

	appRepo := repository.NewApplicationRepository(db)
	openIDRepo := repository.NewOpenIDRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	userRepo := repository.NewUserRepository(db)
	codeRepo := repository.NewCodeRepository(redisClient)

	metricsSvc := service.NewMetricsService()
	appSvc := service.NewAppService(appRepo, logr)
	openIDSvc := service.NewOpenIDService(openIDRepo, logr)
	stateSvc := service.NewStateService(service.StateConfig{Secret: cfg.State.Secret, TTL: cfg.State.TTL})
	tokenSvc := service.NewTokenService(appSvc, openIDSvc, tokenRepo, codeRepo, validate, logr, service.TokenConfig{
		AccessTTL:  cfg.Token.AccessTTL,
		RefreshTTL: cfg.Token.RefreshTTL,
	})
	accountSvc := service.NewAccountService(appSvc, userRepo, openIDSvc, codeRepo, stateSvc, tokenRepo, validate, logr, cfg.Token.LoginCodeTTL)
	profileSvc := service.NewProfileService(appSvc, tokenSvc, userRepo, validate, logr)

	tokenHandler := handler.NewTokenHandler(tokenSvc, metricsSvc)
	loginHandler := handler.NewLoginHandler(accountSvc)
	profileHandler := handler.NewProfileHandler(profileSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/login", loginHandler.Login)
		api.GET("/federated/authorize", loginHandler.FederatedAuthorize)
		api.POST("/federated/callback", loginHandler.FederatedCallback)

		api.POST("/oauth2/token", tokenHandler.Issue)
		api.POST("/oauth2/status", tokenHandler.Status)
		api.POST("/oauth2/refresh", tokenHandler.Refresh)
		api.POST("/oauth2/logout", tokenHandler.Logout)

		api.POST("/user/email", profileHandler.Email)
		api.POST("/user/profile", profileHandler.Profile)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// OPTIONS never reaches the handlers above; the CORS middleware answers
	// pre-flights for any route.
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"status": "not found"})
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
