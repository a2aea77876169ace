package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/kenailandsales/land-api/api/swagger"
	"github.com/kenailandsales/land-api/internal/handler"
	"github.com/kenailandsales/land-api/internal/middleware"
	"github.com/kenailandsales/land-api/internal/repository"
	"github.com/kenailandsales/land-api/internal/service"
	"github.com/kenailandsales/land-api/pkg/config"
	"github.com/kenailandsales/land-api/pkg/database"
	"github.com/kenailandsales/land-api/pkg/jobs"
	"github.com/kenailandsales/land-api/pkg/logger"
	corsmiddleware "github.com/kenailandsales/land-api/pkg/middleware/cors"
	reqidmiddleware "github.com/kenailandsales/land-api/pkg/middleware/requestid"
	"github.com/kenailandsales/land-api/pkg/payments"
	"github.com/kenailandsales/land-api/pkg/storage"
)

// @title Kenai Land Sales API
// @version 1.0.0
// @description Land listings marketplace: browse parcels, post paid listings, message sellers
// @BasePath /api/v1
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
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	mediaStore, err := storage.NewLocalStorage(cfg.Media.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init media storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Media.SignedURLSecret, cfg.Media.SignedURLTTL)

	listingRepo := repository.NewListingRepository(db)
	userRepo := repository.NewUserRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	metricsSvc := service.NewMetricsService()
	stripeClient := payments.NewStripeClient(cfg.Stripe)
	paymentSvc := service.NewPaymentService(paymentRepo, listingRepo, stripeClient, logr, metricsSvc, cfg.Listings)
	listingSvc := service.NewListingService(listingRepo, paymentSvc, nil, logr, metricsSvc, cfg.Listings.Duration)
	messageSvc := service.NewMessageService(messageRepo, listingRepo, nil, logr)
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "land-api",
	})
	lifecycleSvc := service.NewLifecycleService(listingRepo, logr, metricsSvc)

	authHandler := handler.NewAuthHandler(authSvc)
	listingHandler := handler.NewListingHandler(listingSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	messageHandler := handler.NewMessageHandler(messageSvc)
	mediaHandler := handler.NewMediaHandler(listingSvc, mediaStore, signer, cfg.Media)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
			auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
		}

		listings := api.Group("/listings")
		{
			listings.GET("", listingHandler.Browse)
			listings.GET("/mine", middleware.JWT(authSvc), listingHandler.Mine)
			listings.GET("/mine/export.csv", middleware.JWT(authSvc), listingHandler.ExportCSV)
			listings.GET("/:id", middleware.OptionalJWT(authSvc), listingHandler.Get)
			listings.GET("/:id/sheet.pdf", listingHandler.PropertySheet)
			listings.POST("", middleware.JWT(authSvc), listingHandler.Create)
			listings.PUT("/:id", middleware.JWT(authSvc), listingHandler.Update)
			listings.POST("/:id/checkout", middleware.JWT(authSvc), listingHandler.RetryCheckout)
			listings.POST("/:id/feature", middleware.JWT(authSvc), paymentHandler.Feature)
			listings.POST("/:id/images", middleware.JWT(authSvc), mediaHandler.UploadImage)
			listings.POST("/:id/documents", middleware.JWT(authSvc), mediaHandler.UploadDocument)
		}

		api.GET("/media/:token", mediaHandler.Download)

		api.POST("/payments/webhook", paymentHandler.Webhook)
		api.GET("/payments", middleware.JWT(authSvc), paymentHandler.History)

		messages := api.Group("/messages", middleware.JWT(authSvc))
		{
			messages.POST("", messageHandler.Send)
			messages.GET("", messageHandler.Inbox)
			messages.POST("/:id/read", messageHandler.MarkRead)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sweeper *jobs.Runner
	if cfg.Sweep.Enabled {
		sweeper = jobs.NewRunner("listing-sweep", cfg.Sweep.Interval, lifecycleSvc.Sweep, jobs.RunnerConfig{
			MaxRetries: 2,
			RetryDelay: 30 * time.Second,
			Logger:     logr,
		})
		sweeper.Start(ctx)
		defer sweeper.Stop()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}
