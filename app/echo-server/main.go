package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"electroCare/app/echo-server/router"
	"electroCare/business/broadcast"
	"electroCare/business/marketplace"
	"electroCare/business/recruitment"
	"electroCare/business/repair"
	"electroCare/business/shop"
	"electroCare/business/upload"
	userService "electroCare/business/user"
	"electroCare/business/wallet"
	"electroCare/domain"
	"electroCare/internal/middleware"
	"electroCare/internal/realtime"
	"electroCare/internal/repository/memory"
	"electroCare/internal/repository/notification"
	psqlRepo "electroCare/internal/repository/postgres"
	"electroCare/internal/repository/rabbitmq"
	redisRepo "electroCare/internal/repository/redis"
	"electroCare/internal/repository/storage"
	"electroCare/internal/repository/xendit"
	"electroCare/internal/rest"
	"electroCare/pkg/config"
	"electroCare/pkg/database"
	redisdb "electroCare/pkg/database/redis"
	"electroCare/pkg/logger"
	"electroCare/pkg/metrics"
	"electroCare/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
)

type eventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

type tokenStore interface {
	userService.TokenRepository
	middleware.TokenValidator
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.Environment)
	logger.Info("Starting ElectroCare", "version", cfg.App.Version, "env", cfg.App.Environment)

	utils.SetJWTConfig(cfg.JWT.SecretKey, cfg.JWT.TTL)
	metrics.Init()

	db, err := database.InitPostgres(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	logger.Info("Database connected successfully")

	// Background workers stop when the server shuts down.
	bgCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	hub := realtime.NewHub(cfg.Server.AllowedOrigins)

	var (
		redisClient *redis.Client
		events      eventPublisher = hub
		tokens      tokenStore     = memory.NewStore().Tokens()
	)
	if cfg.Redis.Enabled {
		redisClient, err = redisdb.NewRedisClient(cfg)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", "error", err)
		}

		bus := redisRepo.NewEventBus(redisClient)
		go bus.Relay(bgCtx, hub.Deliver)

		events = bus
		tokens = redisRepo.NewTokenRepository(redisClient)
		logger.Info("Redis connected successfully")
	} else {
		logger.Warn("Redis disabled: sessions are kept in memory and realtime events stay on this instance")
	}

	// Init notification from mailjet
	mailjetEmail := notification.NewMailjetRepository(
		notification.MailjetConfig{
			MailjetBaseURL:           cfg.Mailjet.MailjetBaseUrl,
			MailjetBasicAuthUsername: cfg.Mailjet.MailjetBasicAuthUsername,
			MailjetBasicAuthPassword: cfg.Mailjet.MailjetBasicAuthPassword,
			MailjetSenderEmail:       cfg.Mailjet.MailjetSenderEmail,
			MailjetSenderName:        cfg.Mailjet.MailjetSenderName,
		},
	)

	xenditRepo := xendit.NewXenditRepository(
		xendit.XenditConfig{
			XenditApi: cfg.Payout.XenditSecretKey,
			XenditUrl: cfg.Payout.XenditUrl,
		},
	)

	s3Repo, err := storage.NewS3Repository(context.Background(), storage.S3Config{
		Region:        cfg.Storage.Region,
		Bucket:        cfg.Storage.Bucket,
		Endpoint:      cfg.Storage.Endpoint,
		AccessKey:     cfg.Storage.AccessKey,
		SecretKey:     cfg.Storage.SecretKey,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
	})
	if err != nil {
		logger.Fatal("Failed to init object storage", "error", err)
	}

	var (
		jobQueue       broadcast.JobQueue
		broadcastQueue *rabbitmq.BroadcastQueue
	)
	if cfg.RabbitMQ.Enabled {
		broadcastQueue = rabbitmq.NewBroadcastQueue(cfg.RabbitMQ.URL, cfg.RabbitMQ.BroadcastQueue)
		jobQueue = broadcastQueue
	}

	// Init validate
	validate := validator.New()

	// Init repo
	userRepo := psqlRepo.NewUserRepository(db)
	walletRepo := psqlRepo.NewWalletRepository(db)
	referralRepo := psqlRepo.NewReferralRepository(db)
	repairRepo := psqlRepo.NewRepairRepository(db)
	saleRepo := psqlRepo.NewDeviceSaleRepository(db)
	shopRepo := psqlRepo.NewShopRepository(db)
	appRepo := psqlRepo.NewRoleApplicationRepository(db)
	seqRepo := psqlRepo.NewSequenceRepository(db)
	transactor := psqlRepo.NewTransactor(db)

	// Init service
	userSvc := userService.NewUserService(userRepo, walletRepo, referralRepo, tokens, mailjetEmail, transactor, validate, userService.Config{
		AppEmailVerificationKey: cfg.App.AppEmailVerificationKey,
		AppDeploymentUrl:        cfg.App.AppDeploymentUrl,
	})
	repairSvc := repair.NewRepairService(repairRepo, userRepo, seqRepo, events, transactor)
	marketplaceSvc := marketplace.NewMarketplaceService(saleRepo, shopRepo, walletRepo, seqRepo, transactor)
	walletSvc := wallet.NewWalletService(walletRepo, userRepo, xenditRepo, transactor)
	recruitmentSvc := recruitment.NewRecruitmentService(appRepo, userRepo, transactor, validate)
	shopSvc := shop.NewShopService(shopRepo, userRepo)
	broadcastSvc := broadcast.NewBroadcastService(jobQueue, userRepo, mailjetEmail)
	uploadSvc := upload.NewUploadService(s3Repo, cfg.Storage.MaxUploadSize)

	if broadcastQueue != nil {
		go broadcastQueue.Consume(bgCtx, func(ctx context.Context, job domain.BroadcastJob) error {
			_, err := broadcastSvc.Deliver(ctx, job)
			return err
		})
	}

	// Init handler
	userHandler := rest.NewUserHandler(userSvc)
	repairHandler := rest.NewRepairHandler(repairSvc)
	marketplaceHandler := rest.NewMarketplaceHandler(marketplaceSvc)
	walletHandler := rest.NewWalletHandler(walletSvc)
	recruitmentHandler := rest.NewRecruitmentHandler(recruitmentSvc)
	shopHandler := rest.NewShopHandler(shopSvc)
	broadcastHandler := rest.NewBroadcastHandler(broadcastSvc)
	uploadHandler := rest.NewUploadHandler(uploadSvc)
	realtimeHandler := rest.NewRealtimeHandler(hub, repairSvc)

	// Init echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// HTTP error handler
	e.HTTPErrorHandler = middleware.ErrorHandler

	// Global middleware
	e.Use(middleware.RequestLogger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	authRequired := middleware.AuthMiddleware(tokens, userRepo)
	rateLimit := middleware.RateLimit(cfg.RateLimit, redisClient)

	// Setup routes
	router.SetupSystemRoutes(e)

	api := e.Group("/api")
	router.SetupAuthRoutes(api, userHandler, authRequired, rateLimit)
	router.SetupRepairRoutes(api, repairHandler, authRequired)
	router.SetupMarketplaceRoutes(api, marketplaceHandler, authRequired)
	router.SetupWalletRoutes(api, walletHandler, authRequired)
	router.SetupRecruitmentRoutes(api, recruitmentHandler, authRequired)
	router.SetupShopRoutes(api, shopHandler, authRequired)
	router.SetupUploadRoutes(api, uploadHandler, authRequired, strconv.FormatInt(cfg.Storage.MaxUploadSize+(64<<10), 10))
	router.SetupRealtimeRoutes(api, realtimeHandler, authRequired)
	router.SetupAdminRoutes(api, router.AdminHandlers{
		Users:       userHandler,
		Marketplace: marketplaceHandler,
		Wallet:      walletHandler,
		Recruitment: recruitmentHandler,
		Broadcast:   broadcastHandler,
		Shops:       shopHandler,
	}, authRequired)

	// Goroutine server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server starting", "address", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown server
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	stopWorkers()

	if broadcastQueue != nil {
		if err := broadcastQueue.Close(); err != nil {
			logger.Error("Broadcast queue close error", "error", err)
		}
	}

	if err := redisdb.CloseRedisClient(redisClient); err != nil {
		logger.Error("Redis close error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Info("Server stopped")
}
