package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "cycle-backend/internal/api/http"
	"cycle-backend/internal/config"
	"cycle-backend/internal/logger"
	"cycle-backend/internal/repository/postgres"
	"cycle-backend/internal/security"
	"cycle-backend/internal/service"
	"cycle-backend/internal/storage"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Local overrides; a missing .env is fine
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Cycle Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "health_address", cfg.GetHealthAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Test database connection
	if err := db.PingContext(ctx); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
	}

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Security
	tokenManager := security.NewTokenManager(
		cfg.JWT.Secret,
		time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute,
		time.Duration(cfg.JWT.RefreshTokenExpiry)*time.Minute,
	)

	// Analytics event stream
	var publisher service.EventPublisher
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Invalid redis url: %v", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unreachable, events will only be stored in the database", "error", err)
		}
		publisher = service.NewRedisEventPublisher(rdb, cfg.Redis.EventStream, cfg.Redis.StreamMaxLen)
		logger.Info("Publishing events to redis stream", "stream", cfg.Redis.EventStream)
	} else {
		logger.Info("Redis not configured, events will only be stored in the database")
	}
	events := service.NewEventTracker(store.Events(), publisher)

	// Initialize Storage Service
	var storageService storage.StorageInterface
	var mockStorage *storage.MockStorageService
	switch cfg.Storage.Type {
	case "", "mock":
		logger.Info("Using mock storage (local filesystem)", "upload_dir", cfg.Storage.UploadDir)
		mockStorage, err = storage.NewMockStorageService(cfg.Storage.BaseURL, cfg.Storage.UploadDir)
		if err != nil {
			logger.Error("Failed to initialize mock storage", "error", err)
			log.Fatalf("Failed to initialize mock storage: %v", err)
		}
		storageService = mockStorage
	case "s3":
		logger.Info("Using S3 storage", "bucket", cfg.Storage.Bucket, "region", cfg.Storage.Region)
		s3Storage, err := storage.NewS3StorageService(ctx, cfg.Storage.Bucket, cfg.Storage.Region, cfg.Storage.PublicBaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize s3 storage: %v", err)
		}
		storageService = s3Storage
	}
	urlExpiry := time.Duration(cfg.Storage.URLExpiryMin) * time.Minute

	// Delivery providers fall back to log-only implementations when unconfigured
	var emailSvc service.EmailService
	if cfg.SendGrid.APIKey != "" {
		emailSvc = service.NewSendGridEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
	} else {
		logger.Warn("SendGrid not configured, emails will be logged only")
		emailSvc = service.NewLogEmailService()
	}
	pushSender := service.NewNoopPushSender()
	if cfg.Firebase.CredentialsFile != "" {
		fcm, err := service.NewFirebasePushSender(ctx, cfg.Firebase.CredentialsFile)
		if err != nil {
			logger.Error("Failed to initialize firebase, push disabled", "error", err)
		} else {
			pushSender = fcm
		}
	}
	var cardGateway service.CardGateway
	if cfg.Stripe.SecretKey != "" {
		cardGateway = service.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)
	} else {
		logger.Warn("Stripe not configured, card payments disabled")
	}

	// Initialize Services
	policySvc := service.NewPolicyService(store.Policies(), store)
	authSvc := service.NewAuthService(store.Users(), policySvc, tokenManager, events, emailSvc, cfg.Server.PublicURL)
	userSvc := service.NewUserService(store.Users(), store.Devices())
	rentalSvc := service.NewRentalService(store.Rentals(), store, events)
	earningsSvc := service.NewEarningsService(store.Earnings())
	noteSvc := service.NewNotificationService(store.Notifications(), store.Devices(), store.Users(), pushSender, emailSvc)
	dockSvc := service.NewDockService(store.Docks(), events)
	zoneSvc := service.NewZoneService(store.Zones(), events)
	bikeSvc := service.NewBikeService(service.BikeServiceDeps{
		BikeRepo:     store.Bikes(),
		UserRepo:     store.Users(),
		DockRepo:     store.Docks(),
		Tx:           store,
		Policies:     policySvc,
		Events:       events,
		Storage:      storageService,
		AllowedTypes: cfg.Storage.AllowedTypes,
		URLExpiry:    urlExpiry,
	})
	paymentSvc := service.NewPaymentService(service.PaymentServiceDeps{
		PaymentRepo:       store.Payments(),
		RentalRepo:        store.Rentals(),
		Tx:                store,
		Earnings:          earningsSvc,
		Policies:          policySvc,
		Notifications:     noteSvc,
		Events:            events,
		Card:              cardGateway,
		Currency:          cfg.Stripe.Currency,
		MpesaInstructions: cfg.Mpesa.Instructions,
	})
	verificationSvc := service.NewVerificationService(store.Verifications(), store.Users(), store, storageService, noteSvc, events, urlExpiry)
	analyticsSvc := service.NewAnalyticsService(store.Events())
	syncSvc := service.NewEventSyncService(store, publisher)

	routerCfg := httpapi.RouterConfig{
		TokenManager:        tokenManager,
		CORSOrigins:         cfg.Server.CORSOrigins,
		PaymentInstructions: cfg.Mpesa.Instructions,
		AllowedTypes:        cfg.Storage.AllowedTypes,
	}
	if mockStorage != nil {
		routerCfg.MockStorage = mockStorage
	}
	router := httpapi.NewRouter(&httpapi.Services{
		Auth:          authSvc,
		Users:         userSvc,
		Rentals:       rentalSvc,
		Bikes:         bikeSvc,
		Docks:         dockSvc,
		Payments:      paymentSvc,
		Earnings:      earningsSvc,
		Notifications: noteSvc,
		Verification:  verificationSvc,
		Policies:      policySvc,
		Analytics:     analyticsSvc,
		Zones:         zoneSvc,
		Sync:          syncSvc,
	}, routerCfg)

	srv := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// gRPC health endpoint for orchestrators
	var grpcServer *grpc.Server
	if addr := cfg.GetHealthAddress(); addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			logger.Error("Failed to listen", "error", err, "address", addr)
			log.Fatalf("Failed to listen: %v", err)
		}
		grpcServer = grpc.NewServer()
		healthServer := health.NewServer()
		healthpb.RegisterHealthServer(grpcServer, healthServer)
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

		// Register reflection service for grpcurl
		reflection.Register(grpcServer)

		go func() {
			logger.Info("gRPC health server listening", "address", addr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC health server error", "error", err)
			}
		}()
	}

	go func() {
		logger.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	logger.Info("Server stopped. Goodbye!")
}
