package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cycle-backend/internal/config"
	"cycle-backend/internal/jobs"
	"cycle-backend/internal/logger"
	"cycle-backend/internal/repository/postgres"
	"cycle-backend/internal/scheduler"
	"cycle-backend/internal/service"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'remind-long-rides', 'all')")
	flag.Parse()

	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Cycle Cronjob Runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Services
	var emailSvc service.EmailService
	if cfg.SendGrid.APIKey != "" {
		emailSvc = service.NewSendGridEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
	} else {
		emailSvc = service.NewLogEmailService()
	}
	pushSender := service.NewNoopPushSender()
	if cfg.Firebase.CredentialsFile != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		fcm, err := service.NewFirebasePushSender(ctx, cfg.Firebase.CredentialsFile)
		cancel()
		if err != nil {
			logger.Error("Failed to initialize firebase, push disabled", "error", err)
		} else {
			pushSender = fcm
		}
	}

	// Jobs record nothing to the analytics stream
	events := service.NewEventTracker(store.Events(), nil)
	policySvc := service.NewPolicyService(store.Policies(), store)
	noteSvc := service.NewNotificationService(store.Notifications(), store.Devices(), store.Users(), pushSender, emailSvc)
	paymentSvc := service.NewPaymentService(service.PaymentServiceDeps{
		PaymentRepo:       store.Payments(),
		RentalRepo:        store.Rentals(),
		Tx:                store,
		Earnings:          service.NewEarningsService(store.Earnings()),
		Policies:          policySvc,
		Notifications:     noteSvc,
		Events:            events,
		Currency:          cfg.Stripe.Currency,
		MpesaInstructions: cfg.Mpesa.Instructions,
	})

	jobServices := &jobs.Services{
		Notifications: noteSvc,
		Payments:      paymentSvc,
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(store.Rentals(), jobServices, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if err := jobRunner.Run(*runOnce); err != nil {
			logger.Error("Unknown job name", "job", *runOnce)
			fmt.Printf("Available jobs:\n  - %s\n", strings.Join(jobRunner.JobNames(), "\n  - "))
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}
