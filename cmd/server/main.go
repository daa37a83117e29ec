package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldcrew/crew-ledger/internal/config"
	"github.com/fieldcrew/crew-ledger/internal/database"
	"github.com/fieldcrew/crew-ledger/internal/handlers"
	"github.com/fieldcrew/crew-ledger/internal/middleware"
	"github.com/fieldcrew/crew-ledger/internal/models"
	"github.com/fieldcrew/crew-ledger/internal/services"
	"github.com/fieldcrew/crew-ledger/pkg/jwt"
	"github.com/fieldcrew/crew-ledger/pkg/notify"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting crew scheduling and time ledger service")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	if err := handlers.RegisterValidators(); err != nil {
		logger.Fatalf("Failed to register validators: %v", err)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	defaultWindow, err := models.ParseTimeWindow(&cfg.Scheduling.DefaultStart, &cfg.Scheduling.DefaultEnd, models.TimeWindow{})
	if err != nil {
		logger.Fatalf("Invalid default work window: %v", err)
	}

	// Notification gateway
	var gateway notify.Gateway
	if cfg.Notify.Mode == "webhook" {
		logger.WithField("url", cfg.Notify.WebhookURL).Info("Manager notifications delivered by webhook")
		gateway = notify.NewWebhookGateway(notify.WebhookConfig{
			URL:     cfg.Notify.WebhookURL,
			Token:   cfg.Notify.Token,
			Timeout: cfg.Notify.Timeout,
		}, logger)
	} else {
		logger.Info("Notification gateway in development mode (messages are only logged)")
		gateway = notify.NewLogGateway(logger)
	}

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenExpiry)
	auditService := services.NewAuditService(cfg.Security.EnableAuditLog, logger)
	notificationService := services.NewNotificationService(gateway, logger)
	conflictService := services.NewConflictService(db, defaultWindow)
	scheduleService := services.NewScheduleService(db, conflictService, auditService, logger)
	callOutService := services.NewCallOutService(db, auditService, notificationService, logger)
	absenceService := services.NewAbsenceService(db, auditService, logger)
	ledgerService := services.NewTimeLedgerService(db, logger)
	weekLockService := services.NewWeekLockService(db, auditService, notificationService, logger, cfg.Scheduling.WeekUnlockGrace)

	// Initialize and start cron service
	scheduler := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(cfg.Scheduling.Location()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	cronService := services.NewCronService(scheduler, weekLockService, cfg.Scheduling.WeekLockCron, cfg.Scheduling.WeekLockEnabled, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}
	logger.Info("Services initialized")

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	if cfg.Security.EnableRequestLog {
		router.Use(middleware.RequestLogger(logger))
	}

	// CORS configuration
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     append(cfg.CORS.AllowedHeaders, middleware.RequestIDHeader),
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	handlers.RegisterRoutes(router, handlers.Handlers{
		Health:       handlers.NewHealthHandler(db, version),
		Schedule:     handlers.NewScheduleHandler(scheduleService, conflictService, logger),
		Availability: handlers.NewAvailabilityHandler(absenceService, callOutService, logger),
		TimeEntries:  handlers.NewTimeEntryHandler(ledgerService, logger),
		Admin:        handlers.NewAdminHandler(weekLockService, cronService, logger),
	}, jwtService, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Stop accepting requests first, then let a running week lock finish
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}
	cronService.Stop()

	logger.Info("Server exited")
}
