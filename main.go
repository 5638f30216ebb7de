package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/caredose/medadmin-backend/internal/audit"
	"github.com/caredose/medadmin-backend/internal/azure"
	"github.com/caredose/medadmin-backend/internal/config"
	"github.com/caredose/medadmin-backend/internal/handler"
	"github.com/caredose/medadmin-backend/internal/middleware"
	"github.com/caredose/medadmin-backend/internal/pdf"
	"github.com/caredose/medadmin-backend/internal/repository"
	"github.com/caredose/medadmin-backend/internal/security"
	"github.com/caredose/medadmin-backend/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize Zap logger
	var logger *zap.Logger
	if cfg.Server.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded successfully",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("facility_timezone", cfg.Facility.Timezone),
	)

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("Failed to load facility timezone", zap.Error(err))
	}

	// Initialize database connection pool with pgx
	pool, err := pgxpool.New(context.Background(), cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}
	logger.Info("Successfully connected to database")

	// Initialize blob storage for MAR report archival. Missing credentials
	// fall back to in-memory storage so local development works.
	var blobStorage azure.BlobStorage
	if cfg.Storage.AccountName != "" && cfg.Storage.AccountKey != "" {
		blobStorage, err = azure.NewBlobStorageClient(
			cfg.Storage.AccountName,
			cfg.Storage.AccountKey,
			cfg.Storage.ReportContainer,
			logger,
		)
		if err != nil {
			logger.Fatal("Failed to initialize blob storage client", zap.Error(err))
		}
	} else {
		logger.Warn("blob storage credentials not configured, using in-memory storage")
		blobStorage = azure.NewMockBlobStorageClient(logger)
	}

	// Initialize notes encryption
	encryptor, err := security.NewEncryptorFromHex(cfg.Security.NotesKey)
	if err != nil {
		logger.Fatal("Failed to initialize notes encryptor", zap.Error(err))
	}
	if encryptor == nil {
		logger.Warn("notes encryption key not configured, notes are stored in plaintext")
	}

	// Initialize repositories
	serviceUserRepo := repository.NewServiceUserRepository(pool, logger)
	medicationRepo := repository.NewMedicationRepository(pool, logger)
	settingsRepo := repository.NewSettingsRepository(pool, logger)
	recordRepo := repository.NewRecordRepository(pool, logger)
	summaryRepo := repository.NewSummaryRepository(pool, logger)

	// Initialize audit trail
	trail := audit.NewTrail(pool, logger)

	// Initialize services
	settingsService := service.NewSettingsService(settingsRepo, serviceUserRepo, logger)
	medicationService := service.NewMedicationService(medicationRepo, serviceUserRepo, trail, logger)
	administrationService := service.NewAdministrationService(
		serviceUserRepo,
		medicationRepo,
		recordRepo,
		settingsService,
		trail,
		encryptor,
		loc,
		logger,
	)
	summaryService := service.NewSummaryService(medicationRepo, recordRepo, summaryRepo, loc, logger)

	// Initialize PDF generator and report service
	pdfGenerator := pdf.NewPDFGenerator(logger)
	reportService := service.NewReportService(
		administrationService,
		summaryService,
		summaryRepo,
		pdfGenerator,
		blobStorage,
		cfg.Facility.Name,
		logger,
	)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(pool, logger)
	administrationHandler := handler.NewAdministrationHandler(administrationService, logger)
	marHandler := handler.NewMARHandler(administrationService, reportService, logger)
	settingsHandler := handler.NewSettingsHandler(settingsService, logger)
	medicationHandler := handler.NewMedicationHandler(medicationService, logger)
	summaryHandler := handler.NewSummaryHandler(summaryService, logger)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	r := gin.New()

	// Add recovery middleware (must be first)
	r.Use(middleware.RecoveryMiddleware(logger))

	// Add CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // Configure appropriately for production
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "X-Trace-ID", "X-Report-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.TracingMiddleware())
	r.Use(middleware.RequestLoggingMiddleware(logger))
	r.Use(middleware.ErrorLoggingMiddleware(logger))
	r.Use(middleware.SlowRequestLoggingMiddleware(logger, 1*time.Second))

	// Register routes
	r.GET("/health", healthHandler.GetHealth)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/service-users/:id/availability", administrationHandler.GetAvailability)
		v1.POST("/service-users/:id/dispense", administrationHandler.PostDispense)
		v1.GET("/service-users/:id/mar", marHandler.GetMAR)
		v1.GET("/service-users/:id/mar/pdf", marHandler.GetMARPDF)
		v1.GET("/service-users/:id/medications", medicationHandler.GetMedications)
		v1.POST("/service-users/:id/medications", medicationHandler.PostMedication)

		v1.GET("/settings", settingsHandler.GetSettings)
		v1.PUT("/settings", settingsHandler.PutSettings)

		v1.PUT("/medications/:id", medicationHandler.PutMedication)
		v1.POST("/medications/:id/deactivate", medicationHandler.PostDeactivate)
		v1.POST("/medications/:id/stock", medicationHandler.PostStockAdjustment)
		v1.GET("/medications/:id/history", medicationHandler.GetHistory)
		v1.GET("/medications/:id/trends", summaryHandler.GetTrends)
		v1.GET("/medications/:id/anomalies", summaryHandler.GetAnomalies)

		v1.POST("/summaries/generate", summaryHandler.PostGenerate)
		v1.GET("/summaries", summaryHandler.GetSummaries)

		v1.GET("/reports/:id", marHandler.GetReport)
	}

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	pool.Close()

	logger.Info("Server exited")
}
