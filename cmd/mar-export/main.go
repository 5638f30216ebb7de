// Command mar-export renders a service user's MAR chart for a date range and
// writes the PDF to a local file. Useful for inspections and offline review
// without going through the HTTP surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/caredose/medadmin-backend/internal/audit"
	"github.com/caredose/medadmin-backend/internal/config"
	"github.com/caredose/medadmin-backend/internal/pdf"
	"github.com/caredose/medadmin-backend/internal/repository"
	"github.com/caredose/medadmin-backend/internal/security"
	"github.com/caredose/medadmin-backend/internal/service"
)

func main() {
	serviceUserID := flag.String("service-user", "", "service user ID (required)")
	startDate := flag.String("start", "", "range start date, YYYY-MM-DD (required)")
	endDate := flag.String("end", "", "range end date, YYYY-MM-DD (required)")
	outPath := flag.String("out", "mar.pdf", "output PDF path")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *serviceUserID == "" || *startDate == "" || *endDate == "" {
		flag.Usage()
		logger.Fatal("Missing required flags: -service-user, -start, -end")
	}

	start, err := time.Parse("2006-01-02", *startDate)
	if err != nil {
		logger.Fatal("Invalid start date", zap.Error(err))
	}
	end, err := time.Parse("2006-01-02", *endDate)
	if err != nil {
		logger.Fatal("Invalid end date", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("Failed to load facility timezone", zap.Error(err))
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	encryptor, err := security.NewEncryptorFromHex(cfg.Security.NotesKey)
	if err != nil {
		logger.Fatal("Failed to initialize notes encryptor", zap.Error(err))
	}

	serviceUserRepo := repository.NewServiceUserRepository(pool, logger)
	medicationRepo := repository.NewMedicationRepository(pool, logger)
	settingsRepo := repository.NewSettingsRepository(pool, logger)
	recordRepo := repository.NewRecordRepository(pool, logger)
	summaryRepo := repository.NewSummaryRepository(pool, logger)
	trail := audit.NewTrail(pool, logger)

	settingsService := service.NewSettingsService(settingsRepo, serviceUserRepo, logger)
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

	chart, err := administrationService.BuildMARChart(ctx, *serviceUserID, start, end)
	if err != nil {
		logger.Fatal("Failed to build MAR chart", zap.Error(err))
	}

	summaries, err := summaryService.GenerateWeeklySummary(ctx, *serviceUserID, start, end.AddDate(0, 0, 1))
	if err != nil {
		logger.Fatal("Failed to generate stock summaries", zap.Error(err))
	}

	data := &pdf.ReportData{
		ServiceUserName: chart.ServiceUser.Name,
		FacilityName:    cfg.Facility.Name,
		DateRange:       fmt.Sprintf("%s to %s", *startDate, *endDate),
		Dates:           chart.DateRange,
		Summaries:       summaries,
	}
	for _, med := range chart.Medications {
		data.Charts = append(data.Charts, pdf.MedicationChart{
			Medication: med,
			Days:       chart.Windows[med.ID],
		})
	}

	generator := pdf.NewPDFGenerator(logger)
	pdfBytes, err := generator.Generate(data)
	if err != nil {
		logger.Fatal("Failed to render PDF", zap.Error(err))
	}

	if err := os.WriteFile(*outPath, pdfBytes, 0o644); err != nil {
		logger.Fatal("Failed to write PDF file", zap.Error(err))
	}

	logger.Info("MAR chart exported",
		zap.String("service_user_id", *serviceUserID),
		zap.String("path", *outPath),
		zap.Int("size_bytes", len(pdfBytes)),
	)
}
