package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caredose/medadmin-backend/internal/azure"
	"github.com/caredose/medadmin-backend/internal/pdf"
	"github.com/caredose/medadmin-backend/internal/repository"
	"github.com/caredose/medadmin-backend/pkg/model"
)

// ReportService generates MAR report PDFs and archives them in blob storage
type ReportService struct {
	administrations *AdministrationService
	summaries       *SummaryService
	summaryRepo     *repository.SummaryRepository
	generator       *pdf.PDFGenerator
	blobStorage     azure.BlobStorage
	facilityName    string
	logger          *zap.Logger
}

// NewReportService creates a new ReportService
func NewReportService(
	administrations *AdministrationService,
	summaries *SummaryService,
	summaryRepo *repository.SummaryRepository,
	generator *pdf.PDFGenerator,
	blobStorage azure.BlobStorage,
	facilityName string,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		administrations: administrations,
		summaries:       summaries,
		summaryRepo:     summaryRepo,
		generator:       generator,
		blobStorage:     blobStorage,
		facilityName:    facilityName,
		logger:          logger,
	}
}

// Generate builds the MAR chart for the range, renders it to PDF, archives
// the PDF in blob storage, and records the report. The rendered bytes are
// returned so callers can stream the PDF without a round trip to storage.
func (s *ReportService) Generate(ctx context.Context, serviceUserID string, startDate, endDate time.Time) (*model.Report, []byte, error) {
	chart, err := s.administrations.BuildMARChart(ctx, serviceUserID, startDate, endDate)
	if err != nil {
		return nil, nil, err
	}

	summaries, err := s.summaries.GenerateWeeklySummary(ctx, serviceUserID, startDate, endDate.AddDate(0, 0, 1))
	if err != nil {
		return nil, nil, err
	}

	data := &pdf.ReportData{
		ServiceUserName: chart.ServiceUser.Name,
		FacilityName:    s.facilityName,
		DateRange:       fmt.Sprintf("%s to %s", startDate.Format("2006-01-02"), endDate.Format("2006-01-02")),
		Dates:           chart.DateRange,
		Summaries:       summaries,
	}

	for _, med := range chart.Medications {
		data.Charts = append(data.Charts, pdf.MedicationChart{
			Medication: med,
			Days:       chart.Windows[med.ID],
		})
	}

	pdfBytes, err := s.generator.Generate(data)
	if err != nil {
		return nil, nil, err
	}

	reportID := uuid.New().String()
	filename := fmt.Sprintf("mar_%s_%s.pdf", serviceUserID, reportID)

	blobName, err := s.blobStorage.UploadReport(ctx, filename, pdfBytes)
	if err != nil {
		return nil, nil, err
	}

	report := &model.Report{
		ID:             reportID,
		ServiceUserID:  serviceUserID,
		DateRangeStart: startDate,
		DateRangeEnd:   endDate,
		FilePath:       blobName,
		GeneratedAt:    time.Now(),
	}

	if err := s.summaryRepo.SaveReport(ctx, report); err != nil {
		return nil, nil, err
	}

	s.logger.Info("MAR report generated",
		zap.String("report_id", report.ID),
		zap.String("service_user_id", serviceUserID),
		zap.String("blob_name", blobName),
	)

	return report, pdfBytes, nil
}

// Download retrieves an archived report PDF by report ID
func (s *ReportService) Download(ctx context.Context, reportID string) (*model.Report, []byte, error) {
	report, err := s.summaryRepo.GetReportByID(ctx, reportID)
	if err != nil {
		return nil, nil, err
	}

	data, err := s.blobStorage.DownloadReport(ctx, report.FilePath)
	if err != nil {
		return nil, nil, err
	}

	return report, data, nil
}
