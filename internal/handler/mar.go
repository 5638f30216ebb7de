package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/caredose/medadmin-backend/internal/service"
)

// MARHandler implements the MAR chart and report endpoints
type MARHandler struct {
	administrations *service.AdministrationService
	reports         *service.ReportService
	logger          *zap.Logger
}

// NewMARHandler creates a new MARHandler
func NewMARHandler(administrations *service.AdministrationService, reports *service.ReportService, logger *zap.Logger) *MARHandler {
	return &MARHandler{
		administrations: administrations,
		reports:         reports,
		logger:          logger,
	}
}

// GetMAR returns the reconciled MAR chart for a date range
func (h *MARHandler) GetMAR(c *gin.Context) {
	serviceUserID := c.Param("id")

	startDate, err := parseDateParam(c, "start_date")
	if err != nil {
		respondError(c, err, "Invalid start_date")
		return
	}
	endDate, err := parseDateParam(c, "end_date")
	if err != nil {
		respondError(c, err, "Invalid end_date")
		return
	}

	chart, err := h.administrations.BuildMARChart(c.Request.Context(), serviceUserID, startDate, endDate)
	if err != nil {
		h.logger.Error("failed to build MAR chart",
			zap.Error(err),
			zap.String("service_user_id", serviceUserID),
		)
		respondError(c, err, "Failed to build MAR chart")
		return
	}

	c.JSON(http.StatusOK, chart)
}

// GetMARPDF generates and streams the MAR chart as a PDF. The PDF is also
// archived in blob storage with a report record.
func (h *MARHandler) GetMARPDF(c *gin.Context) {
	serviceUserID := c.Param("id")

	startDate, err := parseDateParam(c, "start_date")
	if err != nil {
		respondError(c, err, "Invalid start_date")
		return
	}
	endDate, err := parseDateParam(c, "end_date")
	if err != nil {
		respondError(c, err, "Invalid end_date")
		return
	}

	report, pdfBytes, err := h.reports.Generate(c.Request.Context(), serviceUserID, startDate, endDate)
	if err != nil {
		h.logger.Error("failed to generate MAR report",
			zap.Error(err),
			zap.String("service_user_id", serviceUserID),
		)
		respondError(c, err, "Failed to generate MAR report")
		return
	}

	filename := fmt.Sprintf("mar_%s_%s.pdf", startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("X-Report-ID", report.ID)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

// GetReport streams a previously archived MAR report PDF
func (h *MARHandler) GetReport(c *gin.Context) {
	reportID := c.Param("id")

	report, data, err := h.reports.Download(c.Request.Context(), reportID)
	if err != nil {
		h.logger.Error("failed to download report",
			zap.Error(err),
			zap.String("report_id", reportID),
		)
		respondError(c, err, "Failed to download report")
		return
	}

	filename := fmt.Sprintf("mar_%s_%s.pdf", report.DateRangeStart.Format("2006-01-02"), report.DateRangeEnd.Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", data)
}
