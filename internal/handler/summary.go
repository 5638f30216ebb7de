package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/caredose/medadmin-backend/internal/service"
)

// SummaryHandler implements the weekly summary, trend, and anomaly endpoints
type SummaryHandler struct {
	service *service.SummaryService
	logger  *zap.Logger
}

// NewSummaryHandler creates a new SummaryHandler
func NewSummaryHandler(service *service.SummaryService, logger *zap.Logger) *SummaryHandler {
	return &SummaryHandler{
		service: service,
		logger:  logger,
	}
}

// GenerateSummariesRequest is the request body for generating summaries.
// Omitting service_user_id generates summaries for every service user.
type GenerateSummariesRequest struct {
	ServiceUserID string `json:"service_user_id"`
	PeriodStart   string `json:"period_start" binding:"required"`
	PeriodEnd     string `json:"period_end" binding:"required"`
}

// PostGenerate generates weekly summary snapshots for one service user, or
// for all of them when no service_user_id is given
func (h *SummaryHandler) PostGenerate(c *gin.Context) {
	var req GenerateSummariesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	periodStart, err := parseDateString(req.PeriodStart)
	if err != nil {
		respondError(c, err, "Invalid period_start")
		return
	}
	periodEnd, err := parseDateString(req.PeriodEnd)
	if err != nil {
		respondError(c, err, "Invalid period_end")
		return
	}

	summaries, err := h.service.GenerateWeeklySummary(c.Request.Context(), req.ServiceUserID, periodStart, periodEnd)
	if err != nil {
		h.logger.Error("failed to generate summaries",
			zap.Error(err),
			zap.String("service_user_id", req.ServiceUserID),
		)
		respondError(c, err, "Failed to generate summaries")
		return
	}

	c.JSON(http.StatusCreated, summaries)
}

// GetSummaries retrieves stored summaries overlapping a date range
func (h *SummaryHandler) GetSummaries(c *gin.Context) {
	start, err := parseDateParam(c, "start_date")
	if err != nil {
		respondError(c, err, "Invalid start_date")
		return
	}
	end, err := parseDateParam(c, "end_date")
	if err != nil {
		respondError(c, err, "Invalid end_date")
		return
	}

	summaries, err := h.service.GetSummaries(c.Request.Context(), start, end)
	if err != nil {
		h.logger.Error("failed to get summaries", zap.Error(err))
		respondError(c, err, "Failed to get summaries")
		return
	}

	c.JSON(http.StatusOK, summaries)
}

// GetTrends computes usage trends for a medication
func (h *SummaryHandler) GetTrends(c *gin.Context) {
	medicationID := c.Param("id")

	weeks := 0
	if raw := c.Query("weeks"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "weeks must be a positive integer",
			})
			return
		}
		weeks = parsed
	}

	trends, err := h.service.Trends(c.Request.Context(), medicationID, weeks)
	if err != nil {
		h.logger.Error("failed to compute trends",
			zap.Error(err),
			zap.String("medication_id", medicationID),
		)
		respondError(c, err, "Failed to compute trends")
		return
	}

	c.JSON(http.StatusOK, trends)
}

// GetAnomalies scans a medication's summaries for anomalous stock movement
func (h *SummaryHandler) GetAnomalies(c *gin.Context) {
	medicationID := c.Param("id")

	weeks := 0
	if raw := c.Query("weeks"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "weeks must be a positive integer",
			})
			return
		}
		weeks = parsed
	}

	anomalies, err := h.service.Anomalies(c.Request.Context(), medicationID, weeks)
	if err != nil {
		h.logger.Error("failed to detect anomalies",
			zap.Error(err),
			zap.String("medication_id", medicationID),
		)
		respondError(c, err, "Failed to detect anomalies")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"medication_id": medicationID,
		"anomalies":     anomalies,
	})
}
