package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime/types"
	"go.uber.org/zap"

	"github.com/caredose/medadmin-backend/internal/service"
	"github.com/caredose/medadmin-backend/pkg/model"
)

// MedicationHandler implements the medication lifecycle endpoints
type MedicationHandler struct {
	service *service.MedicationService
	logger  *zap.Logger
}

// NewMedicationHandler creates a new MedicationHandler
func NewMedicationHandler(service *service.MedicationService, logger *zap.Logger) *MedicationHandler {
	return &MedicationHandler{
		service: service,
		logger:  logger,
	}
}

// MedicationRequest is the request body for creating or updating a medication
type MedicationRequest struct {
	Name                string      `json:"name" binding:"required"`
	DoseAmount          float64     `json:"dose_amount"`
	DoseUnit            string      `json:"dose_unit"`
	QuantityInStock     float64     `json:"quantity_in_stock"`
	QuantityPerDose     float64     `json:"quantity_per_dose"`
	DosesPerDay         int         `json:"doses_per_day"`
	Frequency           string      `json:"frequency"`
	AdministrationTimes []string    `json:"administration_times"`
	StartDate           types.Date  `json:"start_date" binding:"required"`
	EndDate             *types.Date `json:"end_date"`
	Prescriber          string      `json:"prescriber"`
	ActorID             string      `json:"actor_id"`
}

func (req *MedicationRequest) toModel() *model.ActiveMedication {
	med := &model.ActiveMedication{
		Name:                req.Name,
		DoseAmount:          req.DoseAmount,
		DoseUnit:            req.DoseUnit,
		QuantityInStock:     req.QuantityInStock,
		QuantityPerDose:     req.QuantityPerDose,
		DosesPerDay:         req.DosesPerDay,
		Frequency:           req.Frequency,
		AdministrationTimes: req.AdministrationTimes,
		StartDate:           dateToTime(req.StartDate),
		Prescriber:          req.Prescriber,
	}
	if req.EndDate != nil {
		endDate := dateToTime(*req.EndDate)
		med.EndDate = &endDate
	}
	return med
}

// PostMedication registers a new medication for a service user
func (h *MedicationHandler) PostMedication(c *gin.Context) {
	serviceUserID := c.Param("id")

	var req MedicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	med, err := h.service.Create(c.Request.Context(), serviceUserID, req.ActorID, req.toModel())
	if err != nil {
		h.logger.Error("failed to create medication",
			zap.Error(err),
			zap.String("service_user_id", serviceUserID),
		)
		respondError(c, err, "Failed to create medication")
		return
	}

	c.JSON(http.StatusCreated, med)
}

// GetMedications lists a service user's medications
func (h *MedicationHandler) GetMedications(c *gin.Context) {
	serviceUserID := c.Param("id")
	activeOnly := c.Query("active_only") != "false"

	medications, err := h.service.List(c.Request.Context(), serviceUserID, activeOnly)
	if err != nil {
		h.logger.Error("failed to list medications",
			zap.Error(err),
			zap.String("service_user_id", serviceUserID),
		)
		respondError(c, err, "Failed to list medications")
		return
	}

	c.JSON(http.StatusOK, medications)
}

// PutMedication updates a medication's prescription fields
func (h *MedicationHandler) PutMedication(c *gin.Context) {
	medicationID := c.Param("id")

	var req MedicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	med, err := h.service.Update(c.Request.Context(), medicationID, req.ActorID, req.toModel())
	if err != nil {
		h.logger.Error("failed to update medication",
			zap.Error(err),
			zap.String("medication_id", medicationID),
		)
		respondError(c, err, "Failed to update medication")
		return
	}

	c.JSON(http.StatusOK, med)
}

// DeactivateRequest is the request body for deactivating a medication
type DeactivateRequest struct {
	EndDate *types.Date `json:"end_date"`
	ActorID string      `json:"actor_id"`
}

// PostDeactivate soft-ends a medication
func (h *MedicationHandler) PostDeactivate(c *gin.Context) {
	medicationID := c.Param("id")

	var req DeactivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	endDate := time.Now()
	if req.EndDate != nil {
		endDate = dateToTime(*req.EndDate)
	}

	if err := h.service.Deactivate(c.Request.Context(), medicationID, req.ActorID, endDate); err != nil {
		h.logger.Error("failed to deactivate medication",
			zap.Error(err),
			zap.String("medication_id", medicationID),
		)
		respondError(c, err, "Failed to deactivate medication")
		return
	}

	c.Status(http.StatusNoContent)
}

// GetHistory returns the audit trail for a medication. Defaults to the last
// 30 days when no range is given.
func (h *MedicationHandler) GetHistory(c *gin.Context) {
	medicationID := c.Param("id")

	end := time.Now()
	start := end.AddDate(0, 0, -30)

	if raw := c.Query("start_date"); raw != "" {
		parsed, err := parseDateString(raw)
		if err != nil {
			respondError(c, err, "Invalid start_date")
			return
		}
		start = parsed
	}
	if raw := c.Query("end_date"); raw != "" {
		parsed, err := parseDateString(raw)
		if err != nil {
			respondError(c, err, "Invalid end_date")
			return
		}
		end = parsed.AddDate(0, 0, 1)
	}

	history, err := h.service.History(c.Request.Context(), medicationID, start, end)
	if err != nil {
		h.logger.Error("failed to retrieve medication history",
			zap.Error(err),
			zap.String("medication_id", medicationID),
		)
		respondError(c, err, "Failed to retrieve medication history")
		return
	}

	c.JSON(http.StatusOK, history)
}

// StockAdjustmentRequest is the request body for a categorized stock movement
type StockAdjustmentRequest struct {
	Category string  `json:"category" binding:"required"`
	Quantity float64 `json:"quantity" binding:"required"`
	Note     *string `json:"note"`
	ActorID  string  `json:"actor_id"`
}

// PostStockAdjustment applies a categorized stock movement
func (h *MedicationHandler) PostStockAdjustment(c *gin.Context) {
	medicationID := c.Param("id")

	var req StockAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	med, err := h.service.AdjustStock(c.Request.Context(), medicationID, service.StockAdjustment{
		Category: model.StockCategory(req.Category),
		Quantity: req.Quantity,
		Note:     req.Note,
		ActorID:  req.ActorID,
	})
	if err != nil {
		h.logger.Error("failed to adjust stock",
			zap.Error(err),
			zap.String("medication_id", medicationID),
		)
		respondError(c, err, "Failed to adjust stock")
		return
	}

	c.JSON(http.StatusOK, med)
}
