package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/caredose/medadmin-backend/internal/service"
	"github.com/caredose/medadmin-backend/pkg/model"
)

// AdministrationHandler implements the availability and dispense endpoints
type AdministrationHandler struct {
	service *service.AdministrationService
	logger  *zap.Logger
}

// NewAdministrationHandler creates a new AdministrationHandler
func NewAdministrationHandler(service *service.AdministrationService, logger *zap.Logger) *AdministrationHandler {
	return &AdministrationHandler{
		service: service,
		logger:  logger,
	}
}

// GetAvailability classifies a service user's medications at the current time
func (h *AdministrationHandler) GetAvailability(c *gin.Context) {
	serviceUserID := c.Param("id")

	availability, err := h.service.Availability(c.Request.Context(), serviceUserID, time.Now())
	if err != nil {
		h.logger.Error("failed to classify availability",
			zap.Error(err),
			zap.String("service_user_id", serviceUserID),
		)
		respondError(c, err, "Failed to classify availability")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"service_user_id": serviceUserID,
		"medications":     availability,
	})
}

// DispenseRequest is the request body for recording an administration
type DispenseRequest struct {
	MedicationID string  `json:"medication_id" binding:"required"`
	Quantity     float64 `json:"quantity" binding:"required"`
	Outcome      string  `json:"outcome"`
	Notes        *string `json:"notes"`
	ActorID      string  `json:"actor_id"`
}

// PostDispense records an administration event
func (h *AdministrationHandler) PostDispense(c *gin.Context) {
	serviceUserID := c.Param("id")

	var req DispenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	record, err := h.service.Dispense(c.Request.Context(), serviceUserID, service.DispenseRequest{
		MedicationID: req.MedicationID,
		Quantity:     req.Quantity,
		Outcome:      model.Outcome(req.Outcome),
		Notes:        req.Notes,
		ActorID:      req.ActorID,
	})
	if err != nil {
		h.logger.Error("failed to dispense medication",
			zap.Error(err),
			zap.String("service_user_id", serviceUserID),
			zap.String("medication_id", req.MedicationID),
		)
		respondError(c, err, "Failed to dispense medication")
		return
	}

	c.JSON(http.StatusCreated, record)
}
