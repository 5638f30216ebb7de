package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/caredose/medadmin-backend/internal/service"
	"github.com/caredose/medadmin-backend/pkg/model"
)

// SettingsHandler implements the administration settings endpoints
type SettingsHandler struct {
	service *service.SettingsService
	logger  *zap.Logger
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(service *service.SettingsService, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{
		service: service,
		logger:  logger,
	}
}

// GetSettings retrieves the settings record for a scope. Without a scope
// parameter the effective (resolved) settings are returned instead.
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	scope := c.Query("scope")
	groupID := c.Query("group_id")

	var groupIDPtr *string
	if groupID != "" {
		groupIDPtr = &groupID
	}

	if scope == "" {
		settings, err := h.service.ResolveForGroup(c.Request.Context(), groupIDPtr)
		if err != nil {
			h.logger.Error("failed to resolve settings", zap.Error(err))
			respondError(c, err, "Failed to resolve settings")
			return
		}
		c.JSON(http.StatusOK, settings)
		return
	}

	settings, err := h.service.Get(c.Request.Context(), model.SettingsScope(scope), groupIDPtr)
	if err != nil {
		h.logger.Error("failed to get settings",
			zap.Error(err),
			zap.String("scope", scope),
		)
		respondError(c, err, "Failed to get settings")
		return
	}

	c.JSON(http.StatusOK, settings)
}

// PutSettingsRequest is the request body for storing settings
type PutSettingsRequest struct {
	Scope           string  `json:"scope" binding:"required"`
	GroupID         *string `json:"group_id"`
	ThresholdBefore int     `json:"threshold_before"`
	ThresholdAfter  int     `json:"threshold_after"`
	UpdatedBy       string  `json:"updated_by"`
}

// PutSettings creates or replaces the settings record for a scope
func (h *SettingsHandler) PutSettings(c *gin.Context) {
	var req PutSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	settings, err := h.service.Put(c.Request.Context(), &model.AdministrationSettings{
		Scope:           model.SettingsScope(req.Scope),
		GroupID:         req.GroupID,
		ThresholdBefore: req.ThresholdBefore,
		ThresholdAfter:  req.ThresholdAfter,
		UpdatedBy:       req.UpdatedBy,
	})
	if err != nil {
		h.logger.Error("failed to store settings", zap.Error(err))
		respondError(c, err, "Failed to store settings")
		return
	}

	c.JSON(http.StatusOK, settings)
}
