package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime/types"

	"github.com/caredose/medadmin-backend/pkg/model"
)

// ErrorResponse is the error body returned by every endpoint
type ErrorResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Details *string `json:"details,omitempty"`
}

// respondError maps domain errors to HTTP status codes. Anything not in the
// sentinel taxonomy is a 500.
func respondError(c *gin.Context, err error, message string) {
	details := stringPtr(err.Error())

	switch {
	case errors.Is(err, model.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: message,
			Details: details,
		})
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: message,
			Details: details,
		})
	case errors.Is(err, model.ErrNotActive):
		c.JSON(http.StatusConflict, ErrorResponse{
			Code:    "NOT_ACTIVE",
			Message: message,
			Details: details,
		})
	case errors.Is(err, model.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{
			Code:    "CONFLICT",
			Message: message,
			Details: details,
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: message,
			Details: details,
		})
	}

	c.Error(err)
}

// Helper functions for type conversions between API types and internal models

// stringPtr creates a pointer to a string
func stringPtr(s string) *string {
	return &s
}

// dateToTime converts types.Date to time.Time
func dateToTime(d types.Date) time.Time {
	return d.Time
}

// parseDateString parses a YYYY-MM-DD value from a request body
func parseDateString(raw string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, errors.Join(model.ErrInvalidInput, err)
	}
	return t, nil
}

// parseDateParam parses a YYYY-MM-DD query parameter
func parseDateParam(c *gin.Context, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, errors.Join(model.ErrInvalidInput, errors.New(name+" is required"))
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, errors.Join(model.ErrInvalidInput, err)
	}
	return t, nil
}
