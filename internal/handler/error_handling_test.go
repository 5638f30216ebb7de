package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/caredose/medadmin-backend/pkg/model"
)

func TestRespondError_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "invalid input maps to 400",
			err:            fmt.Errorf("quantity must be positive: %w", model.ErrInvalidInput),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name:           "not found maps to 404",
			err:            fmt.Errorf("medication x: %w", model.ErrNotFound),
			expectedStatus: http.StatusNotFound,
			expectedCode:   "NOT_FOUND",
		},
		{
			name:           "not active maps to 409",
			err:            fmt.Errorf("medication x: %w", model.ErrNotActive),
			expectedStatus: http.StatusConflict,
			expectedCode:   "NOT_ACTIVE",
		},
		{
			name:           "conflict maps to 409",
			err:            fmt.Errorf("slot already served: %w", model.ErrConflict),
			expectedStatus: http.StatusConflict,
			expectedCode:   "CONFLICT",
		},
		{
			name:           "unknown error maps to 500",
			err:            errors.New("connection refused"),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("GET", "/test", nil)

			respondError(c, tt.err, "Something failed")

			assert.Equal(t, tt.expectedStatus, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.expectedCode, resp.Code)
			assert.Equal(t, "Something failed", resp.Message)
			require.NotNil(t, resp.Details)
			assert.Contains(t, *resp.Details, tt.err.Error())
		})
	}
}

func TestDispenseHandler_InvalidJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := &AdministrationHandler{logger: zap.NewNop()}

	w := httptest.NewRecorder()
	_, router := gin.CreateTestContext(w)
	router.POST("/service-users/:id/dispense", handler.PostDispense)

	req := httptest.NewRequest("POST", "/service-users/su-1/dispense", bytes.NewBufferString("{invalid json"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)
}

func TestMARHandler_MissingDateParams(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := &MARHandler{logger: zap.NewNop()}

	w := httptest.NewRecorder()
	_, router := gin.CreateTestContext(w)
	router.GET("/service-users/:id/mar", handler.GetMAR)

	req := httptest.NewRequest("GET", "/service-users/su-1/mar", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)
}

func TestSummaryHandler_InvalidWeeksParam(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := &SummaryHandler{logger: zap.NewNop()}

	w := httptest.NewRecorder()
	_, router := gin.CreateTestContext(w)
	router.GET("/medications/:id/trends", handler.GetTrends)

	req := httptest.NewRequest("GET", "/medications/med-1/trends?weeks=zero", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
