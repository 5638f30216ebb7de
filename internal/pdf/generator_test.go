package pdf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/caredose/medadmin-backend/internal/schedule"
	"github.com/caredose/medadmin-backend/pkg/model"
)

func TestPDFGenerator_Generate_Success(t *testing.T) {
	// Arrange
	logger := zap.NewNop()
	generator := NewPDFGenerator(logger)

	med := model.ActiveMedication{
		ID:                  "med-1",
		ServiceUserID:       "su-1",
		Name:                "Paracetamol",
		DoseAmount:          500,
		DoseUnit:            "mg",
		QuantityInStock:     22,
		QuantityPerDose:     1,
		DosesPerDay:         2,
		AdministrationTimes: []string{"08:00", "20:00"},
		StartDate:           time.Now().AddDate(0, -1, 0),
		Active:              true,
	}

	reportData := &ReportData{
		ServiceUserName: "Test Service User",
		FacilityName:    "Care Facility",
		DateRange:       "2025-03-03 to 2025-03-09",
		Dates:           []string{"2025-03-03", "2025-03-04"},
		Charts: []MedicationChart{
			{
				Medication: med,
				Days: map[string][]schedule.SlotResult{
					"2025-03-03": {
						{Status: schedule.StatusOnTime},
						{Status: schedule.StatusMissed},
					},
					"2025-03-04": {
						{Status: schedule.StatusLate},
						{Status: schedule.StatusPending},
					},
				},
			},
		},
		Summaries: []model.WeeklySummary{
			{
				MedicationID:         "med-1",
				MedicationName:       "Paracetamol",
				InitialStock:         20,
				FinalStock:           22,
				FromPharmacy:         30,
				QuantityAdministered: 28,
				DaysRemaining:        11,
			},
		},
	}

	// Act
	pdfBytes, err := generator.Generate(reportData)

	// Assert
	assert.NoError(t, err)
	assert.NotNil(t, pdfBytes)
	assert.Greater(t, len(pdfBytes), 0, "PDF should have content")

	// PDF files start with %PDF
	assert.Equal(t, "%PDF", string(pdfBytes[:4]), "Should be a valid PDF file")
}

func TestPDFGenerator_Generate_EmptyData(t *testing.T) {
	// Arrange
	logger := zap.NewNop()
	generator := NewPDFGenerator(logger)

	reportData := &ReportData{
		ServiceUserName: "Test Service User",
		DateRange:       "2025-03-03 to 2025-03-09",
	}

	// Act
	pdfBytes, err := generator.Generate(reportData)

	// Assert
	assert.NoError(t, err)
	assert.NotNil(t, pdfBytes)
	assert.Equal(t, "%PDF", string(pdfBytes[:4]))
}

func TestPDFGenerator_Generate_NoScheduleMedication(t *testing.T) {
	logger := zap.NewNop()
	generator := NewPDFGenerator(logger)

	reportData := &ReportData{
		ServiceUserName: "Test Service User",
		DateRange:       "2025-03-03 to 2025-03-09",
		Dates:           []string{"2025-03-03"},
		Charts: []MedicationChart{
			{
				Medication: model.ActiveMedication{
					ID:   "med-prn",
					Name: "Ibuprofen",
				},
				Days: map[string][]schedule.SlotResult{},
			},
		},
	}

	pdfBytes, err := generator.Generate(reportData)

	assert.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdfBytes[:4]))
}

func TestStatusGlyph(t *testing.T) {
	assert.Equal(t, "X", statusGlyph(schedule.StatusOnTime))
	assert.Equal(t, "L", statusGlyph(schedule.StatusLate))
	assert.Equal(t, "M", statusGlyph(schedule.StatusMissed))
	assert.Equal(t, "-", statusGlyph(schedule.StatusPending))
}
