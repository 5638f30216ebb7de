package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caredose/medadmin-backend/internal/repository"
	"github.com/caredose/medadmin-backend/pkg/model"
)

func weekOf(t *testing.T, day string) (time.Time, time.Time) {
	t.Helper()
	start, err := time.Parse("2006-01-02", day)
	require.NoError(t, err)
	return start, start.AddDate(0, 0, 7)
}

func TestBuildSummary_WeeklyScenario(t *testing.T) {
	// A week in which 30 units arrived from the pharmacy and 28 were
	// administered. Current stock is 22, so the reconstructed opening
	// stock must be 20.
	periodStart, periodEnd := weekOf(t, "2025-03-03")
	now := periodEnd.Add(time.Hour)

	med := &model.ActiveMedication{
		ID:              "med-1",
		ServiceUserID:   "su-1",
		Name:            "Paracetamol",
		QuantityInStock: 22,
		QuantityPerDose: 1,
		DosesPerDay:     2,
		StartDate:       periodStart.AddDate(0, -1, 0),
	}

	events := []repository.StockEvent{
		{ID: "e3", Kind: "administration", Category: model.StockAdministered, Delta: -14, Timestamp: periodStart.AddDate(0, 0, 5)},
		{ID: "e2", Kind: "administration", Category: model.StockAdministered, Delta: -14, Timestamp: periodStart.AddDate(0, 0, 3)},
		{ID: "e1", Kind: "update", Category: model.StockFromPharmacy, Delta: 30, Timestamp: periodStart.AddDate(0, 0, 1)},
	}

	summary := buildSummary(med, events, periodStart, periodEnd, now)

	assert.InDelta(t, 20, summary.InitialStock, 1e-9)
	assert.InDelta(t, 22, summary.FinalStock, 1e-9)
	assert.InDelta(t, 30, summary.FromPharmacy, 1e-9)
	assert.InDelta(t, 28, summary.QuantityAdministered, 1e-9)
	assert.False(t, summary.Incomplete)
	assert.Equal(t, 11, summary.DaysRemaining)
	assert.Len(t, summary.EntryIDs, 3)
}

func TestBuildSummary_FinalEqualsInitialPlusDeltas(t *testing.T) {
	periodStart, periodEnd := weekOf(t, "2025-03-03")

	med := &model.ActiveMedication{
		ID:              "med-1",
		QuantityInStock: 17.5,
		StartDate:       periodStart.AddDate(0, -1, 0),
	}

	events := []repository.StockEvent{
		{ID: "e4", Category: model.StockLost, Delta: -1, Timestamp: periodStart.AddDate(0, 0, 6)},
		{ID: "e3", Category: model.StockAdministered, Delta: -3.5, Timestamp: periodStart.AddDate(0, 0, 4)},
		{ID: "e2", Category: model.StockFromPharmacy, Delta: 10, Timestamp: periodStart.AddDate(0, 0, 2)},
		{ID: "e1", Category: model.StockLeavingHome, Delta: -2, Timestamp: periodStart.AddDate(0, 0, 1)},
	}

	summary := buildSummary(med, events, periodStart, periodEnd, periodEnd)

	inPeriodDelta := summary.FromPharmacy - summary.QuantityAdministered -
		summary.LeavingHome - summary.Lost + summary.ReturningHome -
		summary.ReturnedToPharmacy - summary.Damaged + summary.Other
	assert.InDelta(t, summary.FinalStock, summary.InitialStock+inPeriodDelta, 1e-9)
}

func TestBuildSummary_EventsAfterPeriodExcludedFromTotals(t *testing.T) {
	periodStart, periodEnd := weekOf(t, "2025-03-03")

	med := &model.ActiveMedication{
		ID:              "med-1",
		QuantityInStock: 10,
		StartDate:       periodStart.AddDate(0, -1, 0),
	}

	// One administration inside the period, one after it
	events := []repository.StockEvent{
		{ID: "e2", Category: model.StockAdministered, Delta: -2, Timestamp: periodEnd.Add(2 * time.Hour)},
		{ID: "e1", Category: model.StockAdministered, Delta: -2, Timestamp: periodStart.AddDate(0, 0, 2)},
	}

	summary := buildSummary(med, events, periodStart, periodEnd, periodEnd.AddDate(0, 0, 1))

	assert.InDelta(t, 2, summary.QuantityAdministered, 1e-9)
	assert.InDelta(t, 14, summary.InitialStock, 1e-9)
	assert.InDelta(t, 12, summary.FinalStock, 1e-9)
	assert.Len(t, summary.EntryIDs, 1)
}

func TestBuildSummary_IncompleteWhenHistoryStartsMidPeriod(t *testing.T) {
	periodStart, periodEnd := weekOf(t, "2025-03-03")

	med := &model.ActiveMedication{
		ID:              "med-1",
		QuantityInStock: 30,
		StartDate:       periodStart.AddDate(0, 0, 3),
	}

	summary := buildSummary(med, nil, periodStart, periodEnd, periodEnd)
	assert.True(t, summary.Incomplete)
}

func TestBuildSummary_OtherBucketKeepsSign(t *testing.T) {
	periodStart, periodEnd := weekOf(t, "2025-03-03")

	med := &model.ActiveMedication{
		ID:              "med-1",
		QuantityInStock: 10,
		StartDate:       periodStart.AddDate(0, -1, 0),
	}

	// A signed correction up and an unrecognized category down net out in
	// the catch-all bucket
	events := []repository.StockEvent{
		{ID: "e2", Kind: "update", Category: model.StockCategory("correction"), Delta: -3, Timestamp: periodStart.AddDate(0, 0, 4)},
		{ID: "e1", Kind: "update", Category: model.StockOther, Delta: 5, Timestamp: periodStart.AddDate(0, 0, 2)},
	}

	summary := buildSummary(med, events, periodStart, periodEnd, periodEnd)

	assert.InDelta(t, 2, summary.Other, 1e-9)
	assert.InDelta(t, 8, summary.InitialStock, 1e-9)
	assert.InDelta(t, summary.FinalStock, summary.InitialStock+summary.Other, 1e-9)
}

func TestGenerateWeeklySummary_InvalidPeriod(t *testing.T) {
	svc := &SummaryService{}
	start, _ := weekOf(t, "2025-03-03")

	_, err := svc.GenerateWeeklySummary(context.Background(), "su-1", start, start)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestComputeTrend(t *testing.T) {
	tests := []struct {
		name      string
		values    []float64
		direction TrendDirection
	}{
		{
			name:      "increasing usage",
			values:    []float64{10, 10, 14, 15},
			direction: TrendIncreasing,
		},
		{
			name:      "decreasing usage",
			values:    []float64{20, 18, 10, 9},
			direction: TrendDecreasing,
		},
		{
			name:      "stable usage",
			values:    []float64{14, 14, 14, 14},
			direction: TrendStable,
		},
		{
			name:      "small wobble stays stable",
			values:    []float64{100, 100, 101, 102},
			direction: TrendStable,
		},
		{
			name:      "single value",
			values:    []float64{5},
			direction: TrendStable,
		},
		{
			name:      "from zero baseline",
			values:    []float64{0, 0, 3, 4},
			direction: TrendIncreasing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metric := computeTrend(tt.values)
			assert.Equal(t, tt.direction, metric.Direction)
		})
	}
}

func TestComputeTrend_ChangePercent(t *testing.T) {
	metric := computeTrend([]float64{10, 10, 15, 15})
	assert.Equal(t, TrendIncreasing, metric.Direction)
	assert.InDelta(t, 50, metric.ChangePercent, 1e-9)
	assert.InDelta(t, 12.5, metric.Average, 1e-9)
}
