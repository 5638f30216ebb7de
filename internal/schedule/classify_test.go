package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caredose/medadmin-backend/pkg/model"
)

func dayWindows(t *testing.T, times []string, before, after int) []Window {
	t.Helper()
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	return ComputeWindows(times, date, time.UTC, before, after)
}

func recordAt(t *testing.T, ts time.Time) model.AdministrationRecord {
	t.Helper()
	return model.AdministrationRecord{
		ID:        uuid.New().String(),
		Quantity:  1,
		Outcome:   model.OutcomeAdministered,
		Timestamp: ts,
	}
}

func TestClassify_NoSchedule(t *testing.T) {
	for _, now := range []time.Time{
		time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC),
	} {
		result := Classify(now, nil, nil)
		assert.Equal(t, AvailabilityNoSchedule, result.Availability)
		assert.Nil(t, result.CurrentWindow)
		assert.Nil(t, result.NextWindow)
		assert.Nil(t, result.LastWindow)
	}
}

func TestClassify_InsideWindowNoRecord(t *testing.T) {
	windows := dayWindows(t, []string{"08:00", "20:00"}, 30, 30)

	now := time.Date(2026, 3, 10, 8, 10, 0, 0, time.UTC)
	result := Classify(now, windows, nil)

	assert.Equal(t, AvailabilityAvailable, result.Availability)
	require.NotNil(t, result.CurrentWindow)
	assert.Equal(t, "08:00", result.CurrentWindow.ScheduledTime)
}

func TestClassify_MissedWindowDominatesUpcoming(t *testing.T) {
	windows := dayWindows(t, []string{"08:00", "20:00"}, 30, 30)

	// 09:00 is past the morning window with no record: the missed dose wins
	// over the evening window still ahead.
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	result := Classify(now, windows, nil)

	assert.Equal(t, AvailabilityUnavailable, result.Availability)
	require.NotNil(t, result.LastWindow)
	assert.Equal(t, "08:00", result.LastWindow.ScheduledTime)
	assert.Nil(t, result.NextWindow)
}

func TestClassify_BetweenWindowsServedIsUpcoming(t *testing.T) {
	windows := dayWindows(t, []string{"08:00", "20:00"}, 30, 30)
	records := []model.AdministrationRecord{
		recordAt(t, time.Date(2026, 3, 10, 8, 5, 0, 0, time.UTC)),
	}

	// Morning dose given, evening window not yet open
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	result := Classify(now, windows, records)

	assert.Equal(t, AvailabilityUpcoming, result.Availability)
	require.NotNil(t, result.NextWindow)
	assert.Equal(t, "20:00", result.NextWindow.ScheduledTime)
}

func TestClassify_AfterAllWindows(t *testing.T) {
	windows := dayWindows(t, []string{"08:00"}, 30, 30)

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	result := Classify(now, windows, nil)

	assert.Equal(t, AvailabilityUnavailable, result.Availability)
	require.NotNil(t, result.LastWindow)
	assert.Equal(t, "08:00", result.LastWindow.ScheduledTime)
}

func TestClassify_WindowAlreadyServed(t *testing.T) {
	windows := dayWindows(t, []string{"08:00", "20:00"}, 30, 30)
	records := []model.AdministrationRecord{
		recordAt(t, time.Date(2026, 3, 10, 8, 5, 0, 0, time.UTC)),
	}

	// Still inside the morning window, but the dose was given
	now := time.Date(2026, 3, 10, 8, 20, 0, 0, time.UTC)
	result := Classify(now, windows, records)

	assert.Equal(t, AvailabilityUpcoming, result.Availability)
	require.NotNil(t, result.NextWindow)
	assert.Equal(t, "20:00", result.NextWindow.ScheduledTime)
}

func TestClassify_FullyServedDayIsUnavailable(t *testing.T) {
	windows := dayWindows(t, []string{"08:00", "20:00"}, 30, 30)
	records := []model.AdministrationRecord{
		recordAt(t, time.Date(2026, 3, 10, 8, 5, 0, 0, time.UTC)),
		recordAt(t, time.Date(2026, 3, 10, 20, 10, 0, 0, time.UTC)),
	}

	now := time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC)
	result := Classify(now, windows, records)

	// The day being fully served still reports unavailable; there is no
	// separate completed state.
	assert.Equal(t, AvailabilityUnavailable, result.Availability)
	require.NotNil(t, result.LastWindow)
	assert.Equal(t, "20:00", result.LastWindow.ScheduledTime)
}

func TestClassify_BoundaryEqualityCountsAsInside(t *testing.T) {
	windows := dayWindows(t, []string{"08:00"}, 30, 30)

	for _, now := range []time.Time{
		time.Date(2026, 3, 10, 7, 30, 0, 0, time.UTC),
		time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC),
	} {
		result := Classify(now, windows, nil)
		assert.Equal(t, AvailabilityAvailable, result.Availability, "boundary at %v", now)
	}
}

func TestClassify_OverlappingWindowsEarliestWins(t *testing.T) {
	windows := dayWindows(t, []string{"08:00", "09:00"}, 90, 90)
	require.Len(t, windows, 2)

	// 08:30 sits inside both overlapping windows
	now := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)
	result := Classify(now, windows, nil)

	assert.Equal(t, AvailabilityAvailable, result.Availability)
	require.NotNil(t, result.CurrentWindow)
	assert.Equal(t, "08:00", result.CurrentWindow.ScheduledTime)
}
